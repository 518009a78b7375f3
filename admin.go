package kiebitz

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
)

// AdminKeyPairs are the system keys. Root authorizes mediators, Token is
// handed to the relay to sign queue tokens, and ProviderData is shared
// with mediators so they can read provider submissions.
type AdminKeyPairs struct {
	Root         *crypto.KeyPair `json:"root"`
	Token        *crypto.KeyPair `json:"token"`
	ProviderData *crypto.KeyPair `json:"providerData"`
}

// SigningKey returns the root key.
func (k AdminKeyPairs) SigningKey() *crypto.KeyPair {
	return k.Root
}

// Validate checks that every key pair is present and consistent.
func (k AdminKeyPairs) Validate() error {
	for name, kp := range map[string]*crypto.KeyPair{"root": k.Root, "token": k.Token, "providerData": k.ProviderData} {
		if err := kp.Validate(); err != nil {
			return fmt.Errorf("%s key: %w", name, err)
		}
	}
	return nil
}

// GenerateAdminKeys creates a fresh set of system keys.
func GenerateAdminKeys(suite *Suite) (*AdminKeyPairs, error) {
	if suite == nil {
		suite = crypto.DefaultSuite()
	}
	var keys AdminKeyPairs
	var g errgroup.Group
	g.Go(func() (err error) {
		keys.Root, err = suite.GenerateSigningKeyPair()
		return err
	})
	g.Go(func() (err error) {
		keys.Token, err = suite.GenerateSigningKeyPair()
		return err
	})
	g.Go(func() (err error) {
		keys.ProviderData, err = suite.GenerateEncryptionKeyPair()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}
	return &keys, nil
}

// Admin operates the system keys.
type Admin struct {
	*actor[AdminKeyPairs]
}

// NewAdmin creates an admin client holding keys.
func NewAdmin(keys *AdminKeyPairs, opts ...Option) (*Admin, error) {
	a, err := newActor[AdminKeyPairs]("admin", opts)
	if err != nil {
		return nil, err
	}
	if keys != nil {
		if err := keys.Validate(); err != nil {
			return nil, err
		}
		a.setKeys(*keys)
	}
	return &Admin{actor: a}, nil
}

// Keys returns the admin keys, or nil.
func (a *Admin) Keys() *AdminKeyPairs {
	keys, err := a.currentKeys()
	if err != nil {
		return nil
	}
	return &keys
}

// AddMediator signs a mediator's public keys with the root key and
// uploads them.
func (a *Admin) AddMediator(ctx context.Context, signing, encryption string) error {
	keys, err := a.currentKeys()
	if err != nil {
		return err
	}
	signed, err := a.suite().SignJSON(model.MediatorKeyData{Signing: signing, Encryption: encryption}, keys.Root)
	if err != nil {
		return apierrors.Crypto("sign", err)
	}

	res, err := invoke(ctx, a.actor, api.AddMediatorPublicKeys, api.AddMediatorPublicKeysRequest{SignedKeyData: *signed})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("addMediatorPublicKeys returned %q", res)
	}
	a.log.Info("mediator added", zap.String("mediator_key_id", keyID(signing)))
	return nil
}

// GenerateMediatorKeys creates a mediator key set, including a copy of the
// provider data key, and authorizes it.
func (a *Admin) GenerateMediatorKeys(ctx context.Context) (*MediatorKeyPairs, error) {
	keys, err := a.currentKeys()
	if err != nil {
		return nil, err
	}

	mediator := MediatorKeyPairs{ProviderData: keys.ProviderData}
	var g errgroup.Group
	g.Go(func() (err error) {
		mediator.Signing, err = a.suite().GenerateSigningKeyPair()
		return err
	})
	g.Go(func() (err error) {
		mediator.Encryption, err = a.suite().GenerateEncryptionKeyPair()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}

	if err := a.AddMediator(ctx, mediator.Signing.PublicKey, mediator.Encryption.PublicKey); err != nil {
		return nil, err
	}
	return &mediator, nil
}

// ResetDB wipes the relay. Only the root key may do this.
func (a *Admin) ResetDB(ctx context.Context) error {
	res, err := invoke(ctx, a.actor, api.ResetDB, api.Empty{})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("resetDB returned %q", res)
	}
	a.log.Warn("relay reset")
	return nil
}
