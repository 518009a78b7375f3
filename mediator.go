package kiebitz

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
	"github.com/kiebitz/client-go/internal/trust"
)

// MediatorKeyPairs are a mediator's keys. ProviderData is the shared
// system key that opens provider submissions.
type MediatorKeyPairs struct {
	Signing      *crypto.KeyPair `json:"signing"`
	Encryption   *crypto.KeyPair `json:"encryption"`
	ProviderData *crypto.KeyPair `json:"providerData"`
}

// SigningKey returns the mediator's signing key.
func (k MediatorKeyPairs) SigningKey() *crypto.KeyPair {
	return k.Signing
}

// Validate checks that every key pair is present and consistent.
func (k MediatorKeyPairs) Validate() error {
	if err := k.Signing.Validate(); err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	if err := k.Encryption.Validate(); err != nil {
		return fmt.Errorf("encryption key: %w", err)
	}
	if err := k.ProviderData.Validate(); err != nil {
		return fmt.Errorf("provider data key: %w", err)
	}
	return nil
}

// Mediator verifies providers.
type Mediator struct {
	*actor[MediatorKeyPairs]
}

// NewMediator creates a mediator client holding keys.
func NewMediator(keys *MediatorKeyPairs, opts ...Option) (*Mediator, error) {
	a, err := newActor[MediatorKeyPairs]("mediator", opts)
	if err != nil {
		return nil, err
	}
	if keys != nil {
		if err := keys.Validate(); err != nil {
			return nil, err
		}
		a.setKeys(*keys)
	}
	return &Mediator{actor: a}, nil
}

// PendingProviders returns providers whose latest submission has not been
// confirmed, decrypted. limit <= 0 means no limit.
func (m *Mediator) PendingProviders(ctx context.Context, limit int) ([]model.DecryptedProvider, error) {
	return m.providers(ctx, api.GetPendingProviderData, limit)
}

// VerifiedProviders returns confirmed providers with the submission that
// was confirmed, decrypted.
func (m *Mediator) VerifiedProviders(ctx context.Context, limit int) ([]model.DecryptedProvider, error) {
	return m.providers(ctx, api.GetVerifiedProviderData, limit)
}

func (m *Mediator) providers(ctx context.Context, method api.Method[api.ListProvidersRequest, []model.ProviderRecord], limit int) ([]model.DecryptedProvider, error) {
	keys, err := m.currentKeys()
	if err != nil {
		return nil, err
	}
	records, err := invoke(ctx, m.actor, method, api.ListProvidersRequest{Limit: limit})
	if err != nil {
		return nil, err
	}

	decrypted := make([]model.DecryptedProvider, len(records))
	g, _ := errgroup.WithContext(ctx)
	for i := range records {
		g.Go(func() error {
			p, err := decryptProvider(&records[i], keys.ProviderData.PrivateKey)
			if err != nil {
				return err
			}
			decrypted[i] = *p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(decrypted, func(a, b model.DecryptedProvider) int {
		return cmp.Compare(a.ID, b.ID)
	})
	m.log.Debug("providers listed", zap.String("method", method.Name), zap.Int("count", len(decrypted)))
	return decrypted, nil
}

// decryptProvider opens a provider submission and checks that it was
// stored by the provider whose keys it declares.
func decryptProvider(record *model.ProviderRecord, providerDataKey crypto.JWK) (*model.DecryptedProvider, error) {
	plaintext, err := crypto.ECDHDecrypt(&record.EncryptedData, providerDataKey)
	if err != nil {
		return nil, apierrors.Crypto("decrypt", err)
	}
	var data model.ProviderData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, apierrors.Crypto("decrypt", fmt.Errorf("%w: %v", crypto.ErrInvalidPayload, err))
	}

	id, err := crypto.PublicKeyID(data.PublicKeys.Signing)
	if err != nil || id != record.ID {
		return nil, apierrors.Unexpectedf("provider %s declares signing key of another provider", record.ID)
	}
	return &model.DecryptedProvider{ID: record.ID, Data: data, Verified: record.Verified}, nil
}

// ConfirmProvider vouches for p: it signs p's full, public and key records
// and submits them.
func (m *Mediator) ConfirmProvider(ctx context.Context, p *model.DecryptedProvider) error {
	keys, err := m.currentKeys()
	if err != nil {
		return err
	}
	confirmation, err := trust.BuildConfirmation(m.suite(), keys.Signing, p.ID, &p.Data)
	if err != nil {
		return err
	}

	res, err := invoke(ctx, m.actor, api.ConfirmProvider, *confirmation)
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("confirmProvider returned %q", res)
	}
	m.log.Info("provider confirmed", zap.String("provider_id", p.ID))
	return nil
}
