// Package trust implements provider verification: the status a provider
// derives from its two snapshots and the double-signed confirmation a
// mediator issues.
package trust

import (
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
)

// Status is a provider's verification state.
type Status string

const (
	// Unverified means no mediator has confirmed the provider yet.
	Unverified Status = "UNVERIFIED"
	// Verified means the confirmed snapshot matches the submitted one.
	Verified Status = "VERIFIED"
	// Changed means the provider resubmitted data after confirmation.
	Changed Status = "CHANGED"
)

// StatusOf derives the status from the submitted snapshot and the last
// confirmed snapshot. Either may be nil.
func StatusOf(unverified, verified *model.ProviderData) Status {
	switch {
	case verified == nil:
		return Unverified
	case unverified == nil, unverified.Equal(verified):
		return Verified
	default:
		return Changed
	}
}

// BuildConfirmation signs the three views of data with the mediator's key,
// seals the confirmed record to the provider's declared encryption key with
// an ephemeral key, and signs the resulting envelope again.
func BuildConfirmation(suite *crypto.Suite, signing *crypto.KeyPair, providerID string, data *model.ProviderData) (*model.Confirmation, error) {
	if signing == nil {
		return nil, &apierrors.AuthError{Role: "mediator", Missing: "signing key"}
	}
	if data == nil || data.PublicKeys.Encryption == "" {
		return nil, apierrors.Unexpectedf("provider %s has no encryption key", providerID)
	}

	var (
		signedConfirmed *crypto.SignedData
		signedPublic    *crypto.SignedData
		signedKeyData   *crypto.SignedData
	)

	var g errgroup.Group
	g.Go(func() (err error) {
		signedConfirmed, err = suite.SignJSON(data, signing)
		return err
	})
	g.Go(func() (err error) {
		signedPublic, err = suite.SignJSON(data.Public(providerID), signing)
		return err
	})
	g.Go(func() (err error) {
		signedKeyData, err = suite.SignJSON(data.KeyData(), signing)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Crypto("sign", err)
	}

	inner, err := json.Marshal(signedConfirmed)
	if err != nil {
		return nil, fmt.Errorf("marshal confirmed data: %w", err)
	}
	envelope, _, err := suite.EphemeralECDHEncrypt(inner, data.PublicKeys.Encryption)
	if err != nil {
		return nil, apierrors.Crypto("encrypt", err)
	}
	outer, err := suite.SignJSON(envelope, signing)
	if err != nil {
		return nil, apierrors.Crypto("sign", err)
	}

	return &model.Confirmation{
		ConfirmedProviderData: *outer,
		PublicProviderData:    *signedPublic,
		SignedKeyData:         *signedKeyData,
	}, nil
}

// OpenConfirmation is the provider side of BuildConfirmation. Both
// signatures must come from the same one of mediatorKeys.
func OpenConfirmation(confirmed *crypto.SignedData, mediatorKeys []string, encryption crypto.JWK) (*model.ProviderData, error) {
	if err := crypto.Verify(mediatorKeys, confirmed); err != nil {
		return nil, apierrors.Verification("confirmed provider data", err)
	}

	var envelope crypto.ECDHData
	if err := confirmed.Decode(&envelope); err != nil {
		return nil, apierrors.Crypto("decrypt", err)
	}
	plaintext, err := crypto.ECDHDecrypt(&envelope, encryption)
	if err != nil {
		return nil, apierrors.Crypto("decrypt", err)
	}

	var inner crypto.SignedData
	if err := json.Unmarshal(plaintext, &inner); err != nil {
		return nil, apierrors.Crypto("decrypt", fmt.Errorf("%w: %v", crypto.ErrInvalidPayload, err))
	}
	if err := crypto.Verify(mediatorKeys, &inner); err != nil {
		return nil, apierrors.Verification("confirmed provider data", err)
	}
	if inner.PublicKey != confirmed.PublicKey {
		return nil, apierrors.Unexpectedf("confirmed provider data: envelope and record signed by different mediators")
	}

	var data model.ProviderData
	if err := inner.Decode(&data); err != nil {
		return nil, apierrors.Crypto("decrypt", err)
	}
	return &data, nil
}
