package kiebitz

import (
	"context"

	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
)

// SystemKeys are the relay's published keys after the mediator list has
// been checked against the root key.
type SystemKeys struct {
	RootKey         string
	TokenKey        string
	ProviderDataKey string
	// Mediators are the root-signed mediator keys, in relay order.
	Mediators []model.MediatorKeyData
}

// MediatorSigningKeys returns the signing keys of all trusted mediators.
func (k *SystemKeys) MediatorSigningKeys() []string {
	keys := make([]string, len(k.Mediators))
	for i, m := range k.Mediators {
		keys[i] = m.Signing
	}
	return keys
}

// systemKeys fetches the system keys and keeps only mediators the root key
// has signed. A pinned root key must match; otherwise the relay's root key
// is trusted and a warning is logged once.
func (a *actor[K]) systemKeys(ctx context.Context) (*SystemKeys, error) {
	raw, err := invoke(ctx, a, api.GetKeys, api.Empty{})
	if err != nil {
		return nil, err
	}
	if raw.RootKey == "" {
		return nil, apierrors.Unexpectedf("relay did not publish a root key")
	}

	switch pinned := a.cfg.rootKey; {
	case pinned == "":
		a.tofu.Do(func() {
			a.log.Warn("trusting relay root key on first use; pin it with WithRootKey",
				zap.String("root_key_id", keyID(raw.RootKey)))
		})
	case pinned != raw.RootKey:
		return nil, apierrors.Unexpectedf("relay root key %s does not match the pinned root key", keyID(raw.RootKey))
	}

	keys := &SystemKeys{
		RootKey:         raw.RootKey,
		TokenKey:        raw.TokenKey,
		ProviderDataKey: raw.ProviderDataKey,
	}
	for i := range raw.Mediators {
		sd := &raw.Mediators[i]
		if err := crypto.Verify([]string{raw.RootKey}, sd); err != nil {
			a.log.Warn("ignoring mediator key not signed by root", zap.Int("index", i))
			continue
		}
		var m model.MediatorKeyData
		if err := sd.Decode(&m); err != nil {
			a.log.Warn("ignoring malformed mediator key", zap.Int("index", i), zap.Error(err))
			continue
		}
		keys.Mediators = append(keys.Mediators, m)
	}
	return keys, nil
}

// keyID shortens a public key for logs and messages.
func keyID(publicKey string) string {
	id, err := crypto.PublicKeyID(publicKey)
	if err != nil {
		return "invalid"
	}
	return id[:16]
}

// verifyDecode checks sd against trusted and decodes it into dst.
func verifyDecode(what string, trusted []string, sd *crypto.SignedData, dst any) error {
	if err := crypto.Verify(trusted, sd); err != nil {
		return apierrors.Verification(what, err)
	}
	if err := sd.Decode(dst); err != nil {
		return apierrors.Crypto("decrypt", err)
	}
	return nil
}

// openProviderAppointments verifies a provider bundle: the key data and
// public record must be signed by a mediator and describe the same
// provider, the appointments must be signed by the key the key data vouches
// for.
func openProviderAppointments(pa *model.ProviderAppointments, mediators []string) (*model.KeyData, []model.Appointment, error) {
	var kd model.KeyData
	if err := verifyDecode("provider key data", mediators, &pa.KeyData, &kd); err != nil {
		return nil, nil, err
	}
	var public model.PublicProviderData
	if err := verifyDecode("public provider data", mediators, &pa.Provider, &public); err != nil {
		return nil, nil, err
	}
	// Both records are mediator-signed on their own; they must also name
	// the same provider.
	id, err := crypto.PublicKeyID(kd.Signing)
	if err != nil {
		return nil, nil, apierrors.Unexpectedf("provider key data has an invalid signing key: %v", err)
	}
	if public.ID != id {
		return nil, nil, apierrors.Unexpectedf("public provider data %s does not belong to key data %s", public.ID, id)
	}

	appointments := make([]model.Appointment, 0, len(pa.Appointments))
	for i := range pa.Appointments {
		record := &pa.Appointments[i]
		var a model.Appointment
		if err := verifyDecode("appointment", []string{kd.Signing}, &record.SignedAppointment, &a); err != nil {
			return nil, nil, err
		}
		a.MarkBooked(record.BookedSlots)
		p := public
		a.Provider = &p
		appointments = append(appointments, a)
	}
	return &kd, appointments, nil
}
