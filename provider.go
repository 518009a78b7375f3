package kiebitz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
	"github.com/kiebitz/client-go/internal/poll"
	"github.com/kiebitz/client-go/internal/store"
	"github.com/kiebitz/client-go/internal/trust"
)

// ProviderKeyPairs are a provider's keys. Data seals the provider's
// submission to the mediators; Encryption receives bookings and the
// confirmation.
type ProviderKeyPairs struct {
	Signing    *crypto.KeyPair `json:"signing"`
	Encryption *crypto.KeyPair `json:"encryption"`
	Data       *crypto.KeyPair `json:"data"`
}

// SigningKey returns the provider's signing key.
func (k ProviderKeyPairs) SigningKey() *crypto.KeyPair {
	return k.Signing
}

// Validate checks that every key pair is present and consistent.
func (k ProviderKeyPairs) Validate() error {
	if err := k.Signing.Validate(); err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	if err := k.Encryption.Validate(); err != nil {
		return fmt.Errorf("encryption key: %w", err)
	}
	if err := k.Data.Validate(); err != nil {
		return fmt.Errorf("data key: %w", err)
	}
	return nil
}

// ProviderStatus is the result of CheckData.
type ProviderStatus struct {
	Status TrustStatus
	// Unverified is the last submitted snapshot, if any.
	Unverified *model.ProviderData
	// Verified is the last snapshot a mediator confirmed, if any.
	Verified *model.ProviderData
}

// Provider publishes appointments once a mediator has confirmed it.
type Provider struct {
	*actor[ProviderKeyPairs]
}

// NewProvider creates a provider client and restores its keys from the
// store, if any.
func NewProvider(ctx context.Context, opts ...Option) (*Provider, error) {
	a, err := newActor[ProviderKeyPairs]("provider", opts)
	if err != nil {
		return nil, err
	}
	if _, err := a.loadKeys(ctx); err != nil {
		return nil, err
	}
	return &Provider{actor: a}, nil
}

// Keys returns the provider's keys, or nil.
func (p *Provider) Keys() *ProviderKeyPairs {
	keys, err := p.currentKeys()
	if err != nil {
		return nil
	}
	return &keys
}

// ID returns the provider's relay id, or "" without keys.
func (p *Provider) ID() string {
	keys, err := p.currentKeys()
	if err != nil {
		return ""
	}
	id, _ := crypto.PublicKeyID(keys.Signing.PublicKey)
	return id
}

// GenerateKeys creates and stores a new key set, replacing any previous
// one.
func (p *Provider) GenerateKeys(ctx context.Context) (*ProviderKeyPairs, error) {
	var keys ProviderKeyPairs
	var g errgroup.Group
	g.Go(func() (err error) {
		keys.Signing, err = p.suite().GenerateSigningKeyPair()
		return err
	})
	g.Go(func() (err error) {
		keys.Encryption, err = p.suite().GenerateEncryptionKeyPair()
		return err
	})
	g.Go(func() (err error) {
		keys.Data, err = p.suite().GenerateEncryptionKeyPair()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}

	if err := p.saveKeys(ctx, keys); err != nil {
		return nil, err
	}
	return &keys, nil
}

// Data returns the locally stored provider data.
func (p *Provider) Data(ctx context.Context) (*model.ProviderData, error) {
	var data model.ProviderData
	found, err := store.GetJSON(ctx, p.store(), p.key("data"), &data)
	if err != nil || !found {
		return nil, err
	}
	return &data, nil
}

// StoreData submits data for verification. The declared public keys are
// overwritten with the provider's own. The submission is sealed with the
// provider's data key to the system provider-data key, so mediators and
// the provider itself can open it.
func (p *Provider) StoreData(ctx context.Context, data model.ProviderData) error {
	keys, err := p.currentKeys()
	if err != nil {
		return err
	}
	sys, err := p.systemKeys(ctx)
	if err != nil {
		return err
	}

	data.PublicKeys = model.ProviderPublicKeys{
		Signing:    keys.Signing.PublicKey,
		Encryption: keys.Encryption.PublicKey,
		Data:       keys.Data.PublicKey,
	}
	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal provider data: %w", err)
	}
	env, err := p.suite().ECDHEncrypt(plaintext, keys.Data, sys.ProviderDataKey)
	if err != nil {
		return apierrors.Crypto("encrypt", err)
	}

	res, err := invoke(ctx, p.actor, api.StoreProviderData, api.StoreProviderDataRequest{EncryptedData: *env})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("storeProviderData returned %q", res)
	}
	return store.SetJSON(ctx, p.store(), p.key("data"), data)
}

// CheckData fetches both snapshots and derives the verification status.
// It returns a NotFoundError if nothing was submitted yet.
func (p *Provider) CheckData(ctx context.Context) (*ProviderStatus, error) {
	keys, err := p.currentKeys()
	if err != nil {
		return nil, err
	}
	res, err := invoke(ctx, p.actor, api.CheckProviderData, api.Empty{})
	if errors.Is(err, apierrors.ErrNotFound) {
		return nil, &NotFoundError{Resource: "provider data", ID: p.ID()}
	}
	if err != nil {
		return nil, err
	}
	sys, err := p.systemKeys(ctx)
	if err != nil {
		return nil, err
	}

	status := &ProviderStatus{}
	if res.UnverifiedData != nil {
		plaintext, err := crypto.ECDHDecryptFrom(res.UnverifiedData, keys.Data.PrivateKey, sys.ProviderDataKey)
		if err != nil {
			return nil, apierrors.Crypto("decrypt", err)
		}
		var data model.ProviderData
		if err := json.Unmarshal(plaintext, &data); err != nil {
			return nil, apierrors.Crypto("decrypt", fmt.Errorf("%w: %v", crypto.ErrInvalidPayload, err))
		}
		status.Unverified = &data
	}
	if res.VerifiedData != nil {
		data, err := trust.OpenConfirmation(res.VerifiedData, sys.MediatorSigningKeys(), keys.Encryption.PrivateKey)
		if err != nil {
			return nil, err
		}
		status.Verified = data
	}
	status.Status = trust.StatusOf(status.Unverified, status.Verified)
	return status, nil
}

// WaitForVerification polls CheckData with backoff until a mediator has
// confirmed the current submission, or ctx is done. Network failures are
// retried; other errors end the wait.
func (p *Provider) WaitForVerification(ctx context.Context) (*ProviderStatus, error) {
	var status *ProviderStatus
	err := poll.Until(ctx, p.cfg.polling, func(ctx context.Context) (bool, error) {
		s, err := p.CheckData(ctx)
		var netErr *NetworkError
		if errors.As(err, &netErr) {
			p.log.Debug("verification check failed, retrying", zap.Error(err))
			return false, nil
		}
		if err != nil {
			return false, err
		}
		status = s
		return s.Status == trust.Verified, nil
	})
	if err != nil {
		return status, err
	}
	return status, nil
}

// NewAppointment builds an unpublished appointment with slots slots of
// duration starting at startAt.
func (p *Provider) NewAppointment(startAt time.Time, duration time.Duration, slots int, properties map[string]string) (*model.Appointment, error) {
	keys, err := p.currentKeys()
	if err != nil {
		return nil, err
	}
	if slots < 1 {
		return nil, fmt.Errorf("appointment needs at least one slot, got %d", slots)
	}

	id, err := p.suite().RandomID()
	if err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}
	a := &model.Appointment{
		ID:         id,
		StartAt:    startAt.UTC(),
		EndAt:      startAt.Add(duration).UTC(),
		Duration:   int(duration / time.Minute),
		PublicKey:  keys.Signing.PublicKey,
		Properties: maps.Clone(properties),
		SlotData:   make([]model.Slot, slots),
	}
	for i := range a.SlotData {
		slotID, err := p.suite().RandomID()
		if err != nil {
			return nil, apierrors.Crypto("keygen", err)
		}
		a.SlotData[i] = model.Slot{ID: slotID, Open: true}
	}
	return a, nil
}

// PublishAppointments signs and publishes appointments. Appointments with
// an id the relay already has replace the old version; bookings on slots
// that no longer exist are dropped by the relay.
func (p *Provider) PublishAppointments(ctx context.Context, appointments ...model.Appointment) error {
	keys, err := p.currentKeys()
	if err != nil {
		return err
	}

	sorted := make([]model.Appointment, len(appointments))
	for i := range appointments {
		sorted[i] = appointments[i].Signable()
		sorted[i].PublicKey = keys.Signing.PublicKey
	}
	model.SortAppointments(sorted)

	signed := make([]crypto.SignedData, len(sorted))
	var g errgroup.Group
	for i := range sorted {
		g.Go(func() error {
			sd, err := p.suite().SignJSON(sorted[i], keys.Signing)
			if err != nil {
				return err
			}
			signed[i] = *sd
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return apierrors.Crypto("sign", err)
	}

	res, err := invoke(ctx, p.actor, api.PublishAppointments, api.PublishAppointmentsRequest{Appointments: signed})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("publishAppointments returned %q", res)
	}
	p.log.Debug("appointments published", zap.Int("count", len(signed)))
	return nil
}

// CancelAppointment republishes a without slots. Users holding a booking
// on it see it as canceled by the provider.
func (p *Provider) CancelAppointment(ctx context.Context, a model.Appointment) error {
	a.SlotData = []model.Slot{}
	return p.PublishAppointments(ctx, a)
}

// Appointments returns the provider's published appointments with their
// decrypted bookings, ordered by start time. A provider that is not yet
// verified gets an empty list. Bookings whose queue token does not verify
// are left out.
func (p *Provider) Appointments(ctx context.Context) ([]model.Appointment, error) {
	keys, err := p.currentKeys()
	if err != nil {
		return nil, err
	}
	records, err := invoke(ctx, p.actor, api.GetProviderAppointments, api.Empty{})
	if errors.Is(err, apierrors.ErrUnauthorized) {
		p.log.Warn("provider not verified yet, no appointments")
		return []model.Appointment{}, nil
	}
	if err != nil {
		return nil, err
	}
	sys, err := p.systemKeys(ctx)
	if err != nil {
		return nil, err
	}

	appointments := make([]model.Appointment, len(records))
	g, _ := errgroup.WithContext(ctx)
	for i := range records {
		g.Go(func() error {
			a, err := p.openAppointment(&records[i], keys, sys.TokenKey)
			if err != nil {
				return err
			}
			appointments[i] = *a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	model.SortAppointments(appointments)
	return appointments, nil
}

func (p *Provider) openAppointment(record *model.AppointmentRecord, keys ProviderKeyPairs, tokenKey string) (*model.Appointment, error) {
	var a model.Appointment
	if err := verifyDecode("appointment", []string{keys.Signing.PublicKey}, &record.SignedAppointment, &a); err != nil {
		return nil, err
	}
	a.MarkBooked(record.BookedSlots)

	for i := range record.Bookings {
		b, err := openBooking(&record.Bookings[i], keys.Encryption.PrivateKey, tokenKey)
		if err != nil {
			p.log.Warn("dropping invalid booking",
				zap.String("appointment_id", a.ID),
				zap.String("slot_id", record.Bookings[i].ID),
				zap.Error(err),
			)
			continue
		}
		a.Bookings = append(a.Bookings, *b)
	}
	return &a, nil
}

// openBooking decrypts a booking and checks that its queue token was
// issued by the relay to the key that booked.
func openBooking(eb *model.EncryptedBooking, encryption crypto.JWK, tokenKey string) (*model.Booking, error) {
	plaintext, err := crypto.ECDHDecrypt(&eb.EncryptedData, encryption)
	if err != nil {
		return nil, apierrors.Crypto("decrypt", err)
	}
	var data model.BookingData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, apierrors.Crypto("decrypt", fmt.Errorf("%w: %v", crypto.ErrInvalidPayload, err))
	}

	var token model.UserToken
	if err := verifyDecode("queue token", []string{tokenKey}, &data.SignedToken, &token); err != nil {
		return nil, err
	}
	if token.PublicKey != eb.PublicKey {
		return nil, apierrors.Unexpectedf("queue token does not belong to the booking key")
	}
	data.UserToken = token

	return &model.Booking{
		ID:        eb.ID,
		PublicKey: eb.PublicKey,
		Token:     eb.Token,
		Data:      data,
	}, nil
}
