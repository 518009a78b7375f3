package kiebitz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/apierrors"
	"github.com/kiebitz/client-go/internal/booking"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
	"github.com/kiebitz/client-go/internal/store"
)

// SearchQuery selects appointments. From and To bound the start time; a
// zero bound is open.
type SearchQuery struct {
	ZipCode string
	Radius  int
	From    time.Time
	To      time.Time
}

// User books appointments with a queue token.
type User struct {
	*actor[model.TokenKeyPairs]
}

// NewUser creates a user client and restores its queue token from the
// store, if any.
func NewUser(ctx context.Context, opts ...Option) (*User, error) {
	a, err := newActor[model.TokenKeyPairs]("user", opts)
	if err != nil {
		return nil, err
	}
	u := &User{actor: a}

	token, err := u.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token != nil {
		if err := a.restoreKeys(token.KeyPairs); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Keys returns the keys of the current queue token, or nil.
func (u *User) Keys() *model.TokenKeyPairs {
	keys, err := u.currentKeys()
	if err != nil {
		return nil
	}
	return &keys
}

// Token returns the stored queue token, or nil.
func (u *User) Token(ctx context.Context) (*model.UserQueueToken, error) {
	var token model.UserQueueToken
	found, err := store.GetJSON(ctx, u.store(), u.key("token"), &token)
	if err != nil || !found {
		return nil, err
	}
	return &token, nil
}

func (u *User) requireToken(ctx context.Context) (*model.UserQueueToken, error) {
	token, err := u.Token(ctx)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, &AuthError{Role: u.role, Missing: "queue token"}
	}
	return token, nil
}

// Booking returns the stored booking, or nil.
func (u *User) Booking(ctx context.Context) (*model.UserBooking, error) {
	var b model.UserBooking
	found, err := store.GetJSON(ctx, u.store(), u.key("booking"), &b)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

// GetToken obtains a queue token for contact. The relay only sees a salted
// hash of the contact data. Fresh token keys are generated every time and
// replace any previous token.
func (u *User) GetToken(ctx context.Context, contact model.ContactData, zipCode string) (*model.UserQueueToken, error) {
	var keys model.TokenKeyPairs
	var g errgroup.Group
	g.Go(func() (err error) {
		keys.Signing, err = u.suite().GenerateSigningKeyPair()
		return err
	})
	g.Go(func() (err error) {
		keys.Encryption, err = u.suite().GenerateEncryptionKeyPair()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}

	nonce, err := u.suite().RandomBytes(32)
	if err != nil {
		return nil, apierrors.Crypto("keygen", err)
	}
	hashNonce := crypto.ToBase64(nonce)
	dataHash, err := contactHash(contact, hashNonce)
	if err != nil {
		return nil, err
	}

	signed, err := api.GetToken.Invoke(ctx, u.cfg.transport, api.GetTokenRequest{
		Hash:       dataHash,
		PublicKey:  keys.Signing.PublicKey,
		Encryption: keys.Encryption.PublicKey,
		ZipCode:    zipCode,
		Code:       contact.Code,
	}, nil)
	if err != nil {
		return nil, err
	}

	sys, err := u.systemKeys(ctx)
	if err != nil {
		return nil, err
	}
	var token model.UserToken
	if err := verifyDecode("queue token", []string{sys.TokenKey}, &signed, &token); err != nil {
		return nil, err
	}
	if token.PublicKey != keys.Signing.PublicKey || token.DataHash != dataHash {
		return nil, apierrors.Unexpectedf("relay issued a token for different data")
	}

	qt := &model.UserQueueToken{
		KeyPairs:    keys,
		SignedToken: signed,
		UserToken:   token,
		HashNonce:   hashNonce,
		DataHash:    dataHash,
	}
	if err := store.SetJSON(ctx, u.store(), u.key("token"), qt); err != nil {
		return nil, err
	}
	if err := store.SetJSON(ctx, u.store(), u.key("contact"), contact); err != nil {
		return nil, err
	}
	u.setKeys(keys)
	u.log.Debug("queue token obtained", zap.String("zip_code", zipCode))
	return qt, nil
}

// contactHash binds contact data to a random nonce so the relay cannot
// match hashes against guessed contact data.
func contactHash(contact model.ContactData, nonce string) (string, error) {
	data, err := json.Marshal(struct {
		Contact model.ContactData `json:"contact"`
		Nonce   string            `json:"nonce"`
	}{contact, nonce})
	if err != nil {
		return "", fmt.Errorf("marshal contact data: %w", err)
	}
	return crypto.Hash(data), nil
}

// Appointments searches published appointments. Every provider must be
// vouched for by a root-authorized mediator and every appointment signed
// by the provider's vouched key; otherwise the search fails. Results are
// ordered by start time.
func (u *User) Appointments(ctx context.Context, q SearchQuery) ([]model.Appointment, error) {
	results, err := api.GetAppointmentsByZipCode.Invoke(ctx, u.cfg.transport, api.GetAppointmentsByZipCodeRequest{
		ZipCode: q.ZipCode,
		Radius:  q.Radius,
		From:    q.From,
		To:      q.To,
	}, nil)
	if err != nil {
		return nil, err
	}
	sys, err := u.systemKeys(ctx)
	if err != nil {
		return nil, err
	}
	mediators := sys.MediatorSigningKeys()

	perProvider := make([][]model.Appointment, len(results))
	g, _ := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			_, appointments, err := openProviderAppointments(&results[i], mediators)
			if err != nil {
				return err
			}
			perProvider[i] = appointments
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Appointment
	for _, as := range perProvider {
		all = append(all, as...)
	}
	model.SortAppointments(all)
	return all, nil
}

// Appointment fetches one appointment with its verified provider record.
func (u *User) Appointment(ctx context.Context, providerID, appointmentID string) (*model.Appointment, error) {
	a, _, err := u.appointment(ctx, providerID, appointmentID)
	return a, err
}

func (u *User) appointment(ctx context.Context, providerID, appointmentID string) (*model.Appointment, *model.KeyData, error) {
	pa, err := api.GetAppointment.Invoke(ctx, u.cfg.transport, api.GetAppointmentRequest{
		ID:         appointmentID,
		ProviderID: providerID,
	}, nil)
	if errors.Is(err, apierrors.ErrNotFound) {
		return nil, nil, &NotFoundError{Resource: "appointment", ID: appointmentID}
	}
	if err != nil {
		return nil, nil, err
	}
	sys, err := u.systemKeys(ctx)
	if err != nil {
		return nil, nil, err
	}

	kd, appointments, err := openProviderAppointments(&pa, sys.MediatorSigningKeys())
	if err != nil {
		return nil, nil, err
	}
	if len(appointments) != 1 || appointments[0].ID != appointmentID {
		return nil, nil, apierrors.Unexpectedf("relay returned the wrong appointment for %s", appointmentID)
	}
	if appointments[0].Provider.ID != providerID {
		return nil, nil, apierrors.Unexpectedf("relay returned appointment %s of provider %s", appointmentID, appointments[0].Provider.ID)
	}
	return &appointments[0], kd, nil
}

// Book books a free slot of the appointment with the stored queue token.
// The booking is sealed with an ephemeral key to the provider encryption
// key a mediator vouched for. A token that already holds a booking yields
// a DoubleBookingError.
func (u *User) Book(ctx context.Context, providerID, appointmentID string) (*model.UserBooking, error) {
	token, err := u.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	a, kd, err := u.appointment(ctx, providerID, appointmentID)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(model.BookingData{SignedToken: token.SignedToken, UserToken: token.UserToken})
	if err != nil {
		return nil, fmt.Errorf("marshal booking data: %w", err)
	}
	env, _, err := u.suite().EphemeralECDHEncrypt(plaintext, kd.Encryption)
	if err != nil {
		return nil, apierrors.Crypto("encrypt", err)
	}

	res, err := invoke(ctx, u.actor, api.BookAppointment, api.BookAppointmentRequest{
		ProviderID:      providerID,
		ID:              appointmentID,
		SignedTokenData: token.SignedToken,
		EncryptedData:   *env,
	})
	if err != nil {
		return nil, booking.ClassifyBookingError(appointmentID, err)
	}
	if _, ok := a.Slot(res.SlotID); !ok {
		return nil, apierrors.Unexpectedf("relay booked unknown slot %s", res.SlotID)
	}

	b := &model.UserBooking{
		ProviderID:    providerID,
		AppointmentID: appointmentID,
		SlotID:        res.SlotID,
		StartAt:       a.StartAt,
	}
	if err := store.SetJSON(ctx, u.store(), u.key("booking"), b); err != nil {
		return nil, err
	}
	u.log.Info("appointment booked", zap.String("appointment_id", appointmentID))
	return b, nil
}

// CancelBooking gives the booked slot back. The local booking record is
// kept so BookingStatus reports the cancellation.
func (u *User) CancelBooking(ctx context.Context) error {
	token, err := u.requireToken(ctx)
	if err != nil {
		return err
	}
	b, err := u.Booking(ctx)
	if err != nil {
		return err
	}
	if b == nil {
		return &AuthError{Role: u.role, Missing: "booking"}
	}

	res, err := invoke(ctx, u.actor, api.CancelBooking, api.CancelBookingRequest{
		ProviderID:      b.ProviderID,
		ID:              b.AppointmentID,
		SignedTokenData: token.SignedToken,
	})
	if err != nil {
		return err
	}
	if res != api.OK {
		return apierrors.Unexpectedf("cancelBooking returned %q", res)
	}
	return nil
}

// BookingStatus checks the stored booking against the current appointment.
// Without a booking the status is BookingUnknown. An appointment that no
// longer exists counts as canceled by the provider.
func (u *User) BookingStatus(ctx context.Context) (BookingStatus, error) {
	b, err := u.Booking(ctx)
	if err != nil {
		return booking.Unknown, err
	}
	if b == nil {
		return booking.Unknown, nil
	}

	a, err := u.Appointment(ctx, b.ProviderID, b.AppointmentID)
	if errors.Is(err, apierrors.ErrNotFound) {
		return booking.ProviderCanceled, nil
	}
	if err != nil {
		return booking.Unknown, err
	}
	return booking.BookingStatusOf(a, b.SlotID), nil
}
