package kiebitz

import (
	"io"

	"github.com/kiebitz/client-go/internal/api"
	"github.com/kiebitz/client-go/internal/booking"
	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
	"github.com/kiebitz/client-go/internal/store"
	"github.com/kiebitz/client-go/internal/trust"
)

// Records.
type (
	KeyPair            = crypto.KeyPair
	SignedData         = crypto.SignedData
	ECDHData           = crypto.ECDHData
	AESData            = crypto.AESData
	ProviderData       = model.ProviderData
	PublicProviderData = model.PublicProviderData
	DecryptedProvider  = model.DecryptedProvider
	Appointment        = model.Appointment
	Slot               = model.Slot
	Booking            = model.Booking
	ContactData        = model.ContactData
	UserQueueToken     = model.UserQueueToken
	UserBooking        = model.UserBooking
	UserKeyPairs       = model.TokenKeyPairs
)

// Suite supplies randomness and the clock to every crypto operation.
type Suite = crypto.Suite

// NewSuite returns a Suite reading randomness from r. A nil r selects
// crypto/rand.
func NewSuite(r io.Reader) *Suite {
	return crypto.NewSuite(r)
}

// Transport carries JSON-RPC calls to the relay.
type Transport = api.Transport

// Store keeps role state.
type Store = store.Store

// NewMemoryStore returns an in-memory Store.
func NewMemoryStore() Store {
	return store.NewMemory()
}

// OpenStore opens a SQL-backed Store. See store.Open for the DSN format.
func OpenStore(dsn string) (*store.SQL, error) {
	return store.Open(dsn)
}

// TrustStatus is a provider's verification state.
type TrustStatus = trust.Status

const (
	Unverified = trust.Unverified
	Verified   = trust.Verified
	Changed    = trust.Changed
)

// AppointmentStatus is derived from an appointment's slots and bookings.
type AppointmentStatus = booking.AppointmentStatus

const (
	AppointmentOpen     = booking.Open
	AppointmentCanceled = booking.Canceled
	AppointmentFull     = booking.Full
	AppointmentBookings = booking.Bookings
)

// AppointmentStatusOf classifies a provider's appointment with its
// attached bookings.
func AppointmentStatusOf(a *Appointment) (AppointmentStatus, error) {
	return booking.StatusOf(a)
}

// BookingStatus is what a user learns about a held booking.
type BookingStatus = booking.BookingStatus

const (
	BookingValid            = booking.Valid
	BookingUserCanceled     = booking.UserCanceled
	BookingProviderCanceled = booking.ProviderCanceled
	BookingUnknown          = booking.Unknown
)

// GenerateSecret returns a fresh human-readable secret for backups.
func GenerateSecret(suite *Suite) (string, error) {
	if suite == nil {
		suite = crypto.DefaultSuite()
	}
	return suite.NewSecret()
}
