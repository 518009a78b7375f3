// Package relay is an in-memory Kiebitz relay for development and tests.
//
// It implements the JSON-RPC method catalogue of package api with the
// checks a real deployment performs: signed calls are authenticated by
// their embedded key and timestamp, mediator calls must come from a
// root-authorized mediator, bookings need a queue token signed by the
// system token key, and a token books at most one slot at a time.
//
// The relay only ever sees ciphertext and signed records. It holds the
// token signing key because issuing queue tokens is its job.
package relay

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kiebitz/client-go/internal/crypto"
	"github.com/kiebitz/client-go/internal/model"
)

// DefaultMaxSkew bounds how far a signed request's timestamp may be from
// the relay clock.
const DefaultMaxSkew = 5 * time.Minute

// Config configures a Relay.
type Config struct {
	// RootKey is the admin's public root signing key. Required.
	RootKey string
	// TokenKey signs queue tokens. Required, including the private half.
	TokenKey *crypto.KeyPair
	// ProviderDataKey is the public key providers encrypt their data to.
	// Required.
	ProviderDataKey string
	// MaxSkew is the accepted timestamp drift. Default: 5m. Negative
	// disables the check.
	MaxSkew time.Duration
	// Suite signs tokens and supplies the clock. Default: crypto.DefaultSuite().
	Suite *crypto.Suite
	// Logger receives one line per request. Default: no-op.
	Logger *zap.Logger
}

// Relay is the in-memory backend. It is safe for concurrent use.
type Relay struct {
	rootKey         string
	tokenKey        *crypto.KeyPair
	providerDataKey string
	maxSkew         time.Duration
	suite           *crypto.Suite
	logger          *zap.Logger

	mu           sync.RWMutex
	mediators    []crypto.SignedData
	providers    map[string]*providerEntry
	appointments map[string]map[string]*appointmentEntry // provider id -> appointment id
	tokens       map[string]bookingRef                   // token public key -> booking
	settings     map[string]crypto.AESData
}

type providerEntry struct {
	unverified *crypto.ECDHData
	pending    bool

	// Set by confirmProvider.
	verifiedData *crypto.ECDHData
	confirmed    *crypto.SignedData
	public       crypto.SignedData
	keyData      crypto.SignedData
	queue        model.QueueData
}

func (p *providerEntry) verified() bool {
	return p.confirmed != nil
}

type appointmentEntry struct {
	signed      crypto.SignedData
	appointment model.Appointment
	bookings    map[string]model.EncryptedBooking // slot id -> booking
}

type bookingRef struct {
	providerID    string
	appointmentID string
	slotID        string
}

// New creates an empty relay.
func New(cfg Config) (*Relay, error) {
	if cfg.RootKey == "" {
		return nil, errors.New("relay: root key is required")
	}
	if cfg.ProviderDataKey == "" {
		return nil, errors.New("relay: provider data key is required")
	}
	if err := cfg.TokenKey.Validate(); err != nil {
		return nil, errors.New("relay: token key pair is required")
	}

	maxSkew := cfg.MaxSkew
	if maxSkew == 0 {
		maxSkew = DefaultMaxSkew
	}
	suite := cfg.Suite
	if suite == nil {
		suite = crypto.DefaultSuite()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Relay{
		rootKey:         cfg.RootKey,
		tokenKey:        cfg.TokenKey,
		providerDataKey: cfg.ProviderDataKey,
		maxSkew:         maxSkew,
		suite:           suite,
		logger:          logger,
	}
	r.reset()
	return r, nil
}

// reset drops all state except the system keys. Callers hold mu, or own r
// exclusively.
func (r *Relay) reset() {
	r.mediators = nil
	r.providers = make(map[string]*providerEntry)
	r.appointments = make(map[string]map[string]*appointmentEntry)
	r.tokens = make(map[string]bookingRef)
	r.settings = make(map[string]crypto.AESData)
}

// isMediator reports whether key is a signing key the root has authorized.
// Callers hold mu.
func (r *Relay) isMediator(key string) bool {
	for i := range r.mediators {
		var kd model.MediatorKeyData
		if err := r.mediators[i].Decode(&kd); err != nil {
			continue
		}
		if kd.Signing == key {
			return true
		}
	}
	return false
}

func (r *Relay) checkTimestamp(ts time.Time) error {
	if r.maxSkew < 0 {
		return nil
	}
	if ts.IsZero() {
		return unauthorized("missing timestamp")
	}
	drift := r.suite.Now().Sub(ts)
	if drift < 0 {
		drift = -drift
	}
	if drift > r.maxSkew {
		return unauthorized("stale request")
	}
	return nil
}
