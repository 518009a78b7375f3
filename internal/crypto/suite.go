package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// Suite is the crypto capability handed to every operation that needs
// randomness or a clock. Verification and decryption need neither and are
// plain functions.
//
// The zero value is not usable; use NewSuite or DefaultSuite.
type Suite struct {
	rand io.Reader
	now  func() time.Time
}

// SuiteOption configures a Suite.
type SuiteOption func(*Suite)

// WithClock overrides the clock used to timestamp signed requests.
func WithClock(now func() time.Time) SuiteOption {
	return func(s *Suite) {
		s.now = now
	}
}

// NewSuite returns a Suite drawing randomness from r. A nil reader selects
// crypto/rand.
func NewSuite(r io.Reader, opts ...SuiteOption) *Suite {
	if r == nil {
		r = rand.Reader
	}
	s := &Suite{rand: r, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSuite returns a Suite backed by crypto/rand and the wall clock.
func DefaultSuite() *Suite {
	return NewSuite(nil)
}

// Now returns the suite's current time in UTC.
func (s *Suite) Now() time.Time {
	return s.now().UTC()
}

// RandomBytes returns n bytes from the suite's random source.
func (s *Suite) RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// RandomID returns a random 32-byte identifier as hex.
func (s *Suite) RandomID() (string, error) {
	b, err := s.RandomBytes(32)
	if err != nil {
		return "", err
	}
	return ToHex(b), nil
}

// NewSecret returns a fresh human-readable secret (grouped base32).
func (s *Suite) NewSecret() (string, error) {
	b, err := s.RandomBytes(SecretSize)
	if err != nil {
		return "", err
	}
	return FormatSecret(ToBase32(b)), nil
}
