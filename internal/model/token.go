package model

import (
	"fmt"
	"time"

	"github.com/kiebitz/client-go/internal/crypto"
)

// ContactData is what a user hashes into a queue token. It never leaves
// the user's device unhashed.
type ContactData struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Code  string `json:"code,omitempty"`
}

// UserToken is the token content the relay signs with the system token key.
type UserToken struct {
	Version    string    `json:"version"`
	PublicKey  string    `json:"publicKey"`
	Encryption string    `json:"encryption"`
	ZipCode    string    `json:"zipCode"`
	DataHash   string    `json:"dataHash"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// TokenKeyPairs are the keys a user generates for one queue token.
type TokenKeyPairs struct {
	Signing    *crypto.KeyPair `json:"signing"`
	Encryption *crypto.KeyPair `json:"encryption"`
}

// UserQueueToken is the user's capability: holding it is being the user
// who obtained it.
type UserQueueToken struct {
	KeyPairs    TokenKeyPairs     `json:"keyPairs"`
	SignedToken crypto.SignedData `json:"signedToken"`
	UserToken   UserToken         `json:"userToken"`
	HashNonce   string            `json:"hashNonce"`
	DataHash    string            `json:"dataHash"`
}

// TokenVersion is stamped into every user token.
const TokenVersion = "0.3"

// SigningKey returns the key that signs booking requests.
func (k TokenKeyPairs) SigningKey() *crypto.KeyPair {
	return k.Signing
}

// Validate checks that both key pairs are present and consistent.
func (k TokenKeyPairs) Validate() error {
	if err := k.Signing.Validate(); err != nil {
		return fmt.Errorf("signing key: %w", err)
	}
	if err := k.Encryption.Validate(); err != nil {
		return fmt.Errorf("encryption key: %w", err)
	}
	return nil
}
