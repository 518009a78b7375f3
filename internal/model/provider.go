package model

import (
	"reflect"

	"github.com/kiebitz/client-go/internal/crypto"
)

// ProviderPublicKeys are the public halves of a provider's key set.
type ProviderPublicKeys struct {
	Signing    string `json:"signing"`
	Encryption string `json:"encryption"`
	Data       string `json:"data"`
}

// ProviderData is the full provider record. It reaches mediators only
// encrypted to the system provider-data key.
type ProviderData struct {
	Name        string             `json:"name"`
	Street      string             `json:"street"`
	City        string             `json:"city"`
	ZipCode     string             `json:"zipCode"`
	Description string             `json:"description"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone,omitempty"`
	Website     string             `json:"website,omitempty"`
	Accessible  bool               `json:"accessible"`
	PublicKeys  ProviderPublicKeys `json:"publicKeys"`
}

// Equal reports whether p and o describe the same provider, field by field.
func (p *ProviderData) Equal(o *ProviderData) bool {
	if p == nil || o == nil {
		return p == o
	}
	return reflect.DeepEqual(*p, *o)
}

// Public returns the publishable subset of p.
func (p *ProviderData) Public(id string) PublicProviderData {
	return PublicProviderData{
		ID:          id,
		Name:        p.Name,
		Street:      p.Street,
		City:        p.City,
		ZipCode:     p.ZipCode,
		Description: p.Description,
		Website:     p.Website,
		Accessible:  p.Accessible,
	}
}

// KeyData returns the key-hash record a mediator vouches for.
func (p *ProviderData) KeyData() KeyData {
	return KeyData{
		Signing:    p.PublicKeys.Signing,
		Encryption: p.PublicKeys.Encryption,
		QueueData: QueueData{
			ZipCode:    p.ZipCode,
			Accessible: p.Accessible,
		},
	}
}

// PublicProviderData is the provider record users see. Contact details
// stay private.
type PublicProviderData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	City        string `json:"city"`
	ZipCode     string `json:"zipCode"`
	Description string `json:"description"`
	Website     string `json:"website,omitempty"`
	Accessible  bool   `json:"accessible"`
}

// QueueData routes users to providers.
type QueueData struct {
	ZipCode    string `json:"zipCode"`
	Accessible bool   `json:"accessible"`
}

// KeyData binds a provider's keys to its queue data. Mediators sign it;
// users trust a provider's appointments only through it.
type KeyData struct {
	Signing    string    `json:"signing"`
	Encryption string    `json:"encryption"`
	QueueData  QueueData `json:"queueData"`
}

// ProviderRecord is a stored provider submission as mediators list it.
type ProviderRecord struct {
	ID            string          `json:"id"`
	EncryptedData crypto.ECDHData `json:"encryptedData"`
	Verified      bool            `json:"verified"`
}

// DecryptedProvider is a ProviderRecord a mediator has opened.
type DecryptedProvider struct {
	ID       string       `json:"id"`
	Data     ProviderData `json:"data"`
	Verified bool         `json:"verified"`
}

// Confirmation is what a mediator submits to verify a provider.
type Confirmation struct {
	// ConfirmedProviderData is the mediator-signed ECDHData wrapping the
	// mediator-signed full record.
	ConfirmedProviderData crypto.SignedData `json:"confirmedProviderData"`
	// PublicProviderData is the signed public record.
	PublicProviderData crypto.SignedData `json:"publicProviderData"`
	// SignedKeyData is the signed key-hash record.
	SignedKeyData crypto.SignedData `json:"signedKeyData"`
}
