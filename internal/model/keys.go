package model

import "github.com/kiebitz/client-go/internal/crypto"

// MediatorKeyData is the record an admin signs with the root key to
// authorize a mediator.
type MediatorKeyData struct {
	Signing    string `json:"signing"`
	Encryption string `json:"encryption"`
}

// SystemKeys are the public keys the relay publishes. Everything except
// RootKey must be checked against a trusted root before use.
type SystemKeys struct {
	RootKey         string              `json:"rootKey"`
	TokenKey        string              `json:"tokenKey"`
	ProviderDataKey string              `json:"providerData"`
	Mediators       []crypto.SignedData `json:"mediators"`
}

// Settings are encrypted backup blobs stored under a derived id.
type Settings struct {
	ID   string         `json:"id"`
	Data crypto.AESData `json:"data"`
}
