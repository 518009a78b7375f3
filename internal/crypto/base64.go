package crypto

import (
	"encoding/base64"
	"encoding/hex"
)

// ToBase64 encodes bytes to standard base64 with padding.
// Every binary field on the wire (keys, IVs, ciphertexts, signatures) uses it.
func ToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// FromBase64 decodes standard base64 (with padding) to bytes.
func FromBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// ToBase64URL encodes bytes to URL-safe base64 without padding, as required
// for JWK coordinates.
func ToBase64URL(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// FromBase64URL decodes URL-safe base64 without padding.
func FromBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(s)
}

// DecodeBase64 accepts any of the four base64 alphabets. Records produced by
// other clients are not always strict about padding, so readers use this
// where the field is not part of a signature.
func DecodeBase64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}

// ToHex encodes bytes as lowercase hex. Record identifiers use it.
func ToHex(data []byte) string {
	return hex.EncodeToString(data)
}
