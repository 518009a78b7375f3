package crypto

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"math/big"

	jose "github.com/go-jose/go-jose/v4"
)

// JWK is the JSON Web Key form of a P-256 private key, as exported by
// browser WebCrypto. Key material is encoded and checked by go-jose; Ext and
// KeyOps are the WebCrypto attributes go-jose does not model.
type JWK struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
	D      string   `json:"d,omitempty"`
	Ext    bool     `json:"ext,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
}

// IsZero reports whether the JWK carries no key material.
func (j JWK) IsZero() bool {
	return j.D == "" && j.X == "" && j.Y == ""
}

// jwkFromECDH exports an ECDH private key as a JWK.
func jwkFromECDH(priv *ecdh.PrivateKey, ops ...string) (JWK, error) {
	raw, err := jose.JSONWebKey{Key: ecdsaFromECDH(priv)}.MarshalJSON()
	if err != nil {
		return JWK{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	var j JWK
	if err := json.Unmarshal(raw, &j); err != nil {
		return JWK{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	j.Ext = true
	j.KeyOps = ops
	return j, nil
}

// ecdsaFromECDH converts an ECDH P-256 key to its ECDSA form.
func ecdsaFromECDH(priv *ecdh.PrivateKey) *ecdsa.PrivateKey {
	// Uncompressed point: 0x04 || X || Y
	point := priv.PublicKey().Bytes()
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1 : 1+CoordinateSize]),
			Y:     new(big.Int).SetBytes(point[1+CoordinateSize:]),
		},
		D: new(big.Int).SetBytes(priv.Bytes()),
	}
}

// signingPrivateKey parses the JWK as an ECDSA P-256 private key. The
// public coordinates must be on the curve and must match the scalar.
func signingPrivateKey(j JWK) (*ecdsa.PrivateKey, error) {
	if j.Kty != "EC" || j.Crv != CurveName {
		return nil, fmt.Errorf("%w: unsupported key type %q/%q", ErrInvalidPrivateKey, j.Kty, j.Crv)
	}
	if j.D == "" {
		return nil, fmt.Errorf("%w: missing d", ErrInvalidPrivateKey)
	}
	raw, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	var key jose.JSONWebKey
	if err := key.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	priv, ok := key.Key.(*ecdsa.PrivateKey)
	if !ok || !key.Valid() {
		return nil, fmt.Errorf("%w: not an EC private key", ErrInvalidPrivateKey)
	}

	derived, err := priv.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	declared, err := priv.PublicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	if !derived.PublicKey().Equal(declared) {
		return nil, fmt.Errorf("%w: public coordinates do not match d", ErrInvalidPrivateKey)
	}
	return priv, nil
}

// ecdhPrivateKey parses the JWK as a P-256 ECDH private key.
func ecdhPrivateKey(j JWK) (*ecdh.PrivateKey, error) {
	priv, err := signingPrivateKey(j)
	if err != nil {
		return nil, err
	}
	key, err := priv.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// parseSPKI decodes a base64 SPKI public key and insists on P-256.
func parseSPKI(publicKey string) (*ecdsa.PublicKey, error) {
	der, err := DecodeBase64(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidPublicKey, err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok || pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: not a P-256 key", ErrInvalidPublicKey)
	}
	return pub, nil
}

// ecdhPublicKey parses a base64 SPKI public key for key agreement.
func ecdhPublicKey(publicKey string) (*ecdh.PublicKey, error) {
	pub, err := parseSPKI(publicKey)
	if err != nil {
		return nil, err
	}
	ecdhPub, err := pub.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return ecdhPub, nil
}

// marshalSPKI encodes a public key as base64 SPKI.
func marshalSPKI(pub any) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return ToBase64(der), nil
}
