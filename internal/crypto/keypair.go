package crypto

import (
	"crypto/ecdh"
	"crypto/sha256"
	"fmt"
)

// KeyPair is a P-256 key pair as it is persisted and exchanged: the public
// half as base64 SPKI, the private half as a JWK. The private half never
// leaves the actor that generated it.
type KeyPair struct {
	// PublicKey is the base64-encoded SPKI public key.
	PublicKey string `json:"publicKey"`
	// PrivateKey is the JWK private key.
	PrivateKey JWK `json:"privateKey"`
}

// GenerateSigningKeyPair creates a new ECDSA P-256 key pair.
func (s *Suite) GenerateSigningKeyPair() (*KeyPair, error) {
	return s.generateKeyPair("sign")
}

// GenerateEncryptionKeyPair creates a new ECDH P-256 key pair.
func (s *Suite) GenerateEncryptionKeyPair() (*KeyPair, error) {
	return s.generateKeyPair("deriveKey")
}

// ECDSA and ECDH P-256 keys share a representation; only the declared
// key operations differ.
func (s *Suite) generateKeyPair(op string) (*KeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(s.rand)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	pub, err := marshalSPKI(priv.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("%w: export public key: %v", ErrKeyGeneration, err)
	}
	jwk, err := jwkFromECDH(priv, op)
	if err != nil {
		return nil, fmt.Errorf("%w: export private key: %v", ErrKeyGeneration, err)
	}
	return &KeyPair{
		PublicKey:  pub,
		PrivateKey: jwk,
	}, nil
}

// Validate checks that both halves parse and belong together.
func (kp *KeyPair) Validate() error {
	if kp == nil {
		return fmt.Errorf("%w: nil key pair", ErrInvalidPrivateKey)
	}
	priv, err := ecdhPrivateKey(kp.PrivateKey)
	if err != nil {
		return err
	}
	pub, err := ecdhPublicKey(kp.PublicKey)
	if err != nil {
		return err
	}
	if !pub.Equal(priv.PublicKey()) {
		return fmt.Errorf("%w: public key does not match private key", ErrInvalidPrivateKey)
	}
	return nil
}

// Public returns a copy of the key pair with the private half removed.
func (kp *KeyPair) Public() KeyPair {
	return KeyPair{PublicKey: kp.PublicKey}
}

// PublicKeyID returns the hex SHA-256 of the public key's SPKI bytes. It is
// the stable, non-reversible identifier of an actor on the relay.
func PublicKeyID(publicKey string) (string, error) {
	der, err := DecodeBase64(publicKey)
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrInvalidPublicKey, err)
	}
	sum := sha256.Sum256(der)
	return ToHex(sum[:]), nil
}

// Hash returns the base64 SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return ToBase64(sum[:])
}
