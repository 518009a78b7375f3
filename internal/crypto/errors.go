package crypto

import "errors"

var (
	// ErrKeyGeneration is returned when a key pair cannot be produced or exported.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrInvalidPublicKey is returned when a base64 SPKI public key cannot be
	// parsed as a P-256 key.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidPrivateKey is returned when a JWK does not describe a usable
	// P-256 private key.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrVerificationFailed is returned when no candidate key verifies a
	// signed envelope.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrDecryptionFailed is returned when an AES-GCM open fails, either
	// because the key is wrong or the ciphertext was modified.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidKeySize is returned when the AES key size is invalid.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrInvalidNonceSize is returned when the nonce size is invalid.
	ErrInvalidNonceSize = errors.New("invalid nonce size")

	// ErrInvalidPayload is returned when an envelope is structurally invalid:
	// missing fields, bad base64, or a truncated ciphertext.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrInvalidSecret is returned when a human-readable secret cannot be decoded.
	ErrInvalidSecret = errors.New("invalid secret")
)
