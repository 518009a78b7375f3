package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// AESData is the symmetric envelope used for backups.
type AESData struct {
	// IV is the base64 12-byte GCM nonce.
	IV string `json:"iv"`
	// Data is the base64 ciphertext with the 16-byte tag appended.
	Data string `json:"data"`
}

// sealGCM encrypts plaintext with AES-256-GCM under key and nonce.
// Returns ciphertext || tag.
func sealGCM(key, nonce, plaintext []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nil
}

// openGCM decrypts ciphertext || tag with AES-256-GCM.
func openGCM(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}
	if len(ciphertext) < AESTagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrInvalidPayload)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// seal draws a fresh nonce for every call. Reusing a nonce under one key
// breaks GCM, so callers never pass one in.
func (s *Suite) seal(key, plaintext []byte) (iv, ciphertext []byte, err error) {
	iv, err = s.RandomBytes(AESNonceSize)
	if err != nil {
		return nil, nil, err
	}
	ciphertext, err = sealGCM(key, iv, plaintext)
	if err != nil {
		return nil, nil, err
	}
	return iv, ciphertext, nil
}

// StretchKey derives an AES-256 key from secret with PBKDF2-SHA256.
func StretchKey(secret []byte) []byte {
	return pbkdf2.Key(secret, PBKDF2Salt, PBKDF2Iterations, AESKeySize, sha256.New)
}

// AESEncrypt encrypts plaintext under a key stretched from secret.
func (s *Suite) AESEncrypt(plaintext, secret []byte) (*AESData, error) {
	iv, ciphertext, err := s.seal(StretchKey(secret), plaintext)
	if err != nil {
		return nil, err
	}
	return &AESData{IV: ToBase64(iv), Data: ToBase64(ciphertext)}, nil
}

// AESDecrypt reverses AESEncrypt.
func AESDecrypt(env *AESData, secret []byte) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrInvalidPayload)
	}
	iv, err := FromBase64(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: decode iv: %v", ErrInvalidPayload, err)
	}
	ciphertext, err := FromBase64(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data: %v", ErrInvalidPayload, err)
	}
	return openGCM(StretchKey(secret), iv, ciphertext)
}
