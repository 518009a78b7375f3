package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey derives length bytes from secret with HKDF-SHA-256.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)

	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	return key, nil
}

// DeriveSecrets derives count independent base64 secrets of byteLength
// bytes each from secret. Output i uses info = decimal(i) under the fixed
// public salt, so the same secret always yields the same list. Backups are
// addressed by these values; the relay never sees anything linkable to the
// secret itself.
func DeriveSecrets(secret []byte, byteLength, count int) ([]string, error) {
	if byteLength <= 0 || count < 0 {
		return nil, fmt.Errorf("derive secrets: invalid length %d or count %d", byteLength, count)
	}
	secrets := make([]string, count)
	for i := range secrets {
		key, err := DeriveKey(secret, HKDFSalt, []byte(strconv.Itoa(i)), byteLength)
		if err != nil {
			return nil, err
		}
		secrets[i] = ToBase64(key)
	}
	return secrets, nil
}
