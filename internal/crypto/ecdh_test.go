package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func mustEncryptionKeyPair(t testing.TB, s *Suite) *KeyPair {
	t.Helper()
	kp, err := s.GenerateEncryptionKeyPair()
	if err != nil {
		t.Fatalf("GenerateEncryptionKeyPair() error = %v", err)
	}
	return kp
}

func TestECDHEncrypt_RoundTrip(t *testing.T) {
	suite := DefaultSuite()
	sender := mustEncryptionKeyPair(t, suite)
	recipient := mustEncryptionKeyPair(t, suite)
	plaintext := []byte(`{"name":"Praxis Dr. Muster"}`)

	env, err := suite.ECDHEncrypt(plaintext, sender, recipient.PublicKey)
	if err != nil {
		t.Fatalf("ECDHEncrypt() error = %v", err)
	}
	if env.PublicKey != sender.PublicKey {
		t.Errorf("PublicKey = %q, want sender key", env.PublicKey)
	}

	got, err := ECDHDecrypt(env, recipient.PrivateKey)
	if err != nil {
		t.Fatalf("ECDHDecrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("ECDHDecrypt() = %q, want %q", got, plaintext)
	}
}

func TestECDHDecryptFrom_SenderReopens(t *testing.T) {
	suite := DefaultSuite()
	sender := mustEncryptionKeyPair(t, suite)
	recipient := mustEncryptionKeyPair(t, suite)
	plaintext := []byte("snapshot")

	env, err := suite.ECDHEncrypt(plaintext, sender, recipient.PublicKey)
	if err != nil {
		t.Fatalf("ECDHEncrypt() error = %v", err)
	}

	got, err := ECDHDecryptFrom(env, sender.PrivateKey, recipient.PublicKey)
	if err != nil {
		t.Fatalf("ECDHDecryptFrom() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("ECDHDecryptFrom() = %q, want %q", got, plaintext)
	}
}

func TestEphemeralECDHEncrypt(t *testing.T) {
	suite := DefaultSuite()
	recipient := mustEncryptionKeyPair(t, suite)
	plaintext := []byte("booking")

	env, ephemeral, err := suite.EphemeralECDHEncrypt(plaintext, recipient.PublicKey)
	if err != nil {
		t.Fatalf("EphemeralECDHEncrypt() error = %v", err)
	}
	if ephemeral.IsZero() {
		t.Error("ephemeral private key is empty")
	}
	if env.PublicKey == recipient.PublicKey {
		t.Error("envelope carries the recipient key instead of the ephemeral key")
	}

	got, err := ECDHDecrypt(env, recipient.PrivateKey)
	if err != nil {
		t.Fatalf("ECDHDecrypt() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("ECDHDecrypt() = %q, want %q", got, plaintext)
	}

	again, _, err := suite.EphemeralECDHEncrypt(plaintext, recipient.PublicKey)
	if err != nil {
		t.Fatalf("EphemeralECDHEncrypt() error = %v", err)
	}
	if again.PublicKey == env.PublicKey {
		t.Error("ephemeral key reused across calls")
	}
}

func TestECDHDecrypt_WrongRecipient(t *testing.T) {
	suite := DefaultSuite()
	sender := mustEncryptionKeyPair(t, suite)
	recipient := mustEncryptionKeyPair(t, suite)
	other := mustEncryptionKeyPair(t, suite)

	env, err := suite.ECDHEncrypt([]byte("secret"), sender, recipient.PublicKey)
	if err != nil {
		t.Fatalf("ECDHEncrypt() error = %v", err)
	}

	_, err = ECDHDecrypt(env, other.PrivateKey)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("ECDHDecrypt() error = %v, want %v", err, ErrDecryptionFailed)
	}
}

func TestECDHDecrypt_Tampered(t *testing.T) {
	suite := DefaultSuite()
	sender := mustEncryptionKeyPair(t, suite)
	recipient := mustEncryptionKeyPair(t, suite)

	env, err := suite.ECDHEncrypt([]byte("secret"), sender, recipient.PublicKey)
	if err != nil {
		t.Fatalf("ECDHEncrypt() error = %v", err)
	}

	data, _ := FromBase64(env.Data)
	data[len(data)-1] ^= 0xff
	env.Data = ToBase64(data)

	_, err = ECDHDecrypt(env, recipient.PrivateKey)
	if !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("ECDHDecrypt() error = %v, want %v", err, ErrDecryptionFailed)
	}
}

func TestECDHEncrypt_InvalidRecipient(t *testing.T) {
	suite := DefaultSuite()
	sender := mustEncryptionKeyPair(t, suite)

	_, err := suite.ECDHEncrypt([]byte("x"), sender, "not-a-key")
	if !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("ECDHEncrypt() error = %v, want %v", err, ErrInvalidPublicKey)
	}
}

func TestECDHDecrypt_NilEnvelope(t *testing.T) {
	kp := mustEncryptionKeyPair(t, DefaultSuite())
	if _, err := ECDHDecrypt(nil, kp.PrivateKey); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("ECDHDecrypt(nil) error = %v, want %v", err, ErrInvalidPayload)
	}
}

func BenchmarkECDHEncrypt(b *testing.B) {
	suite := DefaultSuite()
	sender := mustEncryptionKeyPair(b, suite)
	recipient := mustEncryptionKeyPair(b, suite)
	plaintext := make([]byte, 512)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = suite.ECDHEncrypt(plaintext, sender, recipient.PublicKey)
	}
}
