package crypto

import (
	"crypto/ecdh"
	"fmt"
)

// ECDHData is the asymmetric envelope. PublicKey is the sender's ECDH public
// key, static or ephemeral; the recipient key is known from context.
type ECDHData struct {
	// IV is the base64 12-byte GCM nonce.
	IV string `json:"iv"`
	// Data is the base64 ciphertext with the 16-byte tag appended.
	Data string `json:"data"`
	// PublicKey is the sender's base64 SPKI ECDH public key.
	PublicKey string `json:"publicKey"`
}

// sharedKey runs P-256 ECDH. The 32-byte x-coordinate is used directly as
// the AES-256-GCM key, matching WebCrypto's deriveKey(ECDH → AES-GCM-256).
func sharedKey(priv *ecdh.PrivateKey, peerPublicKey string) ([]byte, error) {
	pub, err := ecdhPublicKey(peerPublicKey)
	if err != nil {
		return nil, err
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("ecdh: %w", err)
	}
	return secret, nil
}

func (s *Suite) ecdhSeal(priv *ecdh.PrivateKey, senderPublicKey, recipientPublicKey string, plaintext []byte) (*ECDHData, error) {
	key, err := sharedKey(priv, recipientPublicKey)
	if err != nil {
		return nil, err
	}
	iv, ciphertext, err := s.seal(key, plaintext)
	if err != nil {
		return nil, err
	}
	return &ECDHData{
		IV:        ToBase64(iv),
		Data:      ToBase64(ciphertext),
		PublicKey: senderPublicKey,
	}, nil
}

// ECDHEncrypt encrypts plaintext to recipientPublicKey with a key agreed
// between the sender's durable key pair and the recipient. The envelope
// names the sender.
func (s *Suite) ECDHEncrypt(plaintext []byte, sender *KeyPair, recipientPublicKey string) (*ECDHData, error) {
	priv, err := ecdhPrivateKey(sender.PrivateKey)
	if err != nil {
		return nil, err
	}
	return s.ecdhSeal(priv, sender.PublicKey, recipientPublicKey, plaintext)
}

// EphemeralECDHEncrypt encrypts plaintext to recipientPublicKey using a
// single-use key pair. The ephemeral private key is returned for tests and
// should otherwise be dropped by the caller.
func (s *Suite) EphemeralECDHEncrypt(plaintext []byte, recipientPublicKey string) (*ECDHData, JWK, error) {
	ephemeral, err := s.GenerateEncryptionKeyPair()
	if err != nil {
		return nil, JWK{}, err
	}
	env, err := s.ECDHEncrypt(plaintext, ephemeral, recipientPublicKey)
	if err != nil {
		return nil, JWK{}, err
	}
	return env, ephemeral.PrivateKey, nil
}

// ECDHDecrypt opens an envelope addressed to the holder of recipientKey.
// Static and ephemeral envelopes are opened the same way.
func ECDHDecrypt(env *ECDHData, recipientKey JWK) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrInvalidPayload)
	}
	return ECDHDecryptFrom(env, recipientKey, env.PublicKey)
}

// ECDHDecryptFrom opens an envelope with an explicit peer key. The sender of
// a static envelope passes its own private key and the recipient's public
// key to read back what it sent.
func ECDHDecryptFrom(env *ECDHData, privateKey JWK, peerPublicKey string) ([]byte, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrInvalidPayload)
	}
	priv, err := ecdhPrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	key, err := sharedKey(priv, peerPublicKey)
	if err != nil {
		return nil, err
	}
	iv, err := FromBase64(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: decode iv: %v", ErrInvalidPayload, err)
	}
	ciphertext, err := FromBase64(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data: %v", ErrInvalidPayload, err)
	}
	return openGCM(key, iv, ciphertext)
}
