package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math/big"
)

// SignedData is the signing envelope. Data is the source of truth; PublicKey
// travels along for convenience and means nothing until the caller matches
// it against a key it already trusts.
type SignedData struct {
	// Data is the canonical JSON of the signed payload.
	Data string `json:"data"`
	// Signature is the base64 IEEE P1363 (r || s) ECDSA-SHA256 signature over Data.
	Signature string `json:"signature"`
	// PublicKey is the signer's base64 SPKI public key.
	PublicKey string `json:"publicKey"`
}

// Sign signs the UTF-8 bytes of data with the key pair's private key and
// embeds the matching public key.
func (s *Suite) Sign(data []byte, kp *KeyPair) (*SignedData, error) {
	priv, err := signingPrivateKey(kp.PrivateKey)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(data)
	r, sv, err := ecdsa.Sign(s.rand, priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	sig := make([]byte, SignatureSize)
	r.FillBytes(sig[:CoordinateSize])
	sv.FillBytes(sig[CoordinateSize:])

	return &SignedData{
		Data:      string(data),
		Signature: ToBase64(sig),
		PublicKey: kp.PublicKey,
	}, nil
}

// SignJSON marshals v and signs the result.
func (s *Suite) SignJSON(v any, kp *KeyPair) (*SignedData, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal signed payload: %w", err)
	}
	return s.Sign(data, kp)
}

// Verify checks sd against each candidate key in order and returns nil on the
// first match. Candidates that fail to parse are skipped. The key embedded in
// sd is never consulted unless the caller passes it explicitly.
func Verify(candidates []string, sd *SignedData) error {
	if sd == nil {
		return fmt.Errorf("%w: nil signed data", ErrInvalidPayload)
	}

	sig, err := FromBase64(sd.Signature)
	if err != nil || len(sig) != SignatureSize {
		return fmt.Errorf("%w: malformed signature", ErrVerificationFailed)
	}
	r := new(big.Int).SetBytes(sig[:CoordinateSize])
	sv := new(big.Int).SetBytes(sig[CoordinateSize:])
	digest := sha256.Sum256([]byte(sd.Data))

	for _, candidate := range candidates {
		pub, err := parseSPKI(candidate)
		if err != nil {
			continue
		}
		if ecdsa.Verify(pub, digest[:], r, sv) {
			return nil
		}
	}
	return ErrVerificationFailed
}

// VerifySelf checks sd against its own embedded key. It proves possession of
// the private key, not identity.
func VerifySelf(sd *SignedData) error {
	if sd == nil {
		return fmt.Errorf("%w: nil signed data", ErrInvalidPayload)
	}
	return Verify([]string{sd.PublicKey}, sd)
}

// Decode unmarshals the signed payload into dst. It does not verify.
func (sd *SignedData) Decode(dst any) error {
	if err := json.Unmarshal([]byte(sd.Data), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
