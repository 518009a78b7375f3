package crypto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestGenerateKeyPair(t *testing.T) {
	suite := DefaultSuite()

	tests := []struct {
		name   string
		gen    func() (*KeyPair, error)
		wantOp string
	}{
		{"signing", suite.GenerateSigningKeyPair, "sign"},
		{"encryption", suite.GenerateEncryptionKeyPair, "deriveKey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp, err := tt.gen()
			if err != nil {
				t.Fatalf("generate error = %v", err)
			}
			if err := kp.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if kp.PrivateKey.Kty != "EC" || kp.PrivateKey.Crv != CurveName {
				t.Errorf("JWK kty/crv = %s/%s", kp.PrivateKey.Kty, kp.PrivateKey.Crv)
			}
			if len(kp.PrivateKey.KeyOps) != 1 || kp.PrivateKey.KeyOps[0] != tt.wantOp {
				t.Errorf("KeyOps = %v, want [%s]", kp.PrivateKey.KeyOps, tt.wantOp)
			}

			d, err := FromBase64URL(kp.PrivateKey.D)
			if err != nil {
				t.Fatalf("FromBase64URL(d) error = %v", err)
			}
			if len(d) != CoordinateSize {
				t.Errorf("d length = %d, want %d", len(d), CoordinateSize)
			}
		})
	}
}

func TestGenerateKeyPair_Uniqueness(t *testing.T) {
	suite := DefaultSuite()
	kp1 := mustSigningKeyPair(t, suite)
	kp2 := mustSigningKeyPair(t, suite)

	if kp1.PublicKey == kp2.PublicKey {
		t.Error("generated key pairs have identical public keys")
	}
	if kp1.PrivateKey.D == kp2.PrivateKey.D {
		t.Error("generated key pairs have identical private keys")
	}
}

func TestKeyPair_Validate(t *testing.T) {
	suite := DefaultSuite()
	kp1 := mustSigningKeyPair(t, suite)
	kp2 := mustSigningKeyPair(t, suite)

	mismatched := &KeyPair{PublicKey: kp1.PublicKey, PrivateKey: kp2.PrivateKey}
	if err := mismatched.Validate(); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("Validate(mismatched) error = %v, want %v", err, ErrInvalidPrivateKey)
	}

	badCoords := *kp1
	badCoords.PrivateKey.X = kp2.PrivateKey.X
	if err := badCoords.Validate(); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("Validate(bad x) error = %v, want %v", err, ErrInvalidPrivateKey)
	}

	badPublic := &KeyPair{PublicKey: "AAAA", PrivateKey: kp1.PrivateKey}
	if err := badPublic.Validate(); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("Validate(bad public) error = %v, want %v", err, ErrInvalidPublicKey)
	}

	var nilPair *KeyPair
	if err := nilPair.Validate(); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Errorf("Validate(nil) error = %v, want %v", err, ErrInvalidPrivateKey)
	}
}

func TestKeyPair_JSON(t *testing.T) {
	kp := mustEncryptionKeyPair(t, DefaultSuite())

	data, err := json.Marshal(kp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := fields["publicKey"]; !ok {
		t.Error("missing publicKey field")
	}
	if _, ok := fields["privateKey"]; !ok {
		t.Error("missing privateKey field")
	}

	var restored KeyPair
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := restored.Validate(); err != nil {
		t.Errorf("restored Validate() error = %v", err)
	}
}

// webCryptoKeyPair is a P-256 key pair in the shape browsers export it.
const webCryptoKeyPair = `{
	"publicKey": "MFkwEwYHKoZIzj0CAQYIKoZIzj0DAQcDQgAEyRvXxE8IndDnvPIy8W1j22J8a6ZPGUigEWOISFpmEn+dcpPqsHxgBBO2uWPTieRyosBnPbyBeweP+x7fWryU0w==",
	"privateKey": {
		"kty": "EC",
		"crv": "P-256",
		"x": "yRvXxE8IndDnvPIy8W1j22J8a6ZPGUigEWOISFpmEn8",
		"y": "nXKT6rB8YAQTtrlj04nkcqLAZz28gXsHj_se31q8lNM",
		"d": "HzpcfpstT2qMDhs9X3qcLkttjwocPlt9nypMbosNHzo",
		"ext": true,
		"key_ops": ["sign"]
	}
}`

func TestKeyPair_WebCryptoJWK(t *testing.T) {
	var kp KeyPair
	if err := json.Unmarshal([]byte(webCryptoKeyPair), &kp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := kp.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !kp.PrivateKey.Ext || len(kp.PrivateKey.KeyOps) != 1 {
		t.Errorf("WebCrypto attributes lost: ext=%v key_ops=%v", kp.PrivateKey.Ext, kp.PrivateKey.KeyOps)
	}

	sd, err := DefaultSuite().Sign([]byte(`{"hello":"world"}`), &kp)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := Verify([]string{kp.PublicKey}, sd); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(j *JWK)
	}{
		{"missing x", func(j *JWK) { j.X = "" }},
		{"missing d", func(j *JWK) { j.D = "" }},
		{"point off curve", func(j *JWK) { j.Y = j.X }},
		{"other curve", func(j *JWK) { j.Crv = "P-384" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := kp
			tt.mutate(&bad.PrivateKey)
			if err := bad.Validate(); !errors.Is(err, ErrInvalidPrivateKey) {
				t.Errorf("Validate() error = %v, want %v", err, ErrInvalidPrivateKey)
			}
		})
	}
}

func TestKeyPair_Public(t *testing.T) {
	kp := mustSigningKeyPair(t, DefaultSuite())
	pub := kp.Public()

	if pub.PublicKey != kp.PublicKey {
		t.Error("Public() changed the public key")
	}
	if !pub.PrivateKey.IsZero() {
		t.Error("Public() kept private key material")
	}
}

func TestPublicKeyID(t *testing.T) {
	kp := mustSigningKeyPair(t, DefaultSuite())

	id1, err := PublicKeyID(kp.PublicKey)
	if err != nil {
		t.Fatalf("PublicKeyID() error = %v", err)
	}
	id2, _ := PublicKeyID(kp.PublicKey)

	if len(id1) != 64 {
		t.Errorf("PublicKeyID() length = %d, want 64", len(id1))
	}
	if id1 != id2 {
		t.Error("PublicKeyID() not deterministic")
	}

	if _, err := PublicKeyID("!!!"); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("PublicKeyID(invalid) error = %v, want %v", err, ErrInvalidPublicKey)
	}
}

func TestSuite_Clock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	suite := NewSuite(nil, WithClock(func() time.Time { return fixed }))

	if got := suite.Now(); !got.Equal(fixed) || got.Location() != time.UTC {
		t.Errorf("Now() = %v, want %v in UTC", got, fixed)
	}
}

func TestSuite_RandomID(t *testing.T) {
	suite := DefaultSuite()
	a, err := suite.RandomID()
	if err != nil {
		t.Fatalf("RandomID() error = %v", err)
	}
	b, _ := suite.RandomID()

	if len(a) != 64 {
		t.Errorf("RandomID() length = %d, want 64", len(a))
	}
	if a == b {
		t.Error("RandomID() returned the same id twice")
	}
}
