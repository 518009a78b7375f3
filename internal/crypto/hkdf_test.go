package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	secret := []byte("input key material")

	k1, err := DeriveKey(secret, []byte("salt"), []byte("info"), 32)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	k2, err := DeriveKey(secret, []byte("salt"), []byte("info"), 32)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}
	k3, err := DeriveKey(secret, []byte("salt"), []byte("other"), 32)
	if err != nil {
		t.Fatalf("DeriveKey() error = %v", err)
	}

	if len(k1) != 32 {
		t.Errorf("DeriveKey() length = %d, want 32", len(k1))
	}
	if !bytes.Equal(k1, k2) {
		t.Error("DeriveKey() not deterministic")
	}
	if bytes.Equal(k1, k3) {
		t.Error("DeriveKey() ignored info")
	}
}

func TestDeriveSecrets(t *testing.T) {
	secret := []byte("abcd-efgh-ijkm-npqr")

	first, err := DeriveSecrets(secret, 32, 2)
	if err != nil {
		t.Fatalf("DeriveSecrets() error = %v", err)
	}
	second, err := DeriveSecrets(secret, 32, 2)
	if err != nil {
		t.Fatalf("DeriveSecrets() error = %v", err)
	}

	if len(first) != 2 {
		t.Fatalf("DeriveSecrets() returned %d values, want 2", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("DeriveSecrets()[%d] not deterministic", i)
		}
		raw, err := FromBase64(first[i])
		if err != nil {
			t.Fatalf("FromBase64() error = %v", err)
		}
		if len(raw) != 32 {
			t.Errorf("DeriveSecrets()[%d] length = %d, want 32", i, len(raw))
		}
	}
	if first[0] == first[1] {
		t.Error("DeriveSecrets() outputs are not independent")
	}
}

func TestDeriveSecrets_Avalanche(t *testing.T) {
	a, err := DeriveSecrets([]byte("secret-a"), 16, 3)
	if err != nil {
		t.Fatalf("DeriveSecrets() error = %v", err)
	}
	b, err := DeriveSecrets([]byte("secret-b"), 16, 3)
	if err != nil {
		t.Fatalf("DeriveSecrets() error = %v", err)
	}

	for i := range a {
		if a[i] == b[i] {
			t.Errorf("DeriveSecrets()[%d] equal for different secrets", i)
		}
	}
}

func TestDeriveSecrets_PrefixStable(t *testing.T) {
	secret := []byte("secret")
	two, err := DeriveSecrets(secret, 32, 2)
	if err != nil {
		t.Fatalf("DeriveSecrets() error = %v", err)
	}
	four, err := DeriveSecrets(secret, 32, 4)
	if err != nil {
		t.Fatalf("DeriveSecrets() error = %v", err)
	}

	for i := range two {
		if two[i] != four[i] {
			t.Errorf("DeriveSecrets()[%d] depends on count", i)
		}
	}
}

func TestDeriveSecrets_InvalidArgs(t *testing.T) {
	tests := []struct {
		name   string
		length int
		count  int
	}{
		{"zero length", 0, 1},
		{"negative length", -1, 1},
		{"negative count", 32, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DeriveSecrets([]byte("s"), tt.length, tt.count); err == nil {
				t.Error("DeriveSecrets() expected error")
			}
		})
	}
}
