package crypto

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestBase64RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"simple", []byte("hello")},
		{"binary mixed", []byte{0x00, 0xff, 0x7f, 0x80}},
		{"url unsafe chars", []byte{0xfb, 0xf0}},
		{"large data", make([]byte, 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := FromBase64(ToBase64(tt.data))
			if err != nil {
				t.Fatalf("FromBase64() error = %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Errorf("std round trip failed: got %v, want %v", decoded, tt.data)
			}

			decoded, err = FromBase64URL(ToBase64URL(tt.data))
			if err != nil {
				t.Fatalf("FromBase64URL() error = %v", err)
			}
			if !bytes.Equal(decoded, tt.data) {
				t.Errorf("url round trip failed: got %v, want %v", decoded, tt.data)
			}
		})
	}
}

func TestBase64URL_NoPadding(t *testing.T) {
	for _, data := range [][]byte{[]byte("a"), []byte("ab"), []byte("abc")} {
		if encoded := ToBase64URL(data); strings.ContainsAny(encoded, "=+/") {
			t.Errorf("ToBase64URL(%q) = %q, contains padding or std chars", data, encoded)
		}
	}
}

func TestDecodeBase64_Lenient(t *testing.T) {
	data := []byte{0xfb, 0xf0, 0x01}

	tests := []struct {
		name    string
		encoded string
	}{
		{"std", base64.StdEncoding.EncodeToString(data)},
		{"raw std", base64.RawStdEncoding.EncodeToString(data[:2])},
		{"url", base64.URLEncoding.EncodeToString(data[:2])},
		{"raw url", base64.RawURLEncoding.EncodeToString(data)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeBase64(tt.encoded); err != nil {
				t.Errorf("DecodeBase64(%q) error = %v", tt.encoded, err)
			}
		})
	}

	if _, err := DecodeBase64("!!!"); err == nil {
		t.Error("DecodeBase64(invalid) expected error")
	}
}

func TestToHex(t *testing.T) {
	if got := ToHex([]byte{0x00, 0xab, 0xff}); got != "00abff" {
		t.Errorf("ToHex() = %q, want %q", got, "00abff")
	}
}
