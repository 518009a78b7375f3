package crypto

import (
	"encoding/base32"
	"fmt"
	"strings"
)

// secretAlphabet drops the glyphs people confuse when copying a secret by
// hand (0/o, 1/l).
const secretAlphabet = "abcdefghijkmnpqrstuvwxyz23456789"

var secretEncoding = base32.NewEncoding(secretAlphabet).WithPadding(base32.NoPadding)

// ToBase32 encodes bytes with the human-friendly secret alphabet.
func ToBase32(data []byte) string {
	return secretEncoding.EncodeToString(data)
}

// FromBase32 decodes a string produced by ToBase32. Input is normalized
// first, so grouped or upper-cased secrets are accepted.
func FromBase32(s string) ([]byte, error) {
	data, err := secretEncoding.DecodeString(NormalizeSecret(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return data, nil
}

// NormalizeSecret lower-cases s and strips separators and whitespace.
func NormalizeSecret(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch r {
		case '-', ' ', '\t', '\n', '\r':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatSecret splits an encoded secret into groups of four characters.
func FormatSecret(s string) string {
	s = NormalizeSecret(s)
	groups := make([]string, 0, (len(s)+3)/4)
	for len(s) > 4 {
		groups = append(groups, s[:4])
		s = s[4:]
	}
	if s != "" {
		groups = append(groups, s)
	}
	return strings.Join(groups, "-")
}
