package payment

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid payment signature")

// The gateway protocol fixes SHA-1 for request and callback signatures. It is
// not used anywhere else.
func Sign(secret string, fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if value == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	parts = append(parts, secret)
	for _, name := range names {
		parts = append(parts, fields[name])
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// VerifyCallback checks the signature a gateway callback carries over its own
// fields.
func VerifyCallback(secret string, fields map[string]string) error {
	got := strings.ToLower(strings.TrimSpace(fields["signature"]))
	if got == "" {
		return ErrInvalidSignature
	}

	signed := make(map[string]string, len(fields))
	for name, value := range fields {
		if name == "signature" || name == "response_signature_string" {
			continue
		}
		signed[name] = value
	}

	want := Sign(secret, signed)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
