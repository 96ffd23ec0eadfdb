package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep hashes of different record kinds apart. The version
// suffix allows the encoding to change later.
const (
	DomainCycle   = "changeflow/cycle/v1"
	DomainSession = "changeflow/session/v1"
	DomainConfig  = "changeflow/config/v1"
)

// Hash returns hex(SHA-256(domain || 0x00 || canonical(v))).
func Hash(domain string, v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MustHash is Hash for values known to be canonical.
func MustHash(domain string, v Value) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
