package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ContentHash identifies a source by its bytes, so two uploads of the same
// file share one cache entry regardless of file name.
func ContentHash(data []byte) Hash {
	return NewHash(data)
}

// SourceHash identifies a source that has no byte representation (a database
// table, for instance) by its descriptive parts.
func SourceHash(kind string, parts ...string) Hash {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(0)
		b.WriteString(p)
	}
	return NewHash([]byte(b.String()))
}
