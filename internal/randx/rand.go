// Package randx provides helpers for random identifiers and secure memory
// wiping.
package randx

import (
	"crypto/rand"
	"encoding/hex"
)

// HexString generates a random hexadecimal string from size random bytes.
// The result is twice as long as size, since each byte encodes as two hex
// characters.
func HexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Wipe overwrites the slice with zeros. Useful for passwords and keys that
// should not linger in memory after use.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
