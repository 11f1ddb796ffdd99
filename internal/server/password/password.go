// Package password implements one-way password hashing and verification on
// top of bcrypt. Hashing is invoked explicitly by the service layer when a
// password is first set or changed; storage paths never re-hash.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for new hashes.
const Cost = 10

// Hash derives a salted bcrypt hash from a plaintext password. Passing a
// value that is already a bcrypt hash is rejected: it would lock the user
// out silently, so it is treated as a programming error.
func Hash(plaintext string) (string, error) {
	if _, err := bcrypt.Cost([]byte(plaintext)); err == nil {
		return "", errors.New("refusing to hash a value that is already a bcrypt hash")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a plaintext candidate against a stored hash. A wrong
// password yields (false, nil); an error is returned only when the stored
// hash itself is malformed, which indicates a data-integrity problem.
func Verify(plaintext, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("malformed password hash: %w", err)
}
