package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor for new password hashes.
const Cost = 12

// Hash derives a salted bcrypt hash from a cleartext password.
// Fails if the password exceeds bcrypt's 72-byte input limit.
func Hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}

// Verify reports whether password matches the stored hash.
// A malformed stored hash simply fails verification.
func Verify(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
