package util

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPIN hashes a lookup PIN for storage
func HashPIN(pin string, cost int) (string, error) {
	if !ValidPIN(pin) {
		return "", errors.New("pin must be exactly 4 digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hash), nil
}

// CheckPIN compares a candidate PIN against a stored hash
func CheckPIN(pin, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// IsPINHash reports whether a stored value is already a bcrypt hash
func IsPINHash(stored string) bool {
	_, err := bcrypt.Cost([]byte(stored))
	return err == nil
}

// GenerateSecret returns n random bytes hex-encoded, used for admin tokens
func GenerateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
