package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"crosscheck/pkg/platform/sentinel"
)

// GenerateKey creates a cryptographically secure random operator key,
// base64-encoded. Operators receive the key; the config stores its hash.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashKey creates a bcrypt hash of an operator key for configuration.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("key is too long")
		}
		return "", fmt.Errorf("could not hash key: %w", err)
	}
	return string(hashed), nil
}

// VerifyKey checks a plaintext operator key against the configured hash. An
// empty hash disables key auth; that is a development convenience and
// VerifyKey accepts any key in that mode.
func VerifyKey(key, hash string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("%w: invalid operator key", sentinel.ErrUnauthorized)
		}
		return fmt.Errorf("could not verify key: %w", err)
	}
	return nil
}
