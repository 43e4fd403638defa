package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes a patient or admin password for storage on the
// user document. An empty password is rejected rather than hashed.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports a nil error only when password matches hash. Login
// handlers treat any non-nil error as bad credentials.
func ComparePassword(hash, password string) error {
	if hash == "" || password == "" {
		return errors.New("missing hash or password")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
