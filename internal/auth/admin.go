package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when hashing an empty admin password
var ErrEmptyPassword = errors.New("admin password is empty")

// Admin the single operator account configured for the HTTP admin surface
type Admin struct {
	Username     string
	PasswordHash string // bcrypt
}

// HashPassword produces the bcrypt hash stored in admin.password_hash.
// Used by `server -hash-password`.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(hash), nil
}

// Enabled reports whether a password hash is configured
func (a Admin) Enabled() bool {
	return a.PasswordHash != ""
}

// Authenticate checks the credentials against the configured account.
// bcrypt runs even for a wrong username so both paths cost the same.
func (a Admin) Authenticate(username, password string) bool {
	if !a.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
	return userOK && passOK
}
