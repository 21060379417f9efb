package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrLoginDisabled      = errors.New("auth: admin login is not configured")
	ErrEmptyPassword      = errors.New("auth: password is required")
)

// AdminCredentials holds the single configured admin account.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether a password hash has been configured.
func (credentials AdminCredentials) Enabled() bool {
	return strings.TrimSpace(credentials.Username) != "" && strings.TrimSpace(credentials.PasswordHash) != ""
}

// Authenticate compares the supplied username and password against the configured account.
func (credentials AdminCredentials) Authenticate(username string, password string) error {
	if !credentials.Enabled() {
		return ErrLoginDisabled
	}
	usernameMatches := subtle.ConstantTimeCompare(
		[]byte(strings.TrimSpace(username)),
		[]byte(strings.TrimSpace(credentials.Username)),
	) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(credentials.PasswordHash)), []byte(password))
	if !usernameMatches || passwordErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash suitable for the admin password setting.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if hashErr != nil {
		return "", fmt.Errorf("hash password: %w", hashErr)
	}
	return string(hash), nil
}
