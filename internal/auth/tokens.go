// Package auth issues and verifies admin bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RoleAdmin is the only role the site recognizes.
	RoleAdmin = "admin"

	// DefaultTokenTTL is how long an issued admin token remains valid.
	DefaultTokenTTL = 24 * time.Hour

	minimumSecretLength = 16
)

var (
	ErrMissingSecret = errors.New("auth: signing secret is required")
	ErrWeakSecret    = errors.New("auth: signing secret is too short")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrInvalidRole   = errors.New("auth: token does not grant admin access")
)

// Claims are the JWT claims carried by an admin token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and its expiry.
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithTokenClock overrides the time source used to issue and validate tokens.
func WithTokenClock(clock func() time.Time) TokenOption {
	return func(service *TokenService) {
		if clock != nil {
			service.now = clock
		}
	}
}

// TokenService signs and verifies HS256 admin tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService validates the secret and constructs a TokenService.
func NewTokenService(secret string, ttl time.Duration, options ...TokenOption) (*TokenService, error) {
	trimmedSecret := strings.TrimSpace(secret)
	if trimmedSecret == "" {
		return nil, ErrMissingSecret
	}
	if len(trimmedSecret) < minimumSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	service := &TokenService{secret: []byte(trimmedSecret), ttl: ttl, now: time.Now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// IssueToken signs an admin token for the subject.
func (service *TokenService) IssueToken(subject string) (IssuedToken, error) {
	issuedAt := service.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(service.ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(subject),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, signErr := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(service.secret)
	if signErr != nil {
		return IssuedToken{}, fmt.Errorf("sign admin token: %w", signErr)
	}
	return IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// VerifyToken parses the token, checks its signature and expiry, and requires the admin role.
func (service *TokenService) VerifyToken(token string) (Claims, error) {
	var claims Claims
	parsed, parseErr := jwt.ParseWithClaims(
		strings.TrimSpace(token),
		&claims,
		func(*jwt.Token) (any, error) {
			return service.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(service.now),
	)
	if parseErr != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, parseErr)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Role != RoleAdmin {
		return Claims{}, ErrInvalidRole
	}
	return claims, nil
}
