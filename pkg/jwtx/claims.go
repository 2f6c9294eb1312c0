package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes the kinds of token minted by the service. It is
// carried in the "typ" claim and checked on verification.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
	TypeReset   TokenType = "reset"
)

// Claims are the JWT payload for every token the service issues.
type Claims struct {
	jwt.RegisteredClaims

	Email string    `json:"email,omitempty"`
	Type  TokenType `json:"typ,omitempty"`
}

// NewClaims builds claims for subject valid from now until now+ttl.
func NewClaims(typ TokenType, subject, email, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email: email,
		Type:  typ,
	}
}

// NewJTI returns a random identifier for the "jti" claim. Two tokens minted
// for the same subject in the same second still differ because of it.
func NewJTI() string {
	return uuid.NewString()
}

// ExpiresAtTime returns the exp claim or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateType checks the typ claim.
func (c *Claims) ValidateType(expected TokenType) error {
	if expected == "" {
		return nil
	}
	if c.Type != expected {
		return ErrWrongType
	}
	return nil
}
