package domain

import (
	"strings"
	"time"
)

// UserStatus tracks whether the user has proven ownership of their email.
type UserStatus string

const (
	StatusUnverified UserStatus = "UNVERIFIED"
	StatusVerified   UserStatus = "VERIFIED"
)

// Valid reports whether s is a known status.
func (s UserStatus) Valid() bool {
	return s == StatusUnverified || s == StatusVerified
}

type User struct {
	ID               string
	Name             string
	Email            string // normalised, unique
	PasswordHash     string
	Status           UserStatus
	RefreshTokenHash *string // nil means no active session
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Verified reports whether the email has been confirmed.
func (u User) Verified() bool { return u.Status == StatusVerified }

// HasSession reports whether a refresh token is currently bound to the user.
func (u User) HasSession() bool { return u.RefreshTokenHash != nil }

// NormalizeEmail trims and lower-cases an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
