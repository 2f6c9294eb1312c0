package domain

import "time"

// TokenPair is the session handed to a client after login, refresh,
// registration or OAuth login.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
