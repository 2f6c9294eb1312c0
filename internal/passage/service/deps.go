package service

import (
	"context"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
)

// Hasher produces and checks salted one-way digests of passwords, refresh
// tokens and one-time codes.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// Notifier delivers the emails the auth flows trigger.
type Notifier interface {
	// SendVerification welcomes a new user and carries their first code.
	SendVerification(ctx context.Context, user domain.User, code string, ttl time.Duration) error
	// SendOTP carries a re-requested verification code.
	SendOTP(ctx context.Context, user domain.User, code string, ttl time.Duration) error
	// SendPasswordReset carries the reset link.
	SendPasswordReset(ctx context.Context, user domain.User, link string) error
}

// Clock returns the current time. A nil Clock means time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
