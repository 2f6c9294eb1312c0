package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this and expose sub-repositories per aggregate.
type Store interface {
	Users() Users
	OTPs() OTPs

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
// Starting another transaction from a Tx fails.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id. Inside a transaction the row is
	// locked for update where the driver supports it.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user; a duplicate email yields ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	// SaveUser overwrites the mutable fields of an existing user
	// (name, password hash, status, refresh hash, updated_at).
	SaveUser(ctx context.Context, u domain.User) error
}

type OTPs interface {
	// CreateOTP inserts a record. A second unused record for the same
	// user and purpose yields ErrAlreadyExists.
	CreateOTP(ctx context.Context, o domain.OTP) error

	// SaveOTP overwrites used and updated_at.
	SaveOTP(ctx context.Context, o domain.OTP) error

	// FindLatestPending returns the newest unused record of purpose that
	// expires after now.
	FindLatestPending(ctx context.Context, userID string, purpose domain.OTPPurpose, now time.Time) (domain.OTP, error)

	// FindUnused returns every unused record of purpose, expired or not,
	// newest first.
	FindUnused(ctx context.Context, userID string, purpose domain.OTPPurpose) ([]domain.OTP, error)

	// ConsumeOTP flips used on a record that is still unused. It returns
	// ErrNotFound when the record was consumed concurrently.
	ConsumeOTP(ctx context.Context, id string, now time.Time) error

	// RecordOTPFailure counts a wrong guess against an unused record and
	// retires it once attempts reaches maxAttempts. It returns the new
	// attempt count, or ErrNotFound when the record is no longer unused.
	RecordOTPFailure(ctx context.Context, id string, maxAttempts int, now time.Time) (int, error)

	// DeleteStaleOTPs removes records that were used or expired before the
	// cutoff and returns how many went.
	DeleteStaleOTPs(ctx context.Context, before time.Time) (int64, error)
}
