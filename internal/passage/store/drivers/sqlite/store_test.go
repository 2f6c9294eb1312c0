package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/internal/passage/store"
	"github.com/aussiebroadwan/passage/internal/passage/store/drivers/sqlite"
	"github.com/aussiebroadwan/passage/pkg/idx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func newUser(email string, now time.Time) domain.User {
	return domain.User{
		ID:           idx.New().String(),
		Name:         "Alice",
		Email:        email,
		PasswordHash: "hash",
		Status:       domain.StatusUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func newOTP(userID string, purpose domain.OTPPurpose, now time.Time, ttl time.Duration) domain.OTP {
	return domain.OTP{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: "otp-hash",
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUsersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	u := newUser("alice@example.com", now)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	got, err := s.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u, got)

	hash := "refresh-hash"
	got.RefreshTokenHash = &hash
	got.Status = domain.StatusVerified
	got.UpdatedAt = now.Add(time.Second)
	require.NoError(t, s.Users().SaveUser(ctx, got))

	again, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusVerified, again.Status)
	require.NotNil(t, again.RefreshTokenHash)
	require.Equal(t, hash, *again.RefreshTokenHash)

	again.RefreshTokenHash = nil
	require.NoError(t, s.Users().SaveUser(ctx, again))
	cleared, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Nil(t, cleared.RefreshTokenHash)
}

func TestUsersErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now()

	_, err := s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Users().CreateUser(ctx, newUser("dup@example.com", now)))
	err = s.Users().CreateUser(ctx, newUser("dup@example.com", now))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	err = s.Users().SaveUser(ctx, newUser("ghost@example.com", now))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestOTPQueries(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	u := newUser("otp@example.com", now)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	_, err := s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeEmailVerification, now)
	require.ErrorIs(t, err, store.ErrNotFound)

	first := newOTP(u.ID, domain.PurposeEmailVerification, now, 10*time.Minute)
	require.NoError(t, s.OTPs().CreateOTP(ctx, first))

	t.Run("only one unused record per purpose", func(t *testing.T) {
		err := s.OTPs().CreateOTP(ctx, newOTP(u.ID, domain.PurposeEmailVerification, now, time.Minute))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		// Other purposes are independent.
		other := newOTP(u.ID, domain.PurposeResetOTP, now, time.Minute)
		require.NoError(t, s.OTPs().CreateOTP(ctx, other))
	})

	t.Run("pending respects purpose and expiry", func(t *testing.T) {
		got, err := s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeEmailVerification, now)
		require.NoError(t, err)
		require.Equal(t, first.ID, got.ID)

		_, err = s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeEmailVerification, now.Add(11*time.Minute))
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeResetPassword, now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unused includes expired records", func(t *testing.T) {
		unused, err := s.OTPs().FindUnused(ctx, u.ID, domain.PurposeEmailVerification)
		require.NoError(t, err)
		require.Len(t, unused, 1)
	})

	t.Run("consume is single shot", func(t *testing.T) {
		require.NoError(t, s.OTPs().ConsumeOTP(ctx, first.ID, now))
		require.ErrorIs(t, s.OTPs().ConsumeOTP(ctx, first.ID, now), store.ErrNotFound)

		unused, err := s.OTPs().FindUnused(ctx, u.ID, domain.PurposeEmailVerification)
		require.NoError(t, err)
		require.Empty(t, unused)

		// With the previous record consumed a fresh one may be inserted.
		require.NoError(t, s.OTPs().CreateOTP(ctx, newOTP(u.ID, domain.PurposeEmailVerification, now, time.Minute)))
	})

	t.Run("save marks used", func(t *testing.T) {
		pending, err := s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeResetOTP, now)
		require.NoError(t, err)
		pending.Used = true
		pending.UpdatedAt = now
		require.NoError(t, s.OTPs().SaveOTP(ctx, pending))

		_, err = s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeResetOTP, now)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRecordOTPFailure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	u := newUser("guess@example.com", now)
	require.NoError(t, s.Users().CreateUser(ctx, u))
	o := newOTP(u.ID, domain.PurposeEmailVerification, now, time.Hour)
	require.NoError(t, s.OTPs().CreateOTP(ctx, o))

	for want := 1; want < 3; want++ {
		n, err := s.OTPs().RecordOTPFailure(ctx, o.ID, 3, now)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}
	got, err := s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeEmailVerification, now)
	require.NoError(t, err)
	require.Equal(t, 2, got.Attempts)

	n, err := s.OTPs().RecordOTPFailure(ctx, o.ID, 3, now)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	_, err = s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeEmailVerification, now)
	require.ErrorIs(t, err, store.ErrNotFound, "retired at the cap")

	_, err = s.OTPs().RecordOTPFailure(ctx, o.ID, 3, now)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteStaleOTPs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	past := time.Now().UTC().Add(-48 * time.Hour)

	u := newUser("stale@example.com", past)
	require.NoError(t, s.Users().CreateUser(ctx, u))

	expired := newOTP(u.ID, domain.PurposeEmailVerification, past, time.Minute)
	require.NoError(t, s.OTPs().CreateOTP(ctx, expired))
	live := newOTP(u.ID, domain.PurposeResetOTP, time.Now().UTC(), time.Hour)
	require.NoError(t, s.OTPs().CreateOTP(ctx, live))

	n, err := s.OTPs().DeleteStaleOTPs(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.OTPs().FindLatestPending(ctx, u.ID, domain.PurposeResetOTP, time.Now())
	require.NoError(t, err)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u := newUser("tx@example.com", time.Now())
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Users().CreateUser(ctx, u))
		_, err := tx.Tx(ctx)
		require.Error(t, err, "nested transactions are rejected")
		return context.Canceled
	})
	require.ErrorIs(t, err, context.Canceled)

	_, err = s.Users().GetUserByID(ctx, u.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestForeignKeysEnforced(t *testing.T) {
	// Foreign keys must be enforced on file databases too.
	ctx := context.Background()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "passage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	err = s.OTPs().CreateOTP(ctx, newOTP("no-such-user", domain.PurposeResetOTP, time.Now(), time.Minute))
	require.Error(t, err)
}
