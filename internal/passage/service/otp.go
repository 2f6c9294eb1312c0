package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/internal/passage/store"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
	"github.com/google/uuid"
)

// DefaultOTPTTL is how long an issued code stays redeemable.
const DefaultOTPTTL = 10 * time.Minute

// OTPService issues and redeems one-time codes. At most one unused code
// exists per user and purpose; only its hash is stored.
type OTPService struct {
	Store  store.Store
	Hasher Hasher
	Tokens *TokenService
	TTL    time.Duration
	Clock  Clock
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL <= 0 {
		return DefaultOTPTTL
	}
	return s.TTL
}

// Request issues a fresh code for user and purpose in its own transaction.
// It fails with a *ThrottledError while an earlier code is still live.
func (s *OTPService) Request(ctx context.Context, user domain.User, purpose domain.OTPPurpose) (string, error) {
	var code string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		code, err = s.RequestIn(ctx, tx, user, purpose)
		return err
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// RequestIn is Request against an open transaction.
func (s *OTPService) RequestIn(ctx context.Context, repo store.Store, user domain.User, purpose domain.OTPPurpose) (string, error) {
	log := slogx.FromContext(ctx).With(
		slog.String("user_id", user.ID),
		slog.String("purpose", string(purpose)),
	)
	if !purpose.Valid() {
		return "", fmt.Errorf("unknown otp purpose %q", purpose)
	}
	now := s.Clock.now()

	// 1. Throttle while a live code exists. Nothing is written on this path.
	pending, err := repo.OTPs().FindLatestPending(ctx, user.ID, purpose, now)
	switch {
	case err == nil:
		log.Info("otp request throttled", slog.Time("expires_at", pending.ExpiresAt))
		return "", &ThrottledError{MinutesRemaining: minutesUntil(pending.ExpiresAt, now)}
	case !errors.Is(err, store.ErrNotFound):
		return "", err
	}

	// 2. Retire expired leftovers so the new record is the only unused one.
	leftovers, err := repo.OTPs().FindUnused(ctx, user.ID, purpose)
	if err != nil {
		return "", err
	}
	for _, o := range leftovers {
		o.Used = true
		o.UpdatedAt = now
		if err := repo.OTPs().SaveOTP(ctx, o); err != nil {
			return "", err
		}
	}

	// 3. Generate and store the hash.
	code, err := s.generate(user, purpose)
	if err != nil {
		return "", err
	}
	digest, err := s.Hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	record := domain.OTP{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: digest,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.OTPs().CreateOTP(ctx, record); err != nil {
		// A concurrent request won the race for the one unused slot.
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", &ThrottledError{MinutesRemaining: minutesUntil(record.ExpiresAt, now)}
		}
		return "", err
	}

	log.Info("otp issued", slog.String("otp_id", record.ID), slog.Time("expires_at", record.ExpiresAt))
	return code, nil
}

func (s *OTPService) generate(user domain.User, purpose domain.OTPPurpose) (string, error) {
	if purpose == domain.PurposeResetPassword {
		token, _, err := s.Tokens.IssueReset(user.ID, user.Email)
		if err != nil {
			return "", fmt.Errorf("issue reset token: %w", err)
		}
		return token, nil
	}
	return cryptox.NumericCode()
}

// Verify redeems code for user and purpose in its own transaction. A wrong,
// expired or already used code reports false with a nil error. Every wrong
// guess is counted and the code is retired after domain.MaxOTPAttempts.
// Callers of VerifyIn must commit after a false result for the count to stick.
func (s *OTPService) Verify(ctx context.Context, userID string, purpose domain.OTPPurpose, code string) (bool, error) {
	var ok bool
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		ok, err = s.VerifyIn(ctx, tx, userID, purpose, code)
		return err
	})
	return ok, err
}

// VerifyIn is Verify against an open transaction.
func (s *OTPService) VerifyIn(ctx context.Context, repo store.Store, userID string, purpose domain.OTPPurpose, code string) (bool, error) {
	log := slogx.FromContext(ctx).With(
		slog.String("user_id", userID),
		slog.String("purpose", string(purpose)),
	)
	now := s.Clock.now()

	rec, err := repo.OTPs().FindLatestPending(ctx, userID, purpose, now)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug("no pending otp")
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !s.Hasher.Verify(code, rec.TokenHash) {
		attempts, err := repo.OTPs().RecordOTPFailure(ctx, rec.ID, domain.MaxOTPAttempts, now)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return false, err
		}
		if attempts >= domain.MaxOTPAttempts {
			log.Info("otp retired after too many attempts", slog.String("otp_id", rec.ID))
		} else {
			log.Debug("otp mismatch", slog.String("otp_id", rec.ID), slog.Int("attempts", attempts))
		}
		return false, nil
	}

	if err := repo.OTPs().ConsumeOTP(ctx, rec.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	log.Info("otp consumed", slog.String("otp_id", rec.ID))
	return true, nil
}

// VerifyResetToken checks the signature and lifetime of a reset token. It
// does not consume the stored record; VerifyIn does that.
func (s *OTPService) VerifyResetToken(token string) (jwtx.Claims, error) {
	return s.Tokens.VerifyReset(token)
}

// Void retires every unused code of purpose for the user. It is used when
// the code could not be delivered so the user is not left throttled.
func (s *OTPService) Void(ctx context.Context, userID string, purpose domain.OTPPurpose) error {
	now := s.Clock.now()
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		unused, err := tx.OTPs().FindUnused(ctx, userID, purpose)
		if err != nil {
			return err
		}
		for _, o := range unused {
			o.Used = true
			o.UpdatedAt = now
			if err := tx.OTPs().SaveOTP(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

// minutesUntil rounds the time left up to whole minutes, never below one.
func minutesUntil(t, now time.Time) int {
	m := int(math.Ceil(t.Sub(now).Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
