package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/internal/passage/store"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/idx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// oauthPasswordLength is the size of the random password given to accounts
// created through an identity provider. Nobody ever learns it.
const oauthPasswordLength = 24

// fallbackDummyDigest is a well-formed Argon2id digest that matches nothing.
const fallbackDummyDigest = "$argon2id$v=19$m=19456,t=2,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// AuthService implements the account flows: registration, password and
// provider sign in, token refresh, logout, verification and password reset.
type AuthService struct {
	Store    store.Store
	Hasher   Hasher
	Tokens   *TokenService
	OTPs     *OTPService
	Notifier Notifier
	Clock    Clock

	// ResetPasswordURL is the front-end page that takes a reset token as
	// its last path segment.
	ResetPasswordURL string

	dummyOnce   sync.Once
	dummyDigest string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is a user together with a freshly issued token pair.
type AuthResult struct {
	User   domain.User
	Tokens domain.TokenPair

	// VerificationSent is false when the welcome email could not be
	// delivered. The account exists regardless.
	VerificationSent bool
}

type LoginInput struct {
	Email    string
	Password string
	OTP      string
}

// Register creates an unverified account, signs it in and mails the first
// verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	l := slogx.FromContext(ctx)
	now := s.Clock.now()
	email := domain.NormalizeEmail(in.Email)

	// 1. Cheap duplicate check before paying for hashing.
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// 2. Hash the password and mint the session.
	passwordHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: passwordHash,
		Status:       domain.StatusUnverified,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	pair, err := s.startSession(&user)
	if err != nil {
		return nil, err
	}

	// 3. Persist the user and its first code atomically.
	var code string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrAlreadyExists
			}
			return err
		}
		code, err = s.OTPs.RequestIn(ctx, tx, user, domain.PurposeEmailVerification)
		return err
	})
	if err != nil {
		return nil, err
	}

	l = l.With(slog.String("user_id", user.ID))
	l.Info("user registered")

	// 4. Deliver the code. A delivery failure leaves the account usable.
	result := &AuthResult{User: user, Tokens: pair, VerificationSent: true}
	if err := s.Notifier.SendVerification(ctx, user, code, s.OTPs.ttl()); err != nil {
		l.Error("failed to send verification email", slog.Any("error", err))
		s.voidCode(ctx, user.ID, domain.PurposeEmailVerification)
		result.VerificationSent = false
	}
	return result, nil
}

// Login authenticates with email and password. An unverified account must
// also present a valid code, which verifies it.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	l := slogx.FromContext(ctx)
	email := domain.NormalizeEmail(in.Email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same time as a real check.
			s.Hasher.Verify(in.Password, s.dummyHash(ctx))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.Hasher.Verify(in.Password, user.PasswordHash) {
		l.Info("login failed: bad password", slog.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	if !user.Verified() && in.OTP == "" {
		return nil, ErrVerificationRequired
	}

	var (
		pair     domain.TokenPair
		rejected bool
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, user.ID)
		if err != nil {
			return err
		}

		if !u.Verified() {
			ok, err := s.verifyAny(ctx, tx, u.ID, in.OTP,
				domain.PurposeEmailVerification, domain.PurposeResetOTP)
			if err != nil {
				return err
			}
			if !ok {
				// Commit so the failed attempt is counted.
				rejected = true
				return nil
			}
			u.Status = domain.StatusVerified
			l.Info("user verified at login", slog.String("user_id", u.ID))
		}

		pair, err = s.startSession(&u)
		if err != nil {
			return err
		}
		u.UpdatedAt = s.Clock.now()
		if err := tx.Users().SaveUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		return nil, ErrInvalidOTP
	}

	l.Info("user logged in", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates the session. Only the most recently issued refresh token
// is accepted; the presented one stops working.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		l.Debug("refresh token rejected", slog.Any("error", err))
		return nil, ErrInvalidCredentials
	}

	var (
		user domain.User
		pair domain.TokenPair
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}

		if u.RefreshTokenHash == nil || !s.Hasher.Verify(refreshToken, *u.RefreshTokenHash) {
			l.Info("refresh token not current", slog.String("user_id", u.ID))
			return ErrInvalidCredentials
		}

		pair, err = s.startSession(&u)
		if err != nil {
			return err
		}
		u.UpdatedAt = s.Clock.now()
		if err := tx.Users().SaveUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout clears the stored refresh hash. Access tokens already issued stay
// valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		u.RefreshTokenHash = nil
		u.UpdatedAt = s.Clock.now()
		return tx.Users().SaveUser(ctx, u)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("user logged out", slog.String("user_id", userID))
	return nil
}

// OAuthLogin signs in a user vouched for by an identity provider, creating
// a verified account on first sight.
func (s *AuthService) OAuthLogin(ctx context.Context, p domain.ExternalProfile) (*AuthResult, error) {
	l := slogx.FromContext(ctx).With(slog.String("provider", p.Provider))
	email := domain.NormalizeEmail(p.Email)
	if email == "" || !p.EmailVerified {
		l.Info("provider profile rejected", slog.Bool("email_verified", p.EmailVerified))
		return nil, ErrInvalidCredentials
	}

	// Prepare the placeholder password outside the transaction.
	placeholder, err := cryptox.GeneratePassword(oauthPasswordLength)
	if err != nil {
		return nil, err
	}
	placeholderHash, err := s.Hasher.Hash(placeholder)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var (
		user    domain.User
		pair    domain.TokenPair
		created bool
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		now := s.Clock.now()
		u, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			u = domain.User{
				ID:           idx.New().String(),
				Name:         displayName(p.Name, email),
				Email:        email,
				PasswordHash: placeholderHash,
				Status:       domain.StatusVerified,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if pair, err = s.startSession(&u); err != nil {
				return err
			}
			if err := tx.Users().CreateUser(ctx, u); err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					return ErrAlreadyExists
				}
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			// The provider has proven ownership of the address.
			u.Status = domain.StatusVerified
			if pair, err = s.startSession(&u); err != nil {
				return err
			}
			u.UpdatedAt = now
			if err := tx.Users().SaveUser(ctx, u); err != nil {
				return err
			}
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.Info("provider login", slog.String("user_id", user.ID), slog.Bool("created", created))
	return &AuthResult{User: user, Tokens: pair}, nil
}

// RequestOTP mails a new verification code to an unverified account.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if user.Verified() {
		return ErrAlreadyVerified
	}

	code, err := s.OTPs.Request(ctx, user, domain.PurposeResetOTP)
	if err != nil {
		return err
	}

	if err := s.Notifier.SendOTP(ctx, user, code, s.OTPs.ttl()); err != nil {
		l.Error("failed to send otp email", slog.String("user_id", user.ID), slog.Any("error", err))
		s.voidCode(ctx, user.ID, domain.PurposeResetOTP)
		return ErrNotificationFailed
	}
	return nil
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently so
// the endpoint does not reveal which accounts exist.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Debug("password reset for unknown email")
			return nil
		}
		return err
	}

	token, err := s.OTPs.Request(ctx, user, domain.PurposeResetPassword)
	if err != nil {
		return err
	}

	link := strings.TrimRight(s.ResetPasswordURL, "/") + "/" + token
	if err := s.Notifier.SendPasswordReset(ctx, user, link); err != nil {
		l.Error("failed to send password reset email", slog.String("user_id", user.ID), slog.Any("error", err))
		s.voidCode(ctx, user.ID, domain.PurposeResetPassword)
		return ErrNotificationFailed
	}

	l.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword sets a new password using a token from ForgotPassword. The
// token is single use. Success verifies the account and ends its session.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := slogx.FromContext(ctx)

	// 1. Signature and lifetime.
	claims, err := s.OTPs.VerifyResetToken(token)
	if err != nil {
		l.Debug("reset token rejected", slog.Any("error", err))
		return ErrInvalidToken
	}

	// 2. The account must still own the address the token was issued for.
	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if domain.NormalizeEmail(claims.Email) != user.Email {
		l.Info("reset token email mismatch", slog.String("user_id", user.ID))
		return ErrEmailMismatch
	}

	passwordHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// 3. Consume the stored record and update the user together.
	var rejected bool
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		ok, err := s.OTPs.VerifyIn(ctx, tx, user.ID, domain.PurposeResetPassword, token)
		if err != nil {
			return err
		}
		if !ok {
			rejected = true
			return nil
		}

		u, err := tx.Users().GetUserByID(ctx, user.ID)
		if err != nil {
			return err
		}
		u.PasswordHash = passwordHash
		u.Status = domain.StatusVerified
		u.RefreshTokenHash = nil
		u.UpdatedAt = s.Clock.now()
		return tx.Users().SaveUser(ctx, u)
	})
	if err != nil {
		return err
	}
	if rejected {
		return ErrInvalidToken
	}

	l.Info("password reset", slog.String("user_id", user.ID))
	return nil
}

// Me returns the account behind an authenticated request.
func (s *AuthService) Me(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

// UpdateProfile changes the display name of an account.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name string) (domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, ErrInvalidName
	}

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		u.Name = name
		u.UpdatedAt = s.Clock.now()
		if err := tx.Users().SaveUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("profile updated", slog.String("user_id", userID))
	return user, nil
}

// startSession issues a token pair and records the refresh hash on u.
func (s *AuthService) startSession(u *domain.User) (domain.TokenPair, error) {
	pair, err := s.Tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return domain.TokenPair{}, err
	}
	h, err := s.Hasher.Hash(pair.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	u.RefreshTokenHash = &h
	return pair, nil
}

func (s *AuthService) verifyAny(ctx context.Context, repo store.Store, userID, code string, purposes ...domain.OTPPurpose) (bool, error) {
	for _, p := range purposes {
		ok, err := s.OTPs.VerifyIn(ctx, repo, userID, p, code)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (s *AuthService) voidCode(ctx context.Context, userID string, purpose domain.OTPPurpose) {
	if err := s.OTPs.Void(ctx, userID, purpose); err != nil {
		slogx.FromContext(ctx).Error("failed to void otp",
			slog.String("user_id", userID),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err),
		)
	}
}

// dummyHash returns a digest to verify against when the email is unknown.
// If hashing fails the fixed Argon2id digest keeps the cost comparable.
func (s *AuthService) dummyHash(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		digest, err := s.Hasher.Hash("passage-dummy-password")
		if err != nil {
			slogx.FromContext(ctx).Error("failed to hash dummy password", slog.Any("error", err))
			digest = fallbackDummyDigest
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
