package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
)

// TokenConfig is the secret and lifetime for one kind of token.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type tokenKind struct {
	typ      jwtx.TokenType
	ttl      time.Duration
	signer   *jwtx.HS256Signer
	verifier *jwtx.HS256Verifier
}

// TokenService mints and checks the access, refresh and reset JWTs. Each
// kind has its own secret and lifetime, fixed at construction.
type TokenService struct {
	issuer  string
	clock   Clock
	access  tokenKind
	refresh tokenKind
	reset   tokenKind
}

// NewTokenService builds the three signer/verifier pairs.
func NewTokenService(issuer string, access, refresh, reset TokenConfig, clock Clock) (*TokenService, error) {
	s := &TokenService{issuer: issuer, clock: clock}

	var err error
	if s.access, err = s.newKind(jwtx.TypeAccess, access); err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if s.refresh, err = s.newKind(jwtx.TypeRefresh, refresh); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if s.reset, err = s.newKind(jwtx.TypeReset, reset); err != nil {
		return nil, fmt.Errorf("reset token: %w", err)
	}
	return s, nil
}

func (s *TokenService) newKind(typ jwtx.TokenType, cfg TokenConfig) (tokenKind, error) {
	if cfg.TTL <= 0 {
		return tokenKind{}, fmt.Errorf("ttl must be positive")
	}
	signer, err := jwtx.NewSignerHS256(cfg.Secret)
	if err != nil {
		return tokenKind{}, err
	}
	verifier, err := jwtx.NewVerifierHS256(cfg.Secret,
		jwtx.WithIssuer(s.issuer),
		jwtx.WithType(typ),
		jwtx.WithClock(s.clock.now),
	)
	if err != nil {
		return tokenKind{}, err
	}
	return tokenKind{typ: typ, ttl: cfg.TTL, signer: signer, verifier: verifier}, nil
}

func (s *TokenService) sign(k tokenKind, userID, email string) (string, time.Time, error) {
	claims := jwtx.NewClaims(k.typ, userID, email, s.issuer, k.ttl, s.clock.now())
	token, err := k.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAtTime(), nil
}

// IssuePair mints an access and a refresh token for the user.
func (s *TokenService) IssuePair(userID, email string) (domain.TokenPair, error) {
	access, accessExp, err := s.sign(s.access, userID, email)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.sign(s.refresh, userID, email)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueReset mints a password reset token.
func (s *TokenService) IssueReset(userID, email string) (string, time.Time, error) {
	return s.sign(s.reset, userID, email)
}

// VerifyAccess checks an access token. Failures wrap ErrInvalidToken.
func (s *TokenService) VerifyAccess(token string) (jwtx.Claims, error) {
	return verify(s.access, token)
}

// VerifyRefresh checks a refresh token. Failures wrap ErrInvalidToken.
func (s *TokenService) VerifyRefresh(token string) (jwtx.Claims, error) {
	return verify(s.refresh, token)
}

// VerifyReset checks a reset token. Failures wrap ErrInvalidToken.
func (s *TokenService) VerifyReset(token string) (jwtx.Claims, error) {
	return verify(s.reset, token)
}

// AccessVerifier exposes the access token verifier for HTTP middleware.
func (s *TokenService) AccessVerifier() jwtx.Verifier { return s.access.verifier }

// AccessTTL is the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.access.ttl }

func verify(k tokenKind, token string) (jwtx.Claims, error) {
	claims, err := k.verifier.Verify(token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
