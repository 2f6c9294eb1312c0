// Package oauth signs users in through external identity providers.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderGoogle = "google"

	// GoogleJWKSURL serves the keys Google signs id_tokens with.
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

var (
	ErrNoIDToken      = errors.New("oauth: token response has no id_token")
	ErrInvalidIDToken = errors.New("oauth: invalid id_token")
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Google runs the authorization code flow with PKCE against Google and
// turns the returned id_token into a profile.
type Google struct {
	config *oauth2.Config
	jwks   *keyfunc.JWKS
	now    func() time.Time
}

// NewGoogle fetches Google's signing keys and keeps them refreshed in the
// background until Close.
func NewGoogle(cfg GoogleConfig, logger *slog.Logger) (*Google, error) {
	jwks, err := keyfunc.Get(GoogleJWKSURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to refresh google jwks", slog.Any("error", err))
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("oauth: fetch google jwks: %w", err)
	}
	return newGoogle(cfg, endpoints.Google, jwks), nil
}

func newGoogle(cfg GoogleConfig, endpoint oauth2.Endpoint, jwks *keyfunc.JWKS) *Google {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	return &Google{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		jwks: jwks,
		now:  time.Now,
	}
}

func (g *Google) Name() string { return ProviderGoogle }

// AuthCodeURL is where the browser is sent to consent. verifier must be
// kept until the callback, usually from oauth2.GenerateVerifier.
func (g *Google) AuthCodeURL(state, verifier string) string {
	return g.config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades the callback code for tokens and returns the verified
// id_token profile.
func (g *Google) Exchange(ctx context.Context, code, verifier string) (domain.ExternalProfile, error) {
	tok, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("oauth: exchange code: %w", err)
	}
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return domain.ExternalProfile{}, ErrNoIDToken
	}
	return g.VerifyIDToken(raw)
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// VerifyIDToken checks signature, issuer, audience and lifetime.
func (g *Google) VerifyIDToken(raw string) (domain.ExternalProfile, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(g.config.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(g.now),
	)

	var claims idTokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, g.jwks.Keyfunc); err != nil {
		return domain.ExternalProfile{}, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	if !slices.Contains(googleIssuers, claims.Issuer) {
		return domain.ExternalProfile{}, fmt.Errorf("%w: issuer %q", ErrInvalidIDToken, claims.Issuer)
	}

	return domain.ExternalProfile{
		Provider:      ProviderGoogle,
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// Close stops the background key refresh.
func (g *Google) Close() {
	g.jwks.EndBackground()
}
