package service

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenServiceIssuePair(t *testing.T) {
	env := newTestEnv(t)

	pair, err := env.tokens.IssuePair("user-1", "alice@example.com")
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	require.Equal(t, env.clock.Now().Add(15*time.Minute), pair.AccessExpiresAt)
	require.Equal(t, env.clock.Now().Add(7*24*time.Hour), pair.RefreshExpiresAt)

	claims, err := env.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, jwtx.TypeAccess, claims.Type)

	claims, err = env.tokens.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, jwtx.TypeRefresh, claims.Type)
}

func TestTokenServiceRejectsWrongKind(t *testing.T) {
	env := newTestEnv(t)

	pair, err := env.tokens.IssuePair("user-1", "alice@example.com")
	require.NoError(t, err)
	reset, _, err := env.tokens.IssueReset("user-1", "alice@example.com")
	require.NoError(t, err)

	_, err = env.tokens.VerifyRefresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.tokens.VerifyAccess(pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.tokens.VerifyAccess(reset)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.tokens.VerifyReset(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceExpiry(t *testing.T) {
	env := newTestEnv(t)

	pair, err := env.tokens.IssuePair("user-1", "alice@example.com")
	require.NoError(t, err)

	env.clock.Advance(16 * time.Minute)

	_, err = env.tokens.VerifyAccess(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.tokens.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
}

func TestNewTokenServiceValidates(t *testing.T) {
	ok := TokenConfig{Secret: "s", TTL: time.Minute}

	_, err := NewTokenService("iss", TokenConfig{Secret: "", TTL: time.Minute}, ok, ok, nil)
	require.Error(t, err)

	_, err = NewTokenService("iss", ok, TokenConfig{Secret: "s"}, ok, nil)
	require.Error(t, err)

	_, err = NewTokenService("iss", ok, ok, ok, nil)
	require.NoError(t, err)
}
