package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func TestRegisterEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	resp, err := ts.client.Register(ctx, authsdk.RegisterRequest{
		Name:            "Alice",
		Email:           "Alice@Example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.False(t, resp.User.Verified)
	require.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.InDelta(t, 15*60, resp.ExpiresIn, 2)
	require.NotNil(t, resp.VerificationSent)
	require.True(t, *resp.VerificationSent)
	require.Len(t, ts.mail.code(t, "alice@example.com"), 6)

	t.Run("duplicate", func(t *testing.T) {
		_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
			Name:            "Alice",
			Email:           "alice@example.com",
			Password:        testPassword,
			ConfirmPassword: testPassword,
		})
		require.ErrorIs(t, err, authsdk.ErrAlreadyExists)
	})

	t.Run("validation details", func(t *testing.T) {
		_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
			Name:            "Bob",
			Email:           "not-an-email",
			Password:        "weak",
			ConfirmPassword: "different",
		})
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, apiErr.Code)
		require.Contains(t, apiErr.Details, "email")
		require.Contains(t, apiErr.Details, "password")
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		body := []byte(`{"name":"x","email":"x@example.com","password":"Str0ng!Password","confirm_password":"Str0ng!Password","admin":true}`)
		resp, err := http.Post(ts.server.URL+"/v1/auth/register", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRegisterEndpointMailFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.mail.fail = true

	resp, err := ts.client.Register(context.Background(), authsdk.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	require.NotNil(t, resp.VerificationSent)
	require.False(t, *resp.VerificationSent)
}

func TestLoginEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.client.Register(ctx, authsdk.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := ts.client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: "Wr0ng!Password"})
		require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
	})

	t.Run("unverified without code", func(t *testing.T) {
		_, err := ts.client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		require.Equal(t, authsdk.ErrorCodeVerificationRequired, apiErr.Code)
	})

	t.Run("unverified with wrong code", func(t *testing.T) {
		_, err := ts.client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword, OTP: "000000"})
		require.ErrorIs(t, err, authsdk.ErrInvalidOTP)
	})

	t.Run("code verifies the account", func(t *testing.T) {
		resp, err := ts.client.Login(ctx, authsdk.LoginRequest{
			Email:    "alice@example.com",
			Password: testPassword,
			OTP:      ts.mail.code(t, "alice@example.com"),
		})
		require.NoError(t, err)
		require.True(t, resp.User.Verified)
		require.Nil(t, resp.VerificationSent)
	})

	t.Run("verified login needs no code", func(t *testing.T) {
		_, err := ts.client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
		require.NoError(t, err)
	})
}

func TestSessionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	login := ts.registerVerified(t, "alice@example.com")

	me, err := ts.client.Me(ctx, login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, login.User.ID, me.ID)
	require.Equal(t, "Alice", me.Name)
	require.True(t, me.Verified)

	rotated, err := ts.client.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = ts.client.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials, "superseded refresh token")

	require.NoError(t, ts.client.Logout(ctx, rotated.AccessToken))

	_, err = ts.client.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials, "refresh after logout")

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := ts.client.Me(ctx, rotated.RefreshToken)
		var apiErr *authsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})
}

func TestRequestOTPEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	_, err := ts.client.RequestOTP(ctx, "ghost@example.com")
	require.ErrorIs(t, err, authsdk.ErrNotFound)

	_, err = ts.client.Register(ctx, authsdk.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)

	t.Run("throttled while the welcome code is live", func(t *testing.T) {
		body, _ := json.Marshal(authsdk.EmailRequest{Email: "alice@example.com"})
		resp, err := http.Post(ts.server.URL+"/v1/auth/request-otp", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

		var errResp authsdk.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
		require.Equal(t, authsdk.ErrorCodeThrottled, errResp.Error)
		require.Equal(t, 10, errResp.MinutesRemaining)
		require.Equal(t, strconv.Itoa(10*60), resp.Header.Get("Retry-After"))
	})

	t.Run("already verified", func(t *testing.T) {
		_, err := ts.client.Login(ctx, authsdk.LoginRequest{
			Email:    "alice@example.com",
			Password: testPassword,
			OTP:      ts.mail.code(t, "alice@example.com"),
		})
		require.NoError(t, err)

		_, err = ts.client.RequestOTP(ctx, "alice@example.com")
		require.ErrorIs(t, err, authsdk.ErrAlreadyVerified)
	})
}

func TestPasswordResetEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	login := ts.registerVerified(t, "alice@example.com")

	msg, err := ts.client.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err, "unknown emails look the same as known ones")
	require.NotEmpty(t, msg.Message)

	_, err = ts.client.ForgotPassword(ctx, "alice@example.com")
	require.NoError(t, err)
	token := ts.mail.resetToken(t, "alice@example.com")

	t.Run("weak password rejected", func(t *testing.T) {
		_, err := ts.client.ResetPassword(ctx, token, "weak")
		require.ErrorIs(t, err, authsdk.ErrInvalidRequest)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ts.client.ResetPassword(ctx, "not-a-token", "N3w!Password")
		require.ErrorIs(t, err, authsdk.ErrInvalidToken)
	})

	_, err = ts.client.ResetPassword(ctx, token, "N3w!Password")
	require.NoError(t, err)

	_, err = ts.client.ResetPassword(ctx, token, "Other!Passw0rd")
	require.ErrorIs(t, err, authsdk.ErrInvalidToken, "token is single use")

	_, err = ts.client.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials, "reset ends the session")

	_, err = ts.client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: testPassword})
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = ts.client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: "N3w!Password"})
	require.NoError(t, err)
}
