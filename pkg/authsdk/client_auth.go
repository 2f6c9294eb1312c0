package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Register creates an account. The response carries a token pair even
// though the account still needs verifying.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	return c.auth(ctx, "/v1/auth/register", req, http.StatusCreated)
}

// Login signs in with email and password. An unverified account must pass
// the emailed code in req.OTP; without it the call fails with
// ErrVerificationRequired.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	return c.auth(ctx, "/v1/auth/login", req, http.StatusOK)
}

// Refresh rotates the session. The refresh token passed in stops working.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	return c.auth(ctx, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, http.StatusOK)
}

func (c *SDKClient) auth(ctx context.Context, path string, body any, expected int) (*AuthResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the session behind accessToken.
func (c *SDKClient) Logout(ctx context.Context, accessToken string) error {
	_, err := c.message(ctx, "/v1/auth/logout", accessToken, nil)
	return err
}

// Me returns the account behind accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*UserResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, "/v1/users/me", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes the display name of the account behind accessToken.
func (c *SDKClient) UpdateProfile(ctx context.Context, accessToken string, req UpdateProfileRequest) (*UserResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPatch, "/v1/users/me", accessToken, req)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestOTP mails a fresh verification code to an unverified account.
func (c *SDKClient) RequestOTP(ctx context.Context, email string) (*MessageResponse, error) {
	return c.message(ctx, "/v1/auth/request-otp", "", EmailRequest{Email: email})
}

// ForgotPassword mails a reset link. It succeeds for unknown addresses too.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	return c.message(ctx, "/v1/auth/forgot-password", "", EmailRequest{Email: email})
}

// ResetPassword sets a new password with the token from the reset link.
func (c *SDKClient) ResetPassword(ctx context.Context, token, password string) (*MessageResponse, error) {
	return c.message(ctx, "/v1/auth/reset-password/"+url.PathEscape(token), "", ResetPasswordRequest{Password: password})
}

func (c *SDKClient) message(ctx context.Context, path, bearer string, body any) (*MessageResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, bearer, body)
	if err != nil {
		return nil, err
	}

	var out MessageResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
