package authsdk

import "time"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a stable machine readable code such as "invalid_credentials".
	Error string `json:"error"`

	// ErrorDescription is a human readable explanation.
	ErrorDescription string `json:"error_description"`

	// Details maps request fields to validation messages.
	Details map[string]string `json:"details,omitempty"`

	// MinutesRemaining is set on "throttled" responses.
	MinutesRemaining int `json:"minutes_remaining,omitempty"`
}

// ============================================================================
// Requests
// ============================================================================

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// OTP is required while the account is unverified.
	OTP string `json:"otp,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// EmailRequest is the body of forgot-password and request-otp.
type EmailRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

// ============================================================================
// Responses
// ============================================================================

type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthResponse is returned by register, login, refresh and the provider
// callback.
type AuthResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`

	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int `json:"expires_in"`

	// RefreshExpiresIn is the refresh token lifetime in seconds.
	RefreshExpiresIn int `json:"refresh_expires_in"`

	// VerificationSent is only present on register.
	VerificationSent *bool `json:"verification_sent,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
