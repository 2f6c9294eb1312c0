package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/passage/pkg/httpx"
)

// ============================================================================
// Error Codes
// ============================================================================

const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeVerificationRequired = "verification_required"
	ErrorCodeAlreadyExists        = "already_exists"
	ErrorCodeNotFound             = "not_found"
	ErrorCodeAlreadyVerified      = "already_verified"
	ErrorCodeThrottled            = "throttled"
	ErrorCodeInvalidToken         = "invalid_token"
	ErrorCodeEmailMismatch        = "email_mismatch"
	ErrorCodeInvalidOTP           = "invalid_otp"
	ErrorCodeNotificationFailed   = "notification_failed"
	ErrorCodeRateLimited          = "rate_limited"
	ErrorCodeServerError          = "server_error"
)

// ============================================================================
// APIError
// ============================================================================

// APIError is the error body shared by every endpoint. The server writes
// it with WriteError and the client returns it from failed calls.
type APIError struct {
	StatusCode       int               `json:"-"`
	Code             string            `json:"error"`
	Description      string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`
	MinutesRemaining int               `json:"minutes_remaining,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches another *APIError with the same code, so callers can write
// errors.Is(err, authsdk.ErrThrottled).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// WriteError writes e as the JSON response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	if e.Code == ErrorCodeThrottled && e.MinutesRemaining > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.MinutesRemaining*60))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(e)
}

// ============================================================================
// Predefined Errors
// ============================================================================

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required fields",
	}

	// ErrInvalidCredentials does not say whether the email or the password
	// was wrong.
	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid credentials",
	}

	ErrVerificationRequired = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeVerificationRequired,
		Description: "email not verified, supply the code sent by email",
	}

	ErrAlreadyExists = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyExists,
		Description: "an account with this email already exists",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "user not found",
	}

	ErrAlreadyVerified = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyVerified,
		Description: "email is already verified",
	}

	// ErrThrottled is the template for NewThrottledError; match with errors.Is.
	ErrThrottled = &APIError{
		StatusCode:  http.StatusTooManyRequests,
		Code:        ErrorCodeThrottled,
		Description: "a code was sent recently",
	}

	// ErrInvalidToken covers reset tokens and bearer tokens alike.
	ErrInvalidToken = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidToken,
		Description: "the token is invalid, expired or already used",
	}

	ErrEmailMismatch = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeEmailMismatch,
		Description: "the token was issued for a different email",
	}

	ErrInvalidOTP = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidOTP,
		Description: "invalid or expired code",
	}

	ErrNotificationFailed = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeNotificationFailed,
		Description: "the email could not be sent, try again",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

// NewThrottledError reports how long until a new code may be requested.
func NewThrottledError(minutes int) *APIError {
	return &APIError{
		StatusCode:       http.StatusTooManyRequests,
		Code:             ErrorCodeThrottled,
		Description:      fmt.Sprintf("a code was sent recently, try again in %d minute(s)", minutes),
		MinutesRemaining: minutes,
	}
}

// NewValidationError is a 400 carrying per-field messages.
func NewValidationError(details map[string]string) *APIError {
	return &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "validation failed",
		Details:     details,
	}
}

// ============================================================================
// Error Parsing
// ============================================================================

// parseErrorResponse turns a non-2xx response into an *APIError.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:       resp.StatusCode,
			Code:             errResp.Error,
			Description:      errResp.ErrorDescription,
			Details:          errResp.Details,
			MinutesRemaining: errResp.MinutesRemaining,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
