package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/passage/internal/passage/service"
	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// serviceErrors maps service sentinels onto their wire form. Throttling is
// handled separately because it carries the remaining cooldown.
var serviceErrors = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrVerificationRequired, authsdk.ErrVerificationRequired},
	{service.ErrAlreadyExists, authsdk.ErrAlreadyExists},
	{service.ErrNotFound, authsdk.ErrNotFound},
	{service.ErrAlreadyVerified, authsdk.ErrAlreadyVerified},
	{service.ErrInvalidToken, authsdk.ErrInvalidToken},
	{service.ErrEmailMismatch, authsdk.ErrEmailMismatch},
	{service.ErrInvalidOTP, authsdk.ErrInvalidOTP},
	{service.ErrNotificationFailed, authsdk.ErrNotificationFailed},
	{service.ErrInvalidName, authsdk.ErrInvalidRequest},
}

// writeServiceError renders err from the service layer. Unknown errors are
// logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var throttled *service.ThrottledError
	if errors.As(err, &throttled) {
		authsdk.NewThrottledError(throttled.MinutesRemaining).WriteError(w)
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			m.api.WriteError(w)
			return
		}
	}

	slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	authsdk.ErrServerError.WriteError(w)
}

// validatable is implemented by every authsdk request body.
type validatable interface {
	Validate() error
}

// decodeRequest reads and validates a JSON body, writing the 400 itself.
// It reports whether the handler should continue.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("bad request body", slog.Any("error", err))
		authsdk.ErrInvalidRequest.WriteError(w)
		return false
	}
	if err := dst.Validate(); err != nil {
		authsdk.NewValidationError(authsdk.ValidationDetails(err)).WriteError(w)
		return false
	}
	return true
}
