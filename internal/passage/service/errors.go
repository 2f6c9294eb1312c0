package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrAlreadyExists        = errors.New("already_exists")
	ErrNotFound             = errors.New("not_found")
	ErrVerificationRequired = errors.New("verification_required")
	ErrThrottled            = errors.New("throttled")
	ErrInvalidToken         = errors.New("invalid_token")
	ErrEmailMismatch        = errors.New("email_mismatch")
	ErrAlreadyVerified      = errors.New("already_verified")
	ErrInvalidOTP           = errors.New("invalid_otp")
	ErrNotificationFailed   = errors.New("notification_failed")
	ErrInvalidName          = errors.New("invalid_name")
)

// ThrottledError is returned when a code for the same purpose is still
// live. It matches ErrThrottled with errors.Is.
type ThrottledError struct {
	MinutesRemaining int
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled: a code was already sent, retry in %d minute(s)", e.MinutesRemaining)
}

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }
