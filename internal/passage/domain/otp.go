package domain

import "time"

// OTPPurpose scopes a one-time code to the flow that requested it.
type OTPPurpose string

const (
	// PurposeEmailVerification is sent on registration.
	PurposeEmailVerification OTPPurpose = "EMAIL_VERIFICATION"
	// PurposeResetOTP is a resent verification code.
	PurposeResetOTP OTPPurpose = "RESET_OTP"
	// PurposeResetPassword holds a reset token rather than a numeric code.
	PurposeResetPassword OTPPurpose = "RESET_PASSWORD"
)

func (p OTPPurpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposeResetOTP, PurposeResetPassword:
		return true
	}
	return false
}

// MaxOTPAttempts is how many wrong guesses retire a code.
const MaxOTPAttempts = 5

// OTP is a stored one-time secret. Only the hash of the code is kept.
type OTP struct {
	ID        string
	UserID    string
	TokenHash string
	Used      bool
	Attempts  int // failed guesses against this record
	Purpose   OTPPurpose
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Pending reports whether the record can still be redeemed at now.
func (o OTP) Pending(now time.Time) bool {
	return !o.Used && now.Before(o.ExpiresAt)
}
