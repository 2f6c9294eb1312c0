package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestOTPPending(t *testing.T) {
	now := time.Now()
	otp := OTP{ExpiresAt: now.Add(time.Minute)}

	require.True(t, otp.Pending(now))
	require.False(t, otp.Pending(now.Add(time.Minute)))

	otp.Used = true
	require.False(t, otp.Pending(now))
}

func TestPurposeValid(t *testing.T) {
	require.True(t, PurposeResetPassword.Valid())
	require.False(t, OTPPurpose("LOGIN").Valid())
	require.True(t, StatusVerified.Valid())
	require.False(t, UserStatus("banned").Valid())
}
