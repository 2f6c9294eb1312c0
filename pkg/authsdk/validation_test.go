package authsdk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "Str0ng!Pass",
		ConfirmPassword: "Str0ng!Pass",
	}
	require.NoError(t, valid.Validate())

	tests := map[string]struct {
		mutate func(*RegisterRequest)
		field  string
	}{
		"missing name":     {func(r *RegisterRequest) { r.Name = "" }, "name"},
		"bad email":        {func(r *RegisterRequest) { r.Email = "not-an-email" }, "email"},
		"short password":   {func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "S0!a", "S0!a" }, "password"},
		"no symbol":        {func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "Str0ngPass", "Str0ngPass" }, "password"},
		"no upper":         {func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "str0ng!pass", "str0ng!pass" }, "password"},
		"no digit":         {func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "Strong!Pass", "Strong!Pass" }, "password"},
		"confirm mismatch": {func(r *RegisterRequest) { r.ConfirmPassword = "Other!Pass1" }, "confirm_password"},
		"confirm missing":  {func(r *RegisterRequest) { r.ConfirmPassword = "" }, "confirm_password"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			details := ValidationDetails(req.Validate())
			require.Contains(t, details, tc.field)
		})
	}
}

func TestLoginRequestValidate(t *testing.T) {
	require.NoError(t, LoginRequest{Email: "alice@example.com", Password: "x"}.Validate())
	require.NoError(t, LoginRequest{Email: "alice@example.com", Password: "x", OTP: "123456"}.Validate())

	details := ValidationDetails(LoginRequest{Email: "alice"}.Validate())
	require.Contains(t, details, "email")
	require.Contains(t, details, "password")
}

func TestResetPasswordRequestValidate(t *testing.T) {
	require.NoError(t, ResetPasswordRequest{Password: "N3w!Password"}.Validate())
	require.Contains(t, ValidationDetails(ResetPasswordRequest{Password: "weak"}.Validate()), "password")
}

func TestUpdateProfileRequestValidate(t *testing.T) {
	require.NoError(t, UpdateProfileRequest{Name: "Alice Liddell"}.Validate())
	require.NoError(t, UpdateProfileRequest{Name: strings.Repeat("a", 100)}.Validate())

	for _, name := range []string{"", "  \t", strings.Repeat("a", 101)} {
		require.Contains(t, ValidationDetails(UpdateProfileRequest{Name: name}.Validate()), "name", "%q", name)
	}
}

func TestValidationDetailsIgnoresOtherErrors(t *testing.T) {
	require.Nil(t, ValidationDetails(nil))
	require.Nil(t, ValidationDetails(ErrServerError))
}
