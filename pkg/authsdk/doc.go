/*
Package authsdk is the client for the passage authentication service and
the home of its wire types.

The server encodes the request and response types defined here, so the
client and the service never drift apart. Request types carry Validate
methods built on ozzo-validation; the server runs the same checks.

# Usage

	client := authsdk.NewSDKClient("https://auth.example.com")

	reg, err := client.Register(ctx, authsdk.RegisterRequest{
		Name:            "Alice",
		Email:           "alice@example.com",
		Password:        "Str0ng!Pass",
		ConfirmPassword: "Str0ng!Pass",
	})

	// The account is unverified until the emailed code is presented.
	_, err = client.Login(ctx, authsdk.LoginRequest{Email: "alice@example.com", Password: "Str0ng!Pass"})
	if errors.Is(err, authsdk.ErrVerificationRequired) {
		login, err := client.Login(ctx, authsdk.LoginRequest{
			Email:    "alice@example.com",
			Password: "Str0ng!Pass",
			OTP:      codeFromEmail,
		})
	}

	me, err := client.Me(ctx, login.AccessToken)

# Errors

Every failed call returns an *APIError. Compare with errors.Is against the
predefined values (ErrInvalidCredentials, ErrThrottled and so on); the
match is on the error code only. A throttled response carries
MinutesRemaining.
*/
package authsdk
