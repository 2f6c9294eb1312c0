package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/internal/passage/service"
	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/aussiebroadwan/passage/pkg/httpx"
)

type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleRegister creates an unverified account and mails a verification code.
//
//	@Summary		Register
//	@Description	Creates an unverified account and signs it in. A verification code is mailed to the address;
//	@Description	verification_sent is false when that email could not be delivered.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest	true	"Account details"
//	@Success		201		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email already registered"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Failure		500		{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.AuthService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := toAuthResponse("User registered successfully", res)
	resp.VerificationSent = &res.VerificationSent
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleLogin authenticates with email and password.
//
//	@Summary		Login
//	@Description	Authenticates with email and password. Unverified accounts must also send the latest emailed code
//	@Description	in otp; a correct code verifies the account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed or invalid code"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Invalid credentials"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Verification required"
//	@Failure		429		{object}	authsdk.ErrorResponse	"Rate limited"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		OTP:      req.OTP,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAuthResponse("Login successful", res))
}

// HandleRefresh rotates the session.
//
//	@Summary		Refresh tokens
//	@Description	Exchanges the current refresh token for a new pair. The presented token stops working.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Refresh token invalid or superseded"
//	@Router			/v1/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	res, err := h.AuthService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAuthResponse("Token refreshed successfully", res))
}

// HandleLogout ends the caller's session.
//
//	@Summary		Logout
//	@Description	Revokes the refresh token of the authenticated user. Access tokens stay valid until they expire.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MessageResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	if err := h.AuthService.Logout(r.Context(), userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Logged out successfully"})
}

// HandleForgotPassword mails a password reset link.
//
//	@Summary		Forgot password
//	@Description	Mails a single use reset link. Succeeds for unknown addresses too.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"Account email"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		429		{object}	authsdk.ErrorResponse	"A link was sent recently"
//	@Failure		502		{object}	authsdk.ErrorResponse	"Email could not be sent"
//	@Router			/v1/auth/forgot-password [post].
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.AuthService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{
		Message: "If the account exists, a password reset link has been sent",
	})
}

// HandleResetPassword sets a new password using the emailed token.
//
//	@Summary		Reset password
//	@Description	Sets a new password. The token is single use; success verifies the account and ends its session.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			token	path		string							true	"Reset token from the email link"
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"New password"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed or token invalid"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Account no longer exists"
//	@Router			/v1/auth/reset-password/{token} [post].
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.ResetPasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.AuthService.ResetPassword(r.Context(), token, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "Password reset successfully"})
}

// HandleRequestOTP mails a fresh verification code.
//
//	@Summary		Request verification code
//	@Description	Mails a new code to an unverified account. Only one live code exists per account.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"Account email"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed"
//	@Failure		404		{object}	authsdk.ErrorResponse	"Unknown email"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Already verified"
//	@Failure		429		{object}	authsdk.ErrorResponse	"A code was sent recently"
//	@Failure		502		{object}	authsdk.ErrorResponse	"Email could not be sent"
//	@Router			/v1/auth/request-otp [post].
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.AuthService.RequestOTP(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "OTP sent successfully"})
}

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Verified:  u.Verified(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toAuthResponse(msg string, res *service.AuthResult) authsdk.AuthResponse {
	now := time.Now()
	return authsdk.AuthResponse{
		Message:          msg,
		User:             toUserResponse(res.User),
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        secondsUntil(res.Tokens.AccessExpiresAt, now),
		RefreshExpiresIn: secondsUntil(res.Tokens.RefreshExpiresAt, now),
	}
}

func secondsUntil(t, now time.Time) int {
	s := int(t.Sub(now).Round(time.Second) / time.Second)
	return max(s, 0)
}
