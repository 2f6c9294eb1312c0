package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/internal/passage/service"
	"github.com/aussiebroadwan/passage/pkg/authsdk"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/slogx"
	"golang.org/x/oauth2"
)

const (
	stateCookie    = "passage_oauth_state"
	verifierCookie = "passage_oauth_verifier"

	// oauthCookieMaxAge bounds how long the user may sit on the consent screen.
	oauthCookieMaxAge = 600
)

// OAuthProvider is the part of an identity provider the handlers need.
type OAuthProvider interface {
	AuthCodeURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (domain.ExternalProfile, error)
}

type OAuthHandler struct {
	Provider     OAuthProvider
	AuthService  *service.AuthService
	SecureCookie bool
}

// HandleLogin redirects the browser to the provider's consent screen.
//
//	@Summary		Google sign in
//	@Description	Redirects to Google. State and PKCE verifier are kept in short lived cookies.
//	@Tags			OAuth
//	@Success		302
//	@Failure		500	{object}	authsdk.ErrorResponse	"Internal server error"
//	@Router			/v1/auth/google/login [get].
func (h *OAuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := cryptox.GenerateToken(32)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	verifier := oauth2.GenerateVerifier()

	h.setCookie(w, stateCookie, state, oauthCookieMaxAge)
	h.setCookie(w, verifierCookie, verifier, oauthCookieMaxAge)

	httpx.NoCache(w)
	http.Redirect(w, r, h.Provider.AuthCodeURL(state, verifier), http.StatusFound)
}

// HandleCallback completes the provider flow and signs the user in.
//
//	@Summary		Google callback
//	@Description	Exchanges the authorization code, creating a verified account on first sign in.
//	@Tags			OAuth
//	@Produce		json
//	@Param			state	query		string	true	"State echoed by Google"
//	@Param			code	query		string	true	"Authorization code"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"State mismatch or missing code"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Provider rejected the sign in"
//	@Router			/v1/auth/google/callback [get].
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())
	q := r.URL.Query()

	// The cookies are single use whatever the outcome.
	h.setCookie(w, stateCookie, "", -1)
	h.setCookie(w, verifierCookie, "", -1)

	if e := q.Get("error"); e != "" {
		l.Info("provider denied sign in", slog.String("reason", e))
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" ||
		subtle.ConstantTimeCompare([]byte(state.Value), []byte(q.Get("state"))) != 1 {
		l.Info("oauth state mismatch")
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	verifier, err := r.Cookie(verifierCookie)
	code := q.Get("code")
	if err != nil || code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	profile, err := h.Provider.Exchange(r.Context(), code, verifier.Value)
	if err != nil {
		l.Warn("oauth exchange failed", slog.Any("error", err))
		authsdk.ErrInvalidCredentials.WriteError(w)
		return
	}

	res, err := h.AuthService.OAuthLogin(r.Context(), profile)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toAuthResponse("Google login successful", res))
}

func (h *OAuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/v1/auth/google",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
