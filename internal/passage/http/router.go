package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/service"
	"github.com/aussiebroadwan/passage/internal/passage/store"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/aussiebroadwan/passage/pkg/slogx"

	_ "github.com/aussiebroadwan/passage/api/passage" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:generate swag init --dir ../../../ --generalInfo internal/passage/http/router.go --output ../../../api/passage --outputTypes go --packageName passage

// publicRoutes lists the patterns served without a bearer token. Every
// other route registered through handle requires one.
var publicRoutes = map[string]bool{
	"POST /v1/auth/register":               true,
	"POST /v1/auth/login":                  true,
	"POST /v1/auth/refresh":                true,
	"POST /v1/auth/forgot-password":        true,
	"POST /v1/auth/reset-password/{token}": true,
	"POST /v1/auth/request-otp":            true,
	"GET /v1/auth/google/login":            true,
	"GET /v1/auth/google/callback":         true,
	"GET /livez":                           true,
	"GET /readyz":                          true,
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AuthService *service.AuthService

	// OAuth is optional; without it the provider routes are not served.
	OAuth        OAuthProvider
	SecureCookie bool

	StrictLimit   httpx.RateLimitConfig
	ModerateLimit httpx.RateLimitConfig
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		verifier:      verifier,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		logger:        logger,
		StrictLimit:   httpx.StrictLimit,
		ModerateLimit: httpx.ModerateLimit,
	}

	r.middlewares = []httpx.Middleware{
		httpx.Recoverer,
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerGoogle()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Passage Authentication Service API
//	@version		0.1.0
//	@description	Email and password accounts with one-time code verification, password reset and Google sign in.
//	@description
//	@description				Access tokens are HS256 JWTs. Send them as "Authorization: Bearer {token}".
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/passage
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:3000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// handle registers h under pattern. Routes missing from publicRoutes get
// bearer authentication in front of mws.
func (r *Router) handle(pattern string, h http.Handler, mws ...httpx.Middleware) {
	if !publicRoutes[pattern] {
		mws = append([]httpx.Middleware{httpx.AuthnMiddleware(r.verifier)}, mws...)
	}
	r.Mux.Handle(pattern, httpx.Chain(h, mws...))
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential and code endpoints are brute force targets.
	r.handle("POST /v1/auth/register", http.HandlerFunc(h.HandleRegister),
		httpx.RateLimitByIP(r.StrictLimit),
	)
	r.handle("POST /v1/auth/login", http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIP(r.StrictLimit),
	)
	r.handle("POST /v1/auth/refresh", http.HandlerFunc(h.HandleRefresh),
		httpx.RateLimitByIP(r.ModerateLimit),
	)
	r.handle("POST /v1/auth/logout", http.HandlerFunc(h.HandleLogout),
		httpx.RateLimitByUser(r.ModerateLimit),
	)
	r.handle("POST /v1/auth/forgot-password", http.HandlerFunc(h.HandleForgotPassword),
		httpx.RateLimitByIP(r.StrictLimit),
	)
	r.handle("POST /v1/auth/reset-password/{token}", http.HandlerFunc(h.HandleResetPassword),
		httpx.RateLimitByIP(r.StrictLimit),
	)
	r.handle("POST /v1/auth/request-otp", http.HandlerFunc(h.HandleRequestOTP),
		httpx.RateLimitByIP(r.StrictLimit),
	)
}

func (r *Router) registerGoogle() {
	if r.OAuth == nil {
		return
	}
	h := &OAuthHandler{
		Provider:     r.OAuth,
		AuthService:  r.AuthService,
		SecureCookie: r.SecureCookie,
	}

	r.handle("GET /v1/auth/google/login", http.HandlerFunc(h.HandleLogin),
		httpx.RateLimitByIP(r.ModerateLimit),
	)
	r.handle("GET /v1/auth/google/callback", http.HandlerFunc(h.HandleCallback),
		httpx.RateLimitByIP(r.StrictLimit),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{AuthService: r.AuthService}

	r.handle("GET /v1/users/me", http.HandlerFunc(h.HandleMe),
		httpx.RateLimitByUser(r.ModerateLimit),
	)
	r.handle("PATCH /v1/users/me", http.HandlerFunc(h.HandleUpdateMe),
		httpx.RateLimitByUser(r.ModerateLimit),
	)
}

func (r *Router) registerSystem() {
	r.handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
