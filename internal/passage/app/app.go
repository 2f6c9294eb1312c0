package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/passage/internal/passage/http"
	"github.com/aussiebroadwan/passage/internal/passage/notify"
	"github.com/aussiebroadwan/passage/internal/passage/oauth"
	"github.com/aussiebroadwan/passage/internal/passage/service"
	"github.com/aussiebroadwan/passage/internal/passage/store"
	"github.com/aussiebroadwan/passage/internal/passage/store/drivers/postgres"
	"github.com/aussiebroadwan/passage/internal/passage/store/drivers/sqlite"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/aussiebroadwan/passage/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application owns the store, services and HTTP server of one process.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	tokenService        *service.TokenService
	otpService          *service.OTPService
	authService         *service.AuthService
	housekeepingService *service.HousekeepingService // nil unless OTP_RETENTION > 0
	google              *oauth.Google                // nil unless GOOGLE_CLIENT_ID is set

	server *http.Server
	router *httpapi.Router
}

// New builds the application from cfg. cfg must have passed Validate.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "passage",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initOAuth(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
	}

	app.logger.Info("passage starting",
		slog.String("addr", app.server.Addr),
		slog.String("db_driver", app.cfg.DBDriver),
		slog.Bool("smtp", app.cfg.SMTPStatus),
		slog.Bool("google", app.google != nil),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = app.Shutdown()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops background work and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down passage...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", slog.Any("error", err))
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", slog.Any("error", err))
		}
	}

	if app.housekeepingService != nil {
		app.housekeepingService.Stop()
	}
	if app.google != nil {
		app.google.Close()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", slog.Any("error", err))
		return err
	}

	app.logger.Info("passage stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

func (app *Application) initDatabase(ctx context.Context) error {
	switch app.cfg.DBDriver {
	case DriverPostgres:
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		db, err := postgres.NewStore(connectCtx, app.cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	default:
		db, err := sqlite.NewStore(app.cfg.DatabaseFile)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
	}

	if err := app.db.ApplyMigrations(); err != nil {
		_ = app.db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", slog.String("driver", app.cfg.DBDriver))
	return nil
}

func (app *Application) initServices() error {
	pepper, err := cryptox.LoadOrCreatePepper(app.cfg.PepperFile)
	if err != nil {
		return fmt.Errorf("failed to load pepper: %w", err)
	}
	hasher := cryptox.NewArgon2Hasher(pepper)

	app.tokenService, err = service.NewTokenService(app.cfg.Issuer,
		service.TokenConfig{Secret: app.cfg.JWTSecret, TTL: app.cfg.AccessTTL},
		service.TokenConfig{Secret: app.cfg.RefreshJWTSecret, TTL: app.cfg.RefreshTTL},
		service.TokenConfig{Secret: app.cfg.ResetJWTSecret, TTL: app.cfg.ResetTTL},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}

	app.otpService = &service.OTPService{
		Store:  app.db,
		Hasher: hasher,
		Tokens: app.tokenService,
		TTL:    app.cfg.OTPTTL(),
	}

	sender, err := app.newSender()
	if err != nil {
		return err
	}

	app.authService = &service.AuthService{
		Store:            app.db,
		Hasher:           hasher,
		Tokens:           app.tokenService,
		OTPs:             app.otpService,
		Notifier:         notify.NewMailer(sender),
		ResetPasswordURL: app.cfg.ResetPasswordURL,
	}

	if app.cfg.OTPRetention > 0 {
		app.housekeepingService = service.NewHousekeepingService(
			app.db,
			app.logger,
			app.cfg.HousekeepingInterval,
			app.cfg.OTPRetention,
		)
	}
	return nil
}

func (app *Application) newSender() (notify.Sender, error) {
	if !app.cfg.SMTPStatus {
		app.logger.Warn("SMTP_STATUS is not true, emails will only be logged")
		return notify.LogSender{}, nil
	}

	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUser,
		Password: app.cfg.SMTPPass,
		From:     app.cfg.SMTPFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize smtp: %w", err)
	}
	return sender, nil
}

func (app *Application) initOAuth() error {
	if !app.cfg.GoogleEnabled() {
		return nil
	}

	google, err := oauth.NewGoogle(oauth.GoogleConfig{
		ClientID:     app.cfg.GoogleClientID,
		ClientSecret: app.cfg.GoogleClientSecret,
		RedirectURL:  app.cfg.GoogleCallbackURL,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize google sign in: %w", err)
	}
	app.google = google
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokenService.AccessVerifier(),
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.StrictLimit, router.ModerateLimit = app.cfg.RateLimits()
	if app.google != nil {
		router.OAuth = app.google
		router.SecureCookie = strings.HasPrefix(app.cfg.GoogleCallbackURL, "https://")
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              net.JoinHostPort(app.cfg.Host, strconv.Itoa(app.cfg.Port)),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
