package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Host      string `env:"HOST"       envDefault:"0.0.0.0"`
	Port      int    `env:"PORT"       envDefault:"3000"`
	Env       string `env:"ENV"        envDefault:"dev"`  // dev, staging, prod
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"` // debug, info, warn, error
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json, text

	DBDriver     string `env:"DB_DRIVER"        envDefault:"sqlite"`
	DatabaseFile string `env:"DATABASE_FILE"    envDefault:"passage.db"`
	DatabaseURL  string `env:"DATABASE_URL"` // postgres only
	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	// Token lifetimes accept Go durations, a day suffix ("7d") or seconds.
	Issuer               string `env:"JWT_ISSUER"             envDefault:"passage"`
	JWTSecret            string `env:"JWT_SECRET"`
	JWTExpiration        string `env:"JWT_EXPIRATION"         envDefault:"1h"`
	RefreshJWTSecret     string `env:"REFRESH_JWT_SECRET"`
	RefreshJWTExpiration string `env:"REFRESH_JWT_EXPIRATION" envDefault:"7d"`
	ResetJWTSecret       string `env:"JWT_RESET_SECRET"`
	ResetJWTExpiration   string `env:"JWT_RESET_EXPIRATION"   envDefault:"15m"`
	OTPExpirationMinutes int    `env:"OTP_EXPIRATION_MINUTES" envDefault:"10"`

	// Google sign in is enabled when a client id is set.
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	// Mail is only sent when SMTPStatus is true; otherwise it is logged.
	SMTPStatus bool   `env:"SMTP_STATUS" envDefault:"false"`
	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   int    `env:"SMTP_PORT"   envDefault:"587"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	SMTPFrom   string `env:"SMTP_FROM"`

	ResetPasswordURL string `env:"RESET_PASSWORD_URL" envDefault:"http://localhost:3000/reset-password"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
	OTPRetention         time.Duration `env:"OTP_RETENTION"         envDefault:"0s"` // 0 keeps codes forever

	StrictRequests    int `env:"RATELIMIT_STRICT_REQUESTS"     envDefault:"10"`
	StrictWindowSec   int `env:"RATELIMIT_STRICT_WINDOW_SEC"   envDefault:"60"`
	StrictBurst       int `env:"RATELIMIT_STRICT_BURST"        envDefault:"10"`
	ModerateRequests  int `env:"RATELIMIT_MODERATE_REQUESTS"   envDefault:"60"`
	ModerateWindowSec int `env:"RATELIMIT_MODERATE_WINDOW_SEC" envDefault:"60"`
	ModerateBurst     int `env:"RATELIMIT_MODERATE_BURST"      envDefault:"30"`

	// Filled in by Validate.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

// LoadConfig reads the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks required settings and parses the token lifetimes. Every
// problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q must be %s or %s", c.DBDriver, DriverSQLite, DriverPostgres))
	}

	for _, s := range []struct{ name, value string }{
		{"JWT_SECRET", c.JWTSecret},
		{"REFRESH_JWT_SECRET", c.RefreshJWTSecret},
		{"JWT_RESET_SECRET", c.ResetJWTSecret},
	} {
		if s.value == "" {
			errs = append(errs, fmt.Errorf("%s is required", s.name))
		}
	}
	if c.JWTSecret != "" && c.JWTSecret == c.RefreshJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET and REFRESH_JWT_SECRET must differ"))
	}

	var err error
	if c.AccessTTL, err = jwtx.ParseTTL(c.JWTExpiration); err != nil {
		errs = append(errs, fmt.Errorf("JWT_EXPIRATION: %w", err))
	}
	if c.RefreshTTL, err = jwtx.ParseTTL(c.RefreshJWTExpiration); err != nil {
		errs = append(errs, fmt.Errorf("REFRESH_JWT_EXPIRATION: %w", err))
	}
	if c.ResetTTL, err = jwtx.ParseTTL(c.ResetJWTExpiration); err != nil {
		errs = append(errs, fmt.Errorf("JWT_RESET_EXPIRATION: %w", err))
	}

	if c.OTPExpirationMinutes < 1 || c.OTPExpirationMinutes > 60 {
		errs = append(errs, fmt.Errorf("OTP_EXPIRATION_MINUTES %d must be between 1 and 60", c.OTPExpirationMinutes))
	}

	if c.GoogleClientID != "" && (c.GoogleClientSecret == "" || c.GoogleCallbackURL == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET and GOOGLE_CALLBACK_URL are required with GOOGLE_CLIENT_ID"))
	}

	if c.SMTPStatus && c.SMTPHost == "" {
		errs = append(errs, errors.New("SMTP_HOST is required when SMTP_STATUS is true"))
	}

	if c.ResetPasswordURL == "" {
		errs = append(errs, errors.New("RESET_PASSWORD_URL is required"))
	}

	return errors.Join(errs...)
}

// OTPTTL is the lifetime of emailed codes.
func (c Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPExpirationMinutes) * time.Minute
}

func (c Config) GoogleEnabled() bool { return c.GoogleClientID != "" }

// RateLimits returns the strict and moderate limiter profiles. A zero
// request count disables that profile.
func (c Config) RateLimits() (strict, moderate httpx.RateLimitConfig) {
	strict = httpx.RateLimitConfig{
		RequestsPerWindow: c.StrictRequests,
		Window:            time.Duration(c.StrictWindowSec) * time.Second,
		Burst:             c.StrictBurst,
	}
	moderate = httpx.RateLimitConfig{
		RequestsPerWindow: c.ModerateRequests,
		Window:            time.Duration(c.ModerateWindowSec) * time.Second,
		Burst:             c.ModerateBurst,
	}
	return strict, moderate
}
