package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("REFRESH_JWT_SECRET", "refresh-secret")
	t.Setenv("JWT_RESET_SECRET", "reset-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 3000, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.DBDriver)
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 15*time.Minute, cfg.ResetTTL)
	require.Equal(t, 10*time.Minute, cfg.OTPTTL())
	require.Equal(t, 587, cfg.SMTPPort)
	require.False(t, cfg.SMTPStatus)
	require.False(t, cfg.GoogleEnabled())
	require.Zero(t, cfg.OTPRetention)

	strict, moderate := cfg.RateLimits()
	require.Equal(t, 10, strict.RequestsPerWindow)
	require.Equal(t, time.Minute, strict.Window)
	require.Equal(t, 60, moderate.RequestsPerWindow)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("JWT_EXPIRATION", "900")
	t.Setenv("REFRESH_JWT_EXPIRATION", "30d")
	t.Setenv("OTP_EXPIRATION_MINUTES", "5")
	t.Setenv("OTP_RETENTION", "48h")
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 8081, cfg.Port)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL())
	require.Equal(t, 48*time.Hour, cfg.OTPRetention)

	strict, _ := cfg.RateLimits()
	require.True(t, strict.Disabled())
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:                 3000,
			DBDriver:             DriverSQLite,
			DatabaseFile:         "passage.db",
			JWTSecret:            "a",
			JWTExpiration:        "1h",
			RefreshJWTSecret:     "b",
			RefreshJWTExpiration: "7d",
			ResetJWTSecret:       "c",
			ResetJWTExpiration:   "15m",
			OTPExpirationMinutes: 10,
			ResetPasswordURL:     "https://app.example/reset-password",
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing access secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		{"shared secrets", func(c *Config) { c.RefreshJWTSecret = c.JWTSecret }, "must differ"},
		{"bad ttl", func(c *Config) { c.JWTExpiration = "soon" }, "JWT_EXPIRATION"},
		{"otp too long", func(c *Config) { c.OTPExpirationMinutes = 61 }, "OTP_EXPIRATION_MINUTES"},
		{"otp zero", func(c *Config) { c.OTPExpirationMinutes = 0 }, "OTP_EXPIRATION_MINUTES"},
		{"unknown driver", func(c *Config) { c.DBDriver = "mysql" }, "DB_DRIVER"},
		{"postgres without url", func(c *Config) { c.DBDriver = DriverPostgres }, "DATABASE_URL"},
		{"smtp without host", func(c *Config) { c.SMTPStatus = true }, "SMTP_HOST"},
		{"google without secret", func(c *Config) { c.GoogleClientID = "id" }, "GOOGLE_CLIENT_SECRET"},
		{"bad port", func(c *Config) { c.Port = 0 }, "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.ErrorContains(t, err, tt.want)
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		cfg := valid()
		cfg.JWTSecret = ""
		cfg.ResetJWTSecret = ""
		err := cfg.Validate()
		require.ErrorContains(t, err, "JWT_SECRET is required")
		require.ErrorContains(t, err, "JWT_RESET_SECRET is required")
	})
}
