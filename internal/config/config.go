// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the quotadash server.
//
// DatabaseURL selects the storage backend: when set, users, sessions,
// and reset tokens live in PostgreSQL; when empty, everything is held
// in process memory and lost on restart.
type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	WebDir      string `env:"WEB_DIR" envDefault:"web"`
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	AuthBasePath  string        `env:"AUTH_BASE_PATH" envDefault:"/api/auth"`
	CookieName    string        `env:"COOKIE_NAME" envDefault:"qd_session"`
	CookieSecure  bool          `env:"COOKIE_SECURE" envDefault:"true"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h"`
	AllowedOrigin string        `env:"ALLOWED_ORIGIN"`

	MailgunDomain string `env:"MAILGUN_DOMAIN"`
	MailgunKey    string `env:"MAILGUN_KEY"`
	MailFrom      string `env:"MAIL_FROM" envDefault:"no-reply@quotadash.local"`

	AlertEmail          string  `env:"ALERT_EMAIL"`
	UsageAlertThreshold float64 `env:"USAGE_ALERT_THRESHOLD" envDefault:"80"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
