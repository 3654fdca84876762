package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	adapthttp "quotadash/internal/adapter/http"
	"quotadash/internal/adapter/memory"
	"quotadash/internal/adapter/postgres"
	"quotadash/internal/app"
	"quotadash/internal/config"
	"quotadash/internal/domain"
	"quotadash/internal/mail"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	var (
		users    domain.UserStore
		sessions domain.SessionStore
		resets   domain.ResetTokenStore
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("db open", "err", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		users = db
		sessions = postgres.NewSessionStore(db)
		resets = postgres.NewResetTokenStore(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores; data is lost on restart")
		db := memory.New()
		users = db
		sessions = db.NewSessionStore()
		resets = db.NewResetTokenStore()
	}

	var (
		sender mail.Sender      = mail.NoopSender{}
		alerts mail.AlertSender = mail.NoopSender{}
	)
	if cfg.MailgunDomain != "" && cfg.MailgunKey != "" {
		mg := mail.NewMailgunSender(cfg.MailgunDomain, cfg.MailgunKey, cfg.MailFrom, cfg.BaseURL)
		sender, alerts = mg, mg
	} else {
		log.Warn("mailgun not configured, outbound email is discarded")
	}

	authSvc := app.NewAuthService(users, sessions, resets, sender, log,
		app.WithSessionTTL(cfg.SessionTTL),
		app.WithResetTTL(cfg.ResetTokenTTL),
	)

	var usageOpts []app.UsageOption
	if cfg.AlertEmail != "" {
		usageOpts = append(usageOpts, app.WithUsageAlerts(alerts, cfg.AlertEmail, cfg.UsageAlertThreshold))
	}
	usageSvc := app.NewUsageService(log, usageOpts...)
	registerProviders(usageSvc)

	// Expiry is enforced lazily on read; this sweep just keeps the
	// stores from accumulating dead entries.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			authSvc.PurgeExpired(context.Background())
		}
	}()

	h := adapthttp.New(authSvc, usageSvc, log,
		adapthttp.WithBasePath(cfg.AuthBasePath),
		adapthttp.WithCookie(cfg.CookieName, cfg.CookieSecure),
		adapthttp.WithSessionTTL(cfg.SessionTTL),
		adapthttp.WithAllowedOrigin(cfg.AllowedOrigin),
		adapthttp.WithWebDir(cfg.WebDir),
	).Handler()

	log.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server", "err", err)
		os.Exit(1)
	}
}

// registerProviders wires the per-provider usage fetchers. Each fetcher
// is an opaque collaborator keyed by an env credential; providers
// without a credential report zero usage.
func registerProviders(svc *app.UsageService) {
	for _, p := range []domain.Provider{
		{Name: "openai", Quota: 1000},
		{Name: "anthropic", Quota: 1000},
		{Name: "perplexity", Quota: 500},
		{Name: "gemini", Quota: 1000},
		{Name: "huggingface", Quota: 500},
	} {
		credential := os.Getenv(strings.ToUpper(p.Name) + "_API_KEY")
		svc.Register(p, credential, fetchStub)
	}
}

// fetchStub stands in for the real provider API calls, which are
// outside this service's scope.
func fetchStub(ctx context.Context, credential string) (float64, error) {
	return 0, nil
}
