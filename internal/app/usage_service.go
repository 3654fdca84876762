package app

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"quotadash/internal/domain"
	"quotadash/internal/mail"
)

// providerEntry pairs a configured provider with its fetch collaborator
// and credential.
type providerEntry struct {
	provider   domain.Provider
	credential string
	fetch      domain.FetchFunc
}

// UsageService produces usage snapshots across the configured
// providers. The per-provider fetchers are opaque collaborators
// registered at startup; a fetcher that fails contributes a reading
// with its error string instead of failing the whole snapshot.
type UsageService struct {
	entries []providerEntry
	log     *slog.Logger

	alerts    mail.AlertSender
	alertTo   string
	threshold float64
}

// UsageOption customizes a UsageService.
type UsageOption func(*UsageService)

// WithUsageAlerts emails to when a provider's usage reaches
// thresholdPercent of its quota. The check runs on every snapshot, so
// a provider staying above the threshold alerts again on the next one.
func WithUsageAlerts(sender mail.AlertSender, to string, thresholdPercent float64) UsageOption {
	return func(s *UsageService) {
		s.alerts = sender
		s.alertTo = to
		s.threshold = thresholdPercent
	}
}

// NewUsageService creates an empty usage service.
func NewUsageService(log *slog.Logger, opts ...UsageOption) *UsageService {
	if log == nil {
		log = slog.Default()
	}
	s := &UsageService{log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a provider with its credential and fetch function.
// Registration happens at startup only; Snapshot must not run
// concurrently with Register.
func (s *UsageService) Register(p domain.Provider, credential string, fetch domain.FetchFunc) {
	s.entries = append(s.entries, providerEntry{provider: p, credential: credential, fetch: fetch})
}

// Snapshot fetches current usage for every registered provider and
// returns readings sorted by provider name. When alerting is
// configured, providers at or above the threshold trigger a
// notification email; a failed send is logged and never fails the
// snapshot.
func (s *UsageService) Snapshot(ctx context.Context) []domain.UsageReading {
	readings := make([]domain.UsageReading, 0, len(s.entries))
	now := time.Now().UTC()

	for _, e := range s.entries {
		r := domain.UsageReading{
			Provider:  e.provider.Name,
			Quota:     e.provider.Quota,
			FetchedAt: now,
		}
		used, err := e.fetch(ctx, e.credential)
		if err != nil {
			s.log.Warn("usage fetch failed", "provider", e.provider.Name, "err", err)
			r.Error = err.Error()
		} else {
			r.Used = used
			if e.provider.Quota > 0 {
				r.Percent = used / e.provider.Quota * 100
			}
			if s.alerts != nil && e.provider.Quota > 0 && r.Percent >= s.threshold {
				if err := s.alerts.SendUsageAlert(ctx, s.alertTo, r.Provider, r.Used, r.Percent); err != nil {
					s.log.Warn("usage alert failed", "provider", r.Provider, "err", err)
				}
			}
		}
		readings = append(readings, r)
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Provider < readings[j].Provider
	})
	return readings
}
