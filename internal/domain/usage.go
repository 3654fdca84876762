package domain

import (
	"context"
	"time"
)

// Provider is a configured external API provider with a usage quota.
type Provider struct {
	Name  string
	Quota float64
}

// UsageReading is one provider's current usage against its quota.
type UsageReading struct {
	Provider  string    `json:"provider"`
	Used      float64   `json:"used"`
	Quota     float64   `json:"quota"`
	Percent   float64   `json:"percent"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// FetchFunc fetches the current usage for one provider given its API
// credential. Implementations are external collaborators; the core only
// cares that they return a reading or an error.
type FetchFunc func(ctx context.Context, credential string) (float64, error)
