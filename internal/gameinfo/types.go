//nolint:tagliatelle // superior snake-case yo.
package gameinfo

//go:generate mockgen -package mocks -destination mocks/mock_provider.go github.com/ethpandaops/overlay-backend/internal/gameinfo Provider

import (
	"context"
	"time"
)

// Record is the flat, display-ready view of a game.
type Record struct {
	Name         string        `json:"name"`
	CoverURL     string        `json:"cover_url"`
	Platforms    []string      `json:"platforms"`
	ReleaseDates []ReleaseDate `json:"release_dates"`
	Developers   []string      `json:"developers"`
	Publishers   []string      `json:"publishers"`
}

// ReleaseDate is the earliest release in a region, formatted as YYYY-MM.
type ReleaseDate struct {
	Date   string `json:"date"`
	Region string `json:"region"`
}

// Snapshot is what the provider stores: the channel's current game name
// and the record matched for it, if any.
type Snapshot struct {
	GameName  string    `json:"game_name"`
	Record    *Record   `json:"record,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Found reports whether the snapshot holds a matched record.
func (s *Snapshot) Found() bool {
	return s != nil && s.Record != nil
}

// Provider serves the current game info snapshot.
type Provider interface {
	Start(ctx context.Context) error
	Stop() error
	// Get returns the last stored snapshot.
	Get(ctx context.Context) (*Snapshot, bool)
	// Refresh fetches from upstream immediately and stores the result.
	Refresh(ctx context.Context) (*Snapshot, error)
	// NotifyChannel signals when the stored snapshot has changed.
	NotifyChannel() <-chan struct{}
}
