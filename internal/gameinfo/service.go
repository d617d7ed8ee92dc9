package gameinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/igdb"
	"github.com/ethpandaops/overlay-backend/internal/twitch"
)

// ErrUnauthenticated is returned when no Twitch app token could be obtained.
var ErrUnauthenticated = errors.New("not authenticated with twitch")

// IdentityResolver resolves a channel login to its current category.
type IdentityResolver interface {
	Connect(ctx context.Context, login string) twitch.Identity
}

// GameQuerier looks games up by name.
type GameQuerier interface {
	QueryGame(ctx context.Context, name string) ([]igdb.Game, error)
}

// Fetcher produces fresh snapshots from upstream.
type Fetcher interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// Compile-time interface compliance check.
var _ Fetcher = (*Service)(nil)

// Service is a stateless fetcher that resolves the channel's current game
// on Twitch and looks it up on IGDB.
type Service struct {
	config   *Config
	logger   logrus.FieldLogger
	identity IdentityResolver
	games    GameQuerier
	now      func() time.Time
}

// New creates a new game info service.
func New(cfg *Config, logger logrus.FieldLogger, identity IdentityResolver, games GameQuerier) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		config:   cfg,
		logger:   logger.WithField("component", "gameinfo"),
		identity: identity,
		games:    games,
		now:      time.Now,
	}, nil
}

// Fetch resolves the current game and returns its normalized snapshot.
// A channel without a category, or a game IGDB does not know, yields a
// snapshot without a record.
func (s *Service) Fetch(ctx context.Context) (*Snapshot, error) {
	identity := s.identity.Connect(ctx, s.config.TwitchUsername)
	if !identity.Authenticated() {
		return nil, ErrUnauthenticated
	}

	snapshot := &Snapshot{
		GameName:  identity.GameName,
		UpdatedAt: s.now().UTC(),
	}

	if identity.GameName == "" {
		s.logger.Debug("Channel has no category set")

		return snapshot, nil
	}

	games, err := s.games.QueryGame(ctx, identity.GameName)
	if err != nil {
		return nil, fmt.Errorf("query igdb: %w", err)
	}

	record, err := Normalize(games)
	if err != nil {
		return nil, fmt.Errorf("normalize %q: %w", identity.GameName, err)
	}

	snapshot.Record = record

	s.logger.WithFields(logrus.Fields{
		"game":  identity.GameName,
		"found": record != nil,
	}).Debug("Fetched game info")

	return snapshot, nil
}

// IsDataError reports whether err stems from a malformed upstream record.
func IsDataError(err error) bool {
	return errors.Is(err, ErrMalformedRecord) || errors.Is(err, ErrUnknownRegion)
}
