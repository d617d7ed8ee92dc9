// Package session owns the live overlay state: the exit counter, where it
// renders, and the command table hotkeys dispatch into.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/counter"
	"github.com/ethpandaops/overlay-backend/internal/gameinfo"
	"github.com/ethpandaops/overlay-backend/internal/obs"
)

// Command ids.
const (
	CommandIncrement       = "counter.increment"
	CommandDecrement       = "counter.decrement"
	CommandReset           = "counter.reset"
	CommandGameInfoRefresh = "gameinfo.refresh"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrGameInfoDisabled = errors.New("game info is disabled")
)

// TextSink displays the counter string.
type TextSink interface {
	SetText(ctx context.Context, input, text string) error
}

// CounterState is a point-in-time view of the counter.
type CounterState struct {
	Value   int    `json:"value"`
	Max     *int   `json:"max"`
	Display string `json:"display"`
}

type commandFunc func(ctx context.Context) (changed bool, err error)

// Session serializes counter operations and forwards every render to the
// text sink. The sink and game info provider are optional.
type Session struct {
	log      logrus.FieldLogger
	sink     TextSink
	gameinfo gameinfo.Provider
	commands map[string]commandFunc

	mu      sync.Mutex
	cfg     CounterConfig
	counter *counter.Counter
	pending []string
}

// New creates a session and renders the initial counter value.
func New(
	ctx context.Context,
	log logrus.FieldLogger,
	cfg CounterConfig,
	sink TextSink,
	provider gameinfo.Provider,
) *Session {
	s := &Session{
		log:      log.WithField("component", "session"),
		sink:     sink,
		gameinfo: provider,
	}

	s.commands = map[string]commandFunc{
		CommandIncrement: s.locked(func() bool { return s.counter.Increment() }),
		CommandDecrement: s.locked(func() bool { return s.counter.Decrement() }),
		CommandReset: s.locked(func() bool {
			s.counter.Reset()

			return true
		}),
		CommandGameInfoRefresh: s.refreshGameInfo,
	}

	s.Reconfigure(ctx, cfg)

	return s
}

// Commands returns the known command ids, sorted.
func (s *Session) Commands() []string {
	ids := make([]string, 0, len(s.commands))
	for id := range s.commands {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Known reports whether id names a command.
func (s *Session) Known(id string) bool {
	_, ok := s.commands[id]

	return ok
}

// Dispatch runs the command named id.
func (s *Session) Dispatch(ctx context.Context, id string) error {
	cmd, ok := s.commands[id]
	if !ok {
		commandsTotal.WithLabelValues("unknown", "rejected").Inc()

		return fmt.Errorf("%w: %q", ErrUnknownCommand, id)
	}

	changed, err := cmd(ctx)

	result := "ok"

	switch {
	case err != nil:
		result = "error"
	case !changed:
		result = "noop"
	}

	commandsTotal.WithLabelValues(id, result).Inc()

	s.log.WithFields(logrus.Fields{
		"command": id,
		"result":  result,
	}).Debug("Dispatched command")

	return err
}

// State returns the current counter state.
func (s *Session) State() CounterState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := CounterState{
		Value:   s.counter.Value(),
		Display: s.counter.Render(),
	}

	if limit, ok := s.counter.Max(); ok {
		state.Max = &limit
	}

	return state
}

// Reconfigure replaces the counter settings. The value returns to the
// configured start and the new display is rendered.
func (s *Session) Reconfigure(ctx context.Context, cfg CounterConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.counter = counter.New(cfg.Settings(), s.queue)
	s.counter.Refresh()
	s.flush(ctx)
}

// Sync pushes the current display to the sink without changing state.
// Used when the sink reconnects.
func (s *Session) Sync(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter.Refresh()
	s.flush(ctx)
}

// locked wraps a counter operation so it runs under the session lock and
// its render reaches the sink before the lock is released.
func (s *Session) locked(op func() bool) commandFunc {
	return func(ctx context.Context) (bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		changed := op()
		s.flush(ctx)

		return changed, nil
	}
}

func (s *Session) refreshGameInfo(ctx context.Context) (bool, error) {
	if s.gameinfo == nil {
		return false, ErrGameInfoDisabled
	}

	if _, err := s.gameinfo.Refresh(ctx); err != nil {
		return false, err
	}

	return true, nil
}

// queue records a render; called by the counter with s.mu held.
func (s *Session) queue(display string) {
	s.pending = append(s.pending, display)
}

// flush sends queued renders to the sink. Sink failures never fail the
// counter operation. Requires s.mu.
func (s *Session) flush(ctx context.Context) {
	counterValue.Set(float64(s.counter.Value()))

	pending := s.pending
	s.pending = nil

	if s.sink == nil || s.cfg.TextSource == "" {
		return
	}

	for _, display := range pending {
		if err := s.sink.SetText(ctx, s.cfg.TextSource, display); err != nil {
			entry := s.log.WithError(err).WithField("source", s.cfg.TextSource)

			if errors.Is(err, obs.ErrNotConnected) {
				entry.Debug("OBS not connected, counter display not pushed")
			} else {
				entry.Warn("Failed to update counter text source")
			}
		}
	}
}
