// Package hotkeys maps trigger names to session commands and persists the
// table in Redis.
package hotkeys

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/redis"
)

const redisBindingsKey = "overlay:hotkeys:bindings"

var (
	ErrInvalidCommand = errors.New("invalid command")
	ErrInvalidTrigger = errors.New("invalid trigger")
	ErrUnbound        = errors.New("trigger is not bound")
)

// Dispatcher runs commands by id.
type Dispatcher interface {
	Known(id string) bool
	Dispatch(ctx context.Context, id string) error
}

// DefaultBindings returns the bindings used when none are stored. Trigger
// names follow the hotkey ids the counter historically registered.
func DefaultBindings() map[string]string {
	return map[string]string{
		"htk_id_Increment": "counter.increment",
		"htk_id_Decrement": "counter.decrement",
		"htk_id_Reset":     "counter.reset",
	}
}

// Store holds the trigger to command table.
type Store struct {
	log        logrus.FieldLogger
	redis      redis.Client
	dispatcher Dispatcher

	mu       sync.RWMutex
	bindings map[string]string
}

// NewStore creates a store holding the default bindings. Call Load to
// replace them with the persisted table.
func NewStore(log logrus.FieldLogger, redisClient redis.Client, dispatcher Dispatcher) *Store {
	return &Store{
		log:        log.WithField("component", "hotkeys"),
		redis:      redisClient,
		dispatcher: dispatcher,
		bindings:   DefaultBindings(),
	}
}

// Load reads the persisted bindings. Nothing stored keeps the defaults.
// Entries naming commands that no longer exist are dropped.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.redis.Get(ctx, redisBindingsKey)
	if errors.Is(err, redis.ErrNotFound) {
		s.log.Info("No stored hotkey bindings, using defaults")

		return nil
	}

	if err != nil {
		return fmt.Errorf("load bindings: %w", err)
	}

	var stored map[string]string
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return fmt.Errorf("decode bindings: %w", err)
	}

	bindings := make(map[string]string, len(stored))

	for trigger, command := range stored {
		if !s.dispatcher.Known(command) {
			s.log.WithFields(logrus.Fields{
				"trigger": trigger,
				"command": command,
			}).Warn("Dropping binding to unknown command")

			continue
		}

		bindings[trigger] = command
	}

	s.mu.Lock()
	s.bindings = bindings
	s.mu.Unlock()

	s.log.WithField("count", len(bindings)).Info("Loaded hotkey bindings")

	return nil
}

// Save persists the current bindings.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	data, err := json.Marshal(s.bindings)
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("encode bindings: %w", err)
	}

	if err := s.redis.Set(ctx, redisBindingsKey, string(data), 0); err != nil {
		return fmt.Errorf("save bindings: %w", err)
	}

	return nil
}

// Bindings returns a copy of the table.
func (s *Store) Bindings() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.bindings)
}

// Resolve returns the command bound to trigger.
func (s *Store) Resolve(trigger string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	command, ok := s.bindings[trigger]

	return command, ok
}

// Bind points trigger at command and persists the table. The previous
// binding is restored if saving fails.
func (s *Store) Bind(ctx context.Context, trigger, command string) error {
	if strings.TrimSpace(trigger) == "" {
		return ErrInvalidTrigger
	}

	if !s.dispatcher.Known(command) {
		return fmt.Errorf("%w: %q", ErrInvalidCommand, command)
	}

	s.mu.Lock()
	previous, had := s.bindings[trigger]
	s.bindings[trigger] = command
	s.mu.Unlock()

	if err := s.Save(ctx); err != nil {
		s.mu.Lock()
		if had {
			s.bindings[trigger] = previous
		} else {
			delete(s.bindings, trigger)
		}
		s.mu.Unlock()

		return err
	}

	return nil
}

// Unbind removes trigger and persists the table.
func (s *Store) Unbind(ctx context.Context, trigger string) error {
	s.mu.Lock()
	previous, ok := s.bindings[trigger]
	delete(s.bindings, trigger)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrUnbound, trigger)
	}

	if err := s.Save(ctx); err != nil {
		s.mu.Lock()
		s.bindings[trigger] = previous
		s.mu.Unlock()

		return err
	}

	return nil
}

// Fire dispatches the command bound to trigger.
func (s *Store) Fire(ctx context.Context, trigger string) error {
	command, ok := s.Resolve(trigger)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnbound, trigger)
	}

	return s.dispatcher.Dispatch(ctx, command)
}
