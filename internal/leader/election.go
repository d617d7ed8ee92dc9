package leader

//go:generate mockgen -package mocks -destination mocks/mock_elector.go github.com/ethpandaops/overlay-backend/internal/leader Elector

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/overlay-backend/internal/redis"
)

// Elector decides which overlay instance polls upstream APIs, using a
// Redis SETNX lock.
type Elector interface {
	Start(ctx context.Context) error
	Stop() error
	IsLeader() bool
	// Acquired signals each time this instance becomes leader.
	Acquired() <-chan struct{}
}

// Compile-time interface compliance check.
var _ Elector = (*elector)(nil)

type elector struct {
	log      logrus.FieldLogger
	cfg      Config
	redis    redis.Client
	id       string
	acquired chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup

	mu             sync.RWMutex
	isLeader       bool
	loggedFollower bool
}

// NewElector creates a new leader elector.
func NewElector(log logrus.FieldLogger, cfg Config, redisClient redis.Client) Elector {
	return &elector{
		log:      log.WithField("component", "leader"),
		cfg:      cfg,
		redis:    redisClient,
		id:       uuid.New().String(),
		acquired: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start begins the leader election loop.
func (e *elector) Start(ctx context.Context) error {
	e.log.WithField("instance_id", e.id).Info("Starting leader election")

	e.wg.Add(1)

	go e.electionLoop(ctx)

	return nil
}

// Stop ends the election loop and releases the lock if held.
func (e *elector) Stop() error {
	e.log.Info("Stopping leader election")
	close(e.done)
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isLeader {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = e.redis.Del(ctx, e.cfg.LockKey)
		e.isLeader = false
	}

	return nil
}

// IsLeader returns true if this instance holds the lock.
func (e *elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isLeader
}

// Acquired returns a channel signalled on every follower-to-leader transition.
func (e *elector) Acquired() <-chan struct{} {
	return e.acquired
}

func (e *elector) electionLoop(ctx context.Context) {
	defer e.wg.Done()

	e.tryAcquireLeadership(ctx)

	renewTicker := time.NewTicker(e.cfg.RenewInterval)
	defer renewTicker.Stop()

	retryTicker := time.NewTicker(e.cfg.RetryInterval)
	defer retryTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case <-renewTicker.C:
			if e.IsLeader() {
				e.renewLeadership(ctx)
			}
		case <-retryTicker.C:
			if !e.IsLeader() {
				e.tryAcquireLeadership(ctx)
			}
		}
	}
}

func (e *elector) tryAcquireLeadership(ctx context.Context) {
	acquired, err := e.redis.SetNX(ctx, e.cfg.LockKey, e.id, e.cfg.LockTTL)
	if err != nil {
		e.log.WithError(err).Warn("Failed to acquire leadership lock")

		return
	}

	if acquired {
		e.setLeader(true)
		e.log.WithField("instance_id", e.id).Info("Acquired leadership")

		select {
		case e.acquired <- struct{}{}:
		default:
		}

		return
	}

	// Log follower status once until leadership changes.
	e.mu.Lock()
	shouldLog := !e.loggedFollower
	e.loggedFollower = true
	e.mu.Unlock()

	if shouldLog {
		currentLeader, _ := e.redis.Get(ctx, e.cfg.LockKey)
		e.log.WithFields(logrus.Fields{
			"instance_id": e.id,
			"leader_id":   currentLeader,
		}).Info("Running as follower")
	}
}

func (e *elector) renewLeadership(ctx context.Context) {
	currentHolder, err := e.redis.Get(ctx, e.cfg.LockKey)
	if err != nil {
		e.log.WithError(err).Warn("Failed to check lock holder, losing leadership")
		e.setLeader(false)

		return
	}

	if currentHolder != e.id {
		e.log.WithField("leader_id", currentHolder).Warn("Lost leadership to another instance")
		e.setLeader(false)

		return
	}

	if err := e.redis.Set(ctx, e.cfg.LockKey, e.id, e.cfg.LockTTL); err != nil {
		e.log.WithError(err).Warn("Failed to renew leadership lock")
		e.setLeader(false)

		return
	}

	e.log.Debug("Renewed leadership lock")
}

func (e *elector) setLeader(leader bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.isLeader = leader
	if leader {
		e.loggedFollower = false
	}
}
