package gameinfo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ethpandaops/overlay-backend/internal/leader"
	"github.com/ethpandaops/overlay-backend/internal/redis"
)

// Compile-time interface compliance check.
var _ Provider = (*RedisProvider)(nil)

const redisSnapshotKey = "overlay:gameinfo:snapshot"

// RedisProvider implements Provider using Redis as storage. Only the leader
// polls upstream; every instance reads the shared snapshot.
type RedisProvider struct {
	log        logrus.FieldLogger
	cfg        Config
	redis      redis.Client
	elector    leader.Elector
	upstream   Fetcher
	group      singleflight.Group
	done       chan struct{}
	notifyChan chan struct{}
	wg         sync.WaitGroup
}

// NewRedisProvider creates a Redis-backed game info provider.
func NewRedisProvider(
	log logrus.FieldLogger,
	cfg Config,
	redisClient redis.Client,
	elector leader.Elector,
	upstream Fetcher,
) *RedisProvider {
	return &RedisProvider{
		log:        log.WithField("component", "gameinfo_redis"),
		cfg:        cfg,
		redis:      redisClient,
		elector:    elector,
		upstream:   upstream,
		done:       make(chan struct{}),
		notifyChan: make(chan struct{}, 1),
	}
}

// Start starts the background refresh loop.
func (r *RedisProvider) Start(ctx context.Context) error {
	r.log.WithField("interval", r.cfg.RefreshInterval).Info("Starting game info provider")

	r.wg.Add(1)

	go r.refreshLoop(ctx)

	return nil
}

// Stop stops the provider.
func (r *RedisProvider) Stop() error {
	r.log.Info("Stopping game info provider")
	close(r.done)
	r.wg.Wait()

	return nil
}

// Get returns the stored snapshot.
func (r *RedisProvider) Get(ctx context.Context) (*Snapshot, bool) {
	data, err := r.redis.Get(ctx, redisSnapshotKey)
	if err != nil {
		r.log.WithError(err).Debug("Failed to get game info from Redis")

		return nil, false
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		r.log.WithError(err).Error("Failed to unmarshal game info")

		return nil, false
	}

	return &snapshot, true
}

// Refresh fetches from upstream and stores the result. Concurrent callers
// share a single upstream fetch.
func (r *RedisProvider) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, _ := r.group.Do("refresh", func() (any, error) {
		return r.refreshData(ctx)
	})
	if err != nil {
		return nil, err
	}

	snapshot, _ := v.(*Snapshot)

	return snapshot, nil
}

// NotifyChannel returns a channel that signals when the snapshot changed.
func (r *RedisProvider) NotifyChannel() <-chan struct{} {
	return r.notifyChan
}

func (r *RedisProvider) refreshLoop(ctx context.Context) {
	defer r.wg.Done()

	interval := r.cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	acquired := r.elector.Acquired()

	if r.elector.IsLeader() {
		r.refreshQuietly(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case <-acquired:
			// New leaders publish right away instead of waiting a full tick.
			r.refreshQuietly(ctx)
		case <-ticker.C:
			if r.elector.IsLeader() {
				r.refreshQuietly(ctx)
			}
		}
	}
}

// refreshQuietly refreshes for the background loop; refreshData already
// logs and counts failures.
func (r *RedisProvider) refreshQuietly(ctx context.Context) {
	_, _ = r.Refresh(ctx)
}

func (r *RedisProvider) refreshData(ctx context.Context) (*Snapshot, error) {
	r.log.Debug("Refreshing game info from upstream")

	snapshot, err := r.upstream.Fetch(ctx)
	if err != nil {
		kind := errorKind(err)
		fetchErrorsTotal.WithLabelValues(kind).Inc()

		entry := r.log.WithError(err).WithField("kind", kind)

		switch kind {
		case "data":
			entry.Error("Game info response is malformed")
		case "auth":
			entry.Debug("Skipping game info refresh while unauthenticated")
		default:
			entry.Warn("Failed to fetch game info from upstream")
		}

		return nil, err
	}

	previous, _ := r.Get(ctx)

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := r.redis.Set(ctx, redisSnapshotKey, string(data), r.cfg.RecordTTL); err != nil {
		fetchErrorsTotal.WithLabelValues("store").Inc()
		r.log.WithError(err).Error("Failed to store game info in Redis")

		return nil, fmt.Errorf("store snapshot: %w", err)
	}

	if !sameContent(previous, snapshot) {
		r.log.WithFields(logrus.Fields{
			"game":  snapshot.GameName,
			"found": snapshot.Found(),
		}).Info("Game info updated")

		select {
		case r.notifyChan <- struct{}{}:
		default:
			// Channel already has a pending notification, skip
		}
	}

	return snapshot, nil
}

// sameContent compares snapshots ignoring their timestamps.
func sameContent(a, b *Snapshot) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.GameName != b.GameName {
		return false
	}

	ra, errA := json.Marshal(a.Record)
	rb, errB := json.Marshal(b.Record)

	return errA == nil && errB == nil && bytes.Equal(ra, rb)
}
