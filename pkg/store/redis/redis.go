package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	goredis "github.com/go-redis/redis/v8"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
)

var (
	// ErrSessionBusy is returned when the session lock could not be taken
	// before the wait budget ran out.
	ErrSessionBusy = errors.New("redis store: session is locked")
	// ErrLockLost cancels the work of a holder whose lock expired or was
	// taken over.
	ErrLockLost = errors.New("redis store: session lock lost")
)

// RedisSnapshotStore keeps snapshots as JSON strings in Redis. Session locks
// are SET NX keys holding a random token. The holder renews the key every half
// lock TTL and releases it with a compare-and-delete script, so an expired
// holder cannot remove a newer lock.
type RedisSnapshotStore struct {
	client    *goredis.Client
	ttl       time.Duration
	keyPrefix string

	lockTTL      time.Duration
	waitInterval time.Duration
	maxWait      time.Duration
}

// RedisOption configures a RedisSnapshotStore.
type RedisOption func(*RedisSnapshotStore)

// WithTTL expires idle session snapshots. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisSnapshotStore) {
		r.ttl = ttl
	}
}

// WithKeyPrefix sets a custom prefix for Redis keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisSnapshotStore) {
		r.keyPrefix = prefix
	}
}

// WithLockTiming sets how long a session lock lives, how often a waiting
// caller retries and how long it waits in total.
func WithLockTiming(lockTTL, waitInterval, maxWait time.Duration) RedisOption {
	return func(r *RedisSnapshotStore) {
		r.lockTTL = lockTTL
		r.waitInterval = waitInterval
		r.maxWait = maxWait
	}
}

// RedisConfig contains configuration for Redis
type RedisConfig struct {
	// Addr is the Redis address (e.g., "localhost:6379")
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func NewRedisSnapshotStore(client *goredis.Client, options ...RedisOption) *RedisSnapshotStore {
	s := &RedisSnapshotStore{
		client:       client,
		ttl:          24 * time.Hour,
		keyPrefix:    "wisdom:",
		lockTTL:      30 * time.Second,
		waitInterval: 50 * time.Millisecond,
		maxWait:      30 * time.Second,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *RedisSnapshotStore) snapshotKey(sessionID string) string {
	return s.keyPrefix + "snapshot:" + sessionID
}

func (s *RedisSnapshotStore) lockKey(sessionID string) string {
	return s.keyPrefix + "lock:" + sessionID
}

func (s *RedisSnapshotStore) Load(ctx context.Context, sessionID string) (*common.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.snapshotKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, store.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap common.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, sessionID string, snapshot *common.Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.snapshotKey(sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// WithSession takes the session lock, runs fn and releases the lock. The lock
// is renewed while fn runs; if renewing fails, fn's context is cancelled and
// WithSession returns ErrLockLost.
func (s *RedisSnapshotStore) WithSession(ctx context.Context, sessionID string, fn func(ctx context.Context) error) error {
	token, err := gonanoid.New()
	if err != nil {
		return err
	}
	key := s.lockKey(sessionID)

	deadline := time.Now().Add(s.maxWait)
	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return ErrSessionBusy
		}
		if err := sleepWithJitter(ctx, s.waitInterval); err != nil {
			return err
		}
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go s.keepAlive(lockCtx, cancel, done, key, token)

	defer func() {
		close(done)
		cancel(context.Canceled)
		if err := releaseScript.Run(context.Background(), s.client, []string{key}, token).Err(); err != nil {
			logger.Warn("[Store] Failed to release session lock", "session", sessionID, "err", err)
		}
	}()

	err = fn(lockCtx)
	if errors.Is(context.Cause(lockCtx), ErrLockLost) {
		return ErrLockLost
	}
	return err
}

func (s *RedisSnapshotStore) keepAlive(ctx context.Context, cancel context.CancelCauseFunc, done <-chan struct{}, key, token string) {
	t := time.NewTicker(max(s.lockTTL/2, time.Millisecond))
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-t.C:
			renewed, err := renewScript.Run(ctx, s.client, []string{key}, token, s.lockTTL.Milliseconds()).Int()
			if err != nil && ctx.Err() != nil {
				return
			}
			if err != nil || renewed == 0 {
				logger.Warn("[Store] Session lock lost", "key", key, "err", err)
				cancel(ErrLockLost)
				return
			}
		}
	}
}

func sleepWithJitter(ctx context.Context, base time.Duration) error {
	d := base + time.Duration(rand.Int64N(int64(base)/2+1))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
