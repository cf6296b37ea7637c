package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/shared"
)

const (
	DefaultRedisChannel = "hifix:now-playing"
	pingTimeout         = 3 * time.Second
	defaultMaxFailures  = 5
)

// RedisBroadcaster publishes snapshots to a Redis channel and stores the latest one under
// "{channel}:latest".
//
// When Redis is unreachable at startup, or after repeated publish failures, it degrades to a
// no-op so playback never depends on Redis.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	logger  *log.Logger

	mu        sync.Mutex
	disabled  bool
	failCount int
	maxFails  int
}

// NewRedisBroadcaster connects to cfg.RedisAddr. An unreachable server yields a disabled
// broadcaster, not an error.
func NewRedisBroadcaster(ctx context.Context, cfg shared.BridgeConfig, logger *log.Logger) (*RedisBroadcaster, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("%w: bridge.redis_addr", shared.ErrMissingConfig)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	channel := cfg.RedisChannel
	if channel == "" {
		channel = DefaultRedisChannel
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  pingTimeout,
		ReadTimeout:  pingTimeout,
		WriteTimeout: pingTimeout,
	})
	rb := &RedisBroadcaster{
		client:   client,
		channel:  channel,
		maxFails: defaultMaxFailures,
		logger:   shared.WithLogger(logger, "component", "bridge", "sink", "redis"),
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rb.logger.Warn("redis unavailable, now-playing broadcasts disabled", "addr", cfg.RedisAddr, "err", err)
		rb.disabled = true
		return rb, nil
	}

	rb.logger.Info("redis broadcaster ready", "addr", cfg.RedisAddr, "channel", channel)
	return rb, nil
}

// Enabled reports whether snapshots are still being published.
func (rb *RedisBroadcaster) Enabled() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return !rb.disabled
}

// Broadcast implements [playback.Broadcaster].
func (rb *RedisBroadcaster) Broadcast(ctx context.Context, s playback.Snapshot) error {
	if !rb.Enabled() {
		return nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = rb.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, rb.channel, data)
		pipe.Set(ctx, rb.channel+":latest", data, 0)
		return nil
	})
	if err != nil {
		rb.handleFailure(err)
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
	rb.logger.Debug("published snapshot", "track", s.TrackID, "state", s.State)
	return nil
}

func (rb *RedisBroadcaster) handleFailure(err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++
	if rb.failCount >= rb.maxFails && !rb.disabled {
		rb.disabled = true
		rb.logger.Warn("too many redis failures, disabling broadcasts", "err", err, "failures", rb.failCount)
	}
}

// Close releases the Redis client.
func (rb *RedisBroadcaster) Close() error {
	return rb.client.Close()
}
