package dedup

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis key prefixes.
const (
	lockPrefix   = "switchboard:inflight:"
	resultPrefix = "switchboard:result:"
)

// releaseScript deletes the lock only when it still carries our owner
// token. A lock that expired and was re-acquired by another owner is
// left alone.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`

// RedisDeduplicator coordinates across gateway instances through Redis.
type RedisDeduplicator struct {
	client       *redis.Client
	logger       *slog.Logger
	ttl          time.Duration
	waitTimeout  time.Duration
	pollInterval time.Duration
}

// NewRedis creates a Redis-backed deduplicator. ttl bounds the owner
// lock, waitTimeout bounds how long joiners wait before falling through,
// and pollInterval is the joiner polling cadence.
func NewRedis(client *redis.Client, ttl, waitTimeout, pollInterval time.Duration, logger *slog.Logger) *RedisDeduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisDeduplicator{
		client:       client,
		logger:       logger,
		ttl:          ttl,
		waitTimeout:  waitTimeout,
		pollInterval: pollInterval,
	}
}

// Execute implements Deduplicator.
func (d *RedisDeduplicator) Execute(ctx context.Context, fingerprint string, run RunFunc) ([]byte, bool, error) {
	lockKey := lockPrefix + fingerprint
	resultKey := resultPrefix + fingerprint
	token := uuid.NewString()

	acquired, err := d.client.SetNX(ctx, lockKey, token, d.ttl).Result()
	if err != nil {
		// Coordination failure; run directly rather than block requests.
		d.logger.Warn("dedup lock acquisition failed, bypassing", "error", err)
		payload, err := run(ctx)
		return payload, false, err
	}

	if acquired {
		return d.runAsOwner(ctx, lockKey, resultKey, token, run)
	}
	return d.joinOrFallThrough(ctx, lockKey, resultKey, run)
}

func (d *RedisDeduplicator) runAsOwner(ctx context.Context, lockKey, resultKey, token string, run RunFunc) ([]byte, bool, error) {
	payload, err := run(ctx)

	if err == nil && payload != nil {
		if serr := d.client.Set(ctx, resultKey, payload, resultTTL).Err(); serr != nil {
			d.logger.Warn("dedup result publish failed", "error", serr)
		}
	}

	// Release with a fresh context so a canceled request still cleans up.
	releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if rerr := d.client.Eval(releaseCtx, releaseScript, []string{lockKey}, token).Err(); rerr != nil {
		d.logger.Warn("dedup lock release failed", "error", rerr)
	}

	return payload, false, err
}

func (d *RedisDeduplicator) joinOrFallThrough(ctx context.Context, lockKey, resultKey string, run RunFunc) ([]byte, bool, error) {
	deadline := time.Now().Add(d.waitTimeout)
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		data, err := d.client.Get(ctx, resultKey).Bytes()
		if err == nil {
			return data, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			d.logger.Warn("dedup result poll failed, bypassing", "error", err)
			payload, err := run(ctx)
			return payload, false, err
		}

		// The owner failed or gave up: lock gone and no result.
		held, lerr := d.client.Exists(ctx, lockKey).Result()
		if lerr == nil && held == 0 {
			payload, err := run(ctx)
			return payload, false, err
		}

		if time.Now().After(deadline) {
			payload, err := run(ctx)
			return payload, false, err
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}
}
