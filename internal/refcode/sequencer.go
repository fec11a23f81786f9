// Package refcode issues the per-day sequence numbers behind OS<YYYYMMDD><NNNN>
// reference codes.
package refcode

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter reports how many reference codes already share a prefix.
type Counter interface {
	CountByReferencePrefix(ctx context.Context, prefix string) (int, error)
}

// Sequencer returns the next sequence number for a day prefix.
type Sequencer interface {
	Next(ctx context.Context, prefix string) (int, error)
}

// CountSequencer derives the sequence from existing rows (count + 1). It is
// racy on its own; callers pair it with the unique constraint and retry.
type CountSequencer struct {
	counter Counter
}

// NewCountSequencer builds a count-based sequencer.
func NewCountSequencer(counter Counter) *CountSequencer {
	return &CountSequencer{counter: counter}
}

func (s *CountSequencer) Next(ctx context.Context, prefix string) (int, error) {
	count, err := s.counter.CountByReferencePrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("count reference codes: %w", err)
	}
	return count + 1, nil
}

const (
	keyPrefix = "saos:refcode:"
	keyTTL    = 48 * time.Hour
)

// RedisSequencer hands out sequence numbers with an atomic INCR per day key.
// The key is seeded from the database count the first time a day is seen, so
// codes issued before Redis was enabled are not reused.
type RedisSequencer struct {
	client   *redis.Client
	fallback *CountSequencer
	logger   *zap.Logger
}

// NewRedisSequencer builds a Redis-backed sequencer that falls back to counting
// rows when Redis errors.
func NewRedisSequencer(client *redis.Client, counter Counter, logger *zap.Logger) *RedisSequencer {
	return &RedisSequencer{client: client, fallback: NewCountSequencer(counter), logger: logger}
}

func (s *RedisSequencer) Next(ctx context.Context, prefix string) (int, error) {
	key := keyPrefix + prefix

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return s.degrade(ctx, prefix, err)
	}
	if exists == 0 {
		seed, err := s.fallback.counter.CountByReferencePrefix(ctx, prefix)
		if err != nil {
			return 0, fmt.Errorf("count reference codes: %w", err)
		}
		if err := s.client.SetNX(ctx, key, seed, keyTTL).Err(); err != nil {
			return s.degrade(ctx, prefix, err)
		}
	}

	next, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return s.degrade(ctx, prefix, err)
	}
	return int(next), nil
}

func (s *RedisSequencer) degrade(ctx context.Context, prefix string, cause error) (int, error) {
	s.logger.Warn("redis sequence unavailable; counting rows", zap.String("prefix", prefix), zap.Error(cause))
	return s.fallback.Next(ctx, prefix)
}

// New picks the Redis sequencer when a client is available.
func New(client *redis.Client, counter Counter, logger *zap.Logger) Sequencer {
	if client == nil {
		return NewCountSequencer(counter)
	}
	return NewRedisSequencer(client, counter, logger)
}
