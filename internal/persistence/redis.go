package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saos/service-desk/internal/config"
)

// Redis wraps the go-redis client. The service only relies on it for
// reference-code sequencing, so an unreachable server degrades instead of
// failing startup.
type Redis struct {
	Client    *redis.Client
	reachable bool
	refCodes  bool
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	r := &Redis{Client: client, refCodes: cfg.RefCodeEnabled}
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("unable to reach redis; reference codes fall back to database counting", zap.Error(err))
		return r
	}
	r.reachable = true
	logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	return r
}

// SequenceClient returns the client to use for reference-code sequences, or
// nil when sequencing through Redis is disabled or the server was unreachable.
func (r *Redis) SequenceClient() *redis.Client {
	if r == nil || !r.reachable || !r.refCodes {
		return nil
	}
	return r.Client
}

// Reference-code sequencing modes reported by SequenceMode.
const (
	SequenceModeRedis    = "redis"
	SequenceModeDatabase = "database"
)

// SequenceMode reports which sequencer SequenceClient selects.
func (r *Redis) SequenceMode() string {
	if r.SequenceClient() != nil {
		return SequenceModeRedis
	}
	return SequenceModeDatabase
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}
