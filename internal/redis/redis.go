// Package redis caches the /api/status payload. Dashboards poll status every
// few seconds per browser tab; the cache keeps that churn off Postgres.
// Entirely optional: with no broker configured every call is a miss.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const statusKey = "belfry:status"

// statusTTL bounds staleness when an invalidation is lost.
const statusTTL = 5 * time.Second

var Rdb *redis.Client

// InitRedis connects the package-level client. Call once at startup; an
// empty address leaves caching disabled.
func InitRedis(redisAddress, redisUsername, redisPassword string) {
	if redisAddress == "" {
		return
	}
	Rdb = redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Username: redisUsername,
		Password: redisPassword,
		DB:       0,
	})
}

// Enabled reports whether a cache client is configured.
func Enabled() bool { return Rdb != nil }

// CacheStatus stores the rendered status payload.
func CacheStatus(ctx context.Context, payload []byte) {
	if Rdb == nil {
		return
	}
	if err := Rdb.Set(ctx, statusKey, payload, statusTTL).Err(); err != nil {
		log.Debug().Err(err).Msg("status cache write failed")
	}
}

// CachedStatus returns the cached status payload, if any.
func CachedStatus(ctx context.Context) ([]byte, bool) {
	if Rdb == nil {
		return nil, false
	}
	raw, err := Rdb.Get(ctx, statusKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Msg("status cache read failed")
		}
		return nil, false
	}
	return raw, true
}

// InvalidateStatus drops the cached payload; called on every mutation that
// feeds into status (schedules, settings, playback state).
func InvalidateStatus(ctx context.Context) {
	if Rdb == nil {
		return
	}
	if err := Rdb.Del(ctx, statusKey).Err(); err != nil {
		log.Debug().Err(err).Msg("status cache invalidation failed")
	}
}
