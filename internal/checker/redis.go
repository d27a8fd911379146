package checker

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/hazz-dev/depprobe/internal/config"
	"github.com/hazz-dev/depprobe/internal/health"
)

// RedisPinger is satisfied by *redis.Client and *redis.ClusterClient.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// NewRedis returns a probe issuing PING against the server at addr.
func NewRedis(client RedisPinger, addr string, logger *slog.Logger) health.Probe {
	return newProbe(addr, logger, func(ctx context.Context) health.Outcome {
		return classify(client.Ping(ctx).Err())
	})
}

func newRedisChecker(c config.Check, logger *slog.Logger) health.Probe {
	client := redis.NewClient(&redis.Options{
		Addr:         c.Target,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.Timeout.Duration,
		ReadTimeout:  c.Timeout.Duration,
		WriteTimeout: c.Timeout.Duration,
		PoolSize:     2,
	})
	p := NewRedis(client, c.Target, logger).(*probe)
	p.close = client.Close
	return p
}
