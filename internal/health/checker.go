package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Deps probes the Postgres pool and the optional Redis client. A nil Redis
// client reports healthy since the cache is an optional dependency.
type Deps struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// PingDB verifies database connectivity within the timeout.
func (d Deps) PingDB(ctx context.Context, timeout time.Duration) error {
	if d.Pool == nil {
		return errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Pool.Ping(ctx)
}

// PingRedis verifies cache connectivity within the timeout.
func (d Deps) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

type notConfiguredError struct{}

func (notConfiguredError) Error() string { return "database pool not configured" }

var errNotConfigured = notConfiguredError{}
