package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client timeouts stay under the admission path's collaborator budget so a
// stalled redis degrades into a fail-open warning instead of blocking the
// capacity check.
const clientTimeout = 3 * time.Second

type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects and pings before returning, so startup fails fast when the
// cache backend is unreachable.
func New(ctx context.Context, cfg Config) (*redis.Client, error) {
	const op = "redisx.New"

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: clientTimeout,
		ReadTimeout: clientTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return client, nil
}
