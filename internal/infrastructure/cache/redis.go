package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// OpenRedis connects and pings within a 5s budget. The client is closed when
// the ping fails.
func OpenRedis(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{Addr: o.Addr, Password: o.Password, DB: o.DB})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(ctx).Err(); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}
