package realtime

import (
	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis creates a new Redis client. It does not dial; callers Ping.
func NewRedis(opts RedisOptions) *redis.Client {
	addr := opts.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}
