package testsupport

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"

	"stockcrew/internal/adapters/config"
	"stockcrew/internal/adapters/redis"
)

// NewRedisClient connects to the integration redis and flushes the database around the test.
func NewRedisClient(t *testing.T, cfg config.RedisConfig) *redis.Client {
	t.Helper()

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to connect to redis: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("failed to flush redis before test: %v", err)
	}

	t.Cleanup(func() {
		_ = rdb.FlushDB(context.Background()).Err()
		_ = rdb.Close()
	})

	return redis.NewFromClient(rdb, "stockcrew-test")
}
