package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// OpenRedis connects the idempotency store and fails fast when it is down;
// the API refuses mutations without it.
func OpenRedis(ctx context.Context, addr string, db int, log *zap.Logger) (*redis.Client, error) {
	r := redis.NewClient(&redis.Options{
		Addr:       addr,
		DB:         db,
		ClientName: "loan-ledger",
	})
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := r.Ping(pctx).Err(); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	if log != nil {
		log.Info("redis: connected", zap.String("addr", addr), zap.Int("db", db))
	}
	return r, nil
}
