package ratelimit

import (
	"context"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// FixedWindow counts requests per key in fixed buckets using the ulule
// limiter Redis store.
type FixedWindow struct {
	store limiter.Store
}

// NewFixedWindow preloads the store scripts on client.
func NewFixedWindow(client *redis.Client, prefix string) (*FixedWindow, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: strings.TrimSuffix(prefix, ":"),
	})
	if err != nil {
		return nil, err
	}
	return &FixedWindow{store: store}, nil
}

// Allow increments the bucket for key and reports whether it is within max.
func (l *FixedWindow) Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error) {
	res, err := l.store.Get(ctx, key, limiter.Rate{Period: window, Limit: int64(max)})
	if err != nil {
		return Decision{}, err
	}
	return Decision{
		Allowed:   !res.Reached,
		Remaining: int(res.Remaining),
		Reset:     time.Unix(res.Reset, 0),
	}, nil
}
