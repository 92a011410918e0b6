package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Decision is the outcome of a single limiter check.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter decides whether key may perform another request within window.
type Limiter interface {
	Allow(ctx context.Context, key string, window time.Duration, max int) (Decision, error)
}

// Strategy names accepted by New.
const (
	StrategySliding = "sliding"
	StrategyFixed   = "fixed"
)

// New builds the limiter selected by strategy, sharing one Redis client.
func New(strategy string, client *redis.Client, prefix string) (Limiter, error) {
	switch strategy {
	case "", StrategySliding:
		return &SlidingWindow{Client: client, Prefix: prefix}, nil
	case StrategyFixed:
		return NewFixedWindow(client, prefix)
	default:
		return nil, fmt.Errorf("ratelimit: unknown strategy %q", strategy)
	}
}
