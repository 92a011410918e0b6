package health

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-tani/internal/common"
	"github.com/noah-isme/backend-tani/internal/resilience"
)

// Checker represents dependencies that can be checked for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Breaker exposes the state of an outbound circuit breaker.
type Breaker interface {
	Target() string
	State() resilience.State
}

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady flips the process-wide readiness flag. The server clears it when
// draining so load balancers stop routing new checkouts to it.
func SetReady(v bool) { ready.Store(v) }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration
	Breakers     []Breaker
}

type readiness struct {
	Status   string            `json:"status"`
	Redis    string            `json:"redis"`
	Breakers map[string]string `json:"breakers,omitempty"`
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. Redis backs idempotency and rate limiting, so an
// unreachable Redis fails the check. Breaker states are informational: an
// open breaker degrades checkout on every replica alike.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	body := readiness{Status: "ok", Redis: "ok"}
	status := http.StatusOK

	switch {
	case h.Checker == nil:
		body.Redis = "not configured"
	default:
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			body.Redis = err.Error()
		}
	}
	if body.Redis != "ok" {
		body.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if !ready.Load() {
		body.Status = "draining"
		status = http.StatusServiceUnavailable
	}

	if len(h.Breakers) > 0 {
		body.Breakers = make(map[string]string, len(h.Breakers))
		for _, b := range h.Breakers {
			state := b.State()
			body.Breakers[b.Target()] = state.String()
			if state == resilience.Open && body.Status == "ok" {
				body.Status = "degraded"
			}
		}
	}
	common.JSON(w, status, body)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

// RedisChecker checks Redis with a bounded ping.
type RedisChecker struct {
	Client *redis.Client
}

// PingRedis implements Checker.
func (c RedisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.Client == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Client.Ping(ctx).Err()
}
