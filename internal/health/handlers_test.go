package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tani/internal/health"
	"github.com/noah-isme/backend-tani/internal/resilience"
)

type stubChecker struct {
	redisErr error
}

func (s stubChecker) PingRedis(context.Context, time.Duration) error {
	return s.redisErr
}

type stubBreaker struct {
	state resilience.State
}

func (stubBreaker) Target() string            { return "order_processor" }
func (b stubBreaker) State() resilience.State { return b.state }

func ready(t *testing.T, h health.Handler) (int, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr.Code, body
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadySuccess(t *testing.T) {
	code, body := ready(t, health.Handler{
		Checker:  stubChecker{},
		Breakers: []health.Breaker{stubBreaker{state: resilience.Closed}},
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "ok", body["redis"])
	require.Equal(t, map[string]any{"order_processor": "closed"}, body["breakers"])
}

func TestReadyRedisFailure(t *testing.T) {
	code, body := ready(t, health.Handler{Checker: stubChecker{redisErr: errors.New("redis down")}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "redis down", body["redis"])
}

func TestReadyOpenBreakerIsDegraded(t *testing.T) {
	code, body := ready(t, health.Handler{
		Checker:  stubChecker{},
		Breakers: []health.Breaker{stubBreaker{state: resilience.Open}},
	})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "degraded", body["status"])
}

func TestReadyWithoutChecker(t *testing.T) {
	code, _ := ready(t, health.Handler{})
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestRedisChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := health.RedisChecker{Client: client}
	require.NoError(t, checker.PingRedis(context.Background(), time.Second))

	mr.Close()
	require.Error(t, checker.PingRedis(context.Background(), 100*time.Millisecond))
}
