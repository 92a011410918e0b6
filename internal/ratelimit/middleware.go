package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tani/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	// Key defaults to the client IP.
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces rate limits before delegating to the next handler. A
// limiter failure lets the request through.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(*http.Request, error)
	Now     func() time.Time
}

func (h Handler) key(r *http.Request) string {
	if h.Config.Key != nil {
		return h.Config.Key(r)
	}
	return common.ClientIP(r)
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handler) onError(r *http.Request, err error) {
	if h.OnError != nil {
		h.OnError(r, err)
		return
	}
	zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rate limiter unavailable")
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Max <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		decision, err := h.Limiter.Allow(r.Context(), h.key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			h.onError(r, err)
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Config.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.Reset.Sub(h.now()).Seconds()))
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
