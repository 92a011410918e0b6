package orders

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/backend-tani/internal/obs"
	"github.com/noah-isme/backend-tani/internal/resilience"
)

const maxResponseBytes = 1 << 20

// HTTPProcessor posts submissions to a remote order processor. Requests are
// never retried; the breaker stops traffic to a processor that keeps failing.
type HTTPProcessor struct {
	URL    string
	Secret string
	HTTP   resilience.HTTPClient
	Logger zerolog.Logger
	Now    func() time.Time
}

// NewHTTPProcessor wires a traced client and breaker for url.
func NewHTTPProcessor(url, secret string, timeout time.Duration, breaker *resilience.Breaker, logger zerolog.Logger) *HTTPProcessor {
	return &HTTPProcessor{
		URL:    url,
		Secret: secret,
		HTTP: resilience.HTTPClient{
			Client:      resilience.NewTracedClient("order_processor", timeout),
			Breaker:     breaker,
			MaxAttempts: 1,
			Timeout:     timeout,
		},
		Logger: logger,
	}
}

// Breaker exposes the circuit breaker for readiness reporting.
func (p *HTTPProcessor) Breaker() *resilience.Breaker {
	return p.HTTP.Breaker
}

// Submit sends sub once. Any transport error, non-2xx status, unreadable
// body or success:false reply yields ErrProcessingFailed.
func (p *HTTPProcessor) Submit(ctx context.Context, sub Submission) (Result, error) {
	ctx, span := otel.Tracer("orders.HTTPProcessor").Start(ctx, "HTTPProcessor.Submit")
	defer span.End()
	span.SetAttributes(attribute.Int("order.delivery_days", len(sub.SelectedDeliveryDays)))

	start := time.Now()
	logger := p.Logger.With().Object("card", sub.PaymentDetails).Logger()

	res, status, err := p.post(ctx, sub)
	elapsed := obs.DurationMillis(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order submission failed")
		outcome := "error"
		if errors.Is(err, resilience.ErrOpenCircuit) {
			outcome = "circuit_open"
		} else if status != 0 {
			outcome = "rejected"
		}
		obs.ObserveSubmission(outcome, elapsed)
		logger.Warn().Err(err).Int("status", status).Str("outcome", outcome).Msg("order_submission_failed")
		return res, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
	span.SetAttributes(attribute.String("order.id", res.OrderID))
	obs.ObserveSubmission("ok", elapsed)
	logger.Info().Str("order_id", res.OrderID).Float64("duration_ms", elapsed).Msg("order_submitted")
	return res, nil
}

func (p *HTTPProcessor) post(ctx context.Context, sub Submission) (Result, int, error) {
	if strings.TrimSpace(p.URL) == "" {
		return Result{}, 0, errors.New("order processor url not configured")
	}
	body, err := json.Marshal(sub)
	if err != nil {
		return Result{}, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return Result{}, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "backend-tani-orders/1.0")
	if key := strings.TrimSpace(sub.IdempotencyKey); key != "" {
		req.Header.Set("X-Idempotency-Key", key)
	}
	if p.Secret != "" {
		ts := p.now().Unix()
		req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("X-Signature", ComputeSignature(p.Secret, ts, body))
	}

	resp, err := p.HTTP.Do(ctx, req)
	if err != nil {
		return Result{}, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, resp.StatusCode, fmt.Errorf("processor returned %d", resp.StatusCode)
	}
	var res Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&res); err != nil {
		return Result{}, resp.StatusCode, fmt.Errorf("decode processor reply: %w", err)
	}
	if !res.Success {
		return res, resp.StatusCode, errors.New("processor declined the order")
	}
	return res, resp.StatusCode, nil
}

func (p *HTTPProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ComputeSignature is HMAC-SHA256 over "<ts>.<body>" with the shared secret,
// hex encoded.
func ComputeSignature(secret string, ts int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
