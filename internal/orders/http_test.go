package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tani/internal/delivery"
	"github.com/noah-isme/backend-tani/internal/payment"
	"github.com/noah-isme/backend-tani/internal/resilience"
)

func sampleSubmission() Submission {
	sub := NewSubmission(
		delivery.Address{Street: "1 Farm Lane", City: "York", Postcode: "YO1 7HH"},
		payment.Details{CardNumber: "4111 1111 1111 1111", ExpiryDate: "12/30", CVV: "123", NameOnCard: "Ada Lovelace"},
		[]string{"2025-03-03", "2025-03-10"},
	)
	sub.IdempotencyKey = "idem-1"
	return sub
}

func newTestProcessor(t *testing.T, url string, logs io.Writer) *HTTPProcessor {
	t.Helper()
	p := NewHTTPProcessor(url, "s3cret", time.Second, resilience.NewBreaker(3, 0.5, time.Minute), zerolog.New(logs))
	p.Now = func() time.Time { return time.Unix(1740787200, 0) }
	return p
}

func TestHTTPProcessorSubmitsDigitsOnlyBody(t *testing.T) {
	var got map[string]any
	var headers http.Header
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		raw, _ = io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		_, _ = io.WriteString(w, `{"success":true,"message":"ok","orderId":"ord-42"}`)
	}))
	defer srv.Close()

	var logs bytes.Buffer
	p := newTestProcessor(t, srv.URL, &logs)
	res, err := p.Submit(context.Background(), sampleSubmission())
	require.NoError(t, err)
	require.Equal(t, Result{Success: true, Message: "ok", OrderID: "ord-42"}, res)

	card := got["paymentDetails"].(map[string]any)
	require.Equal(t, "4111111111111111", card["cardNumber"])
	require.Equal(t, []any{"2025-03-03", "2025-03-10"}, got["selectedDeliveryDays"])
	require.Equal(t, "YO1 7HH", got["deliveryAddress"].(map[string]any)["postcode"])
	require.NotContains(t, got, "IdempotencyKey")

	require.Equal(t, "idem-1", headers.Get("X-Idempotency-Key"))
	require.Equal(t, "1740787200", headers.Get("X-Timestamp"))
	require.Equal(t, ComputeSignature("s3cret", 1740787200, raw), headers.Get("X-Signature"))

	require.NotContains(t, logs.String(), "4111111111111111")
	require.NotContains(t, logs.String(), "12/30")
	require.Contains(t, logs.String(), `"last4":"1111"`)
	require.Contains(t, logs.String(), `"network":"visa"`)
}

func TestHTTPProcessorFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"client error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"message":"bad"}`)
		},
		"declined": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"message":"card declined"}`)
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			var logs bytes.Buffer
			_, err := newTestProcessor(t, srv.URL, &logs).Submit(context.Background(), sampleSubmission())
			require.ErrorIs(t, err, ErrProcessingFailed)
			require.NotContains(t, logs.String(), "4111111111111111")
			require.NotContains(t, logs.String(), `"123"`)
		})
	}
}

func TestHTTPProcessorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestProcessor(t, srv.URL, io.Discard).Submit(context.Background(), sampleSubmission())
	require.ErrorIs(t, err, ErrProcessingFailed)
	require.EqualValues(t, 1, calls.Load())
}

func TestHTTPProcessorOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProcessor(srv.URL, "", time.Second, resilience.NewBreaker(1, 0.5, time.Hour), zerolog.Nop())
	_, err := p.Submit(context.Background(), sampleSubmission())
	require.ErrorIs(t, err, ErrProcessingFailed)
	require.Equal(t, resilience.Open, p.Breaker().State())

	_, err = p.Submit(context.Background(), sampleSubmission())
	require.ErrorIs(t, err, ErrProcessingFailed)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
}

func TestHTTPProcessorRequiresURL(t *testing.T) {
	p := NewHTTPProcessor("", "", time.Second, nil, zerolog.Nop())
	_, err := p.Submit(context.Background(), sampleSubmission())
	require.ErrorIs(t, err, ErrProcessingFailed)
}
