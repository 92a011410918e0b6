package checkout

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tani/internal/obs"
	"github.com/noah-isme/backend-tani/internal/orders"
)

func newTestRouter(t *testing.T, proc orders.Processor) http.Handler {
	t.Helper()
	h := &Handler{Svc: newService(t, proc)}
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

type errorEnvelope struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func TestPlansEndpoint(t *testing.T) {
	rr := doJSON(t, newTestRouter(t, orders.MockProcessor{}), http.MethodGet, "/api/v1/plans", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data []struct {
			Type            string  `json:"type"`
			Price           float64 `json:"price"`
			ProductDiscount float64 `json:"productDiscount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 3)
	require.Equal(t, "weekly", body.Data[0].Type)
	require.Equal(t, "monthly", body.Data[2].Type)
}

func TestDeliveryDaysEndpoint(t *testing.T) {
	router := newTestRouter(t, orders.MockProcessor{})
	rr := doJSON(t, router, http.MethodGet, "/api/v1/checkout/delivery-days?plan=weekly", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data DaysOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 4, body.Data.RequiredDays)
	require.Len(t, body.Data.Candidates, 31)

	rr = doJSON(t, router, http.MethodGet, "/api/v1/checkout/delivery-days", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestToggleEndpoint(t *testing.T) {
	rr := doJSON(t, newTestRouter(t, orders.MockProcessor{}), http.MethodPost, "/api/v1/checkout/delivery-days/toggle", map[string]any{
		"plan": "monthly", "selected": []string{"2025-03-05"}, "day": "2025-03-08",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"requiredDays":1,"selected":["2025-03-08"],"ready":true}}`, rr.Body.String())
}

func TestSummaryEndpointRejectsUnknownFields(t *testing.T) {
	rr := doJSON(t, newTestRouter(t, orders.MockProcessor{}), http.MethodPost, "/api/v1/checkout/summary", map[string]any{
		"package": customPackage(), "coupon": "FREE",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSummaryEndpointRejectsOverflowingItems(t *testing.T) {
	rr := doJSON(t, newTestRouter(t, orders.MockProcessor{}), http.MethodPost, "/api/v1/checkout/summary", map[string]any{
		"package": hugePackage(),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.Contains(t, env.Error.Details, "items")
}

func TestValidatePaymentEndpoint(t *testing.T) {
	router := newTestRouter(t, orders.MockProcessor{})
	rr := doJSON(t, router, http.MethodPost, "/api/v1/checkout/validate/payment", validCard())
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"data":{"cardType":"visa","formatted":"4111 1111 1111 1111","masked":"**** 1111"}}`, rr.Body.String())

	card := validCard()
	card.CardNumber = "4111111111111112"
	rr = doJSON(t, router, http.MethodPost, "/api/v1/checkout/validate/payment", card)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	require.Equal(t, "Card number is invalid, please check the digits", env.Error.Details["cardNumber"])
}

func TestSubmitEndpointLogsStep(t *testing.T) {
	var buf bytes.Buffer
	h := &Handler{Svc: newService(t, orders.MockProcessor{})}
	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: zerolog.New(&buf)}.Middleware)
	r.Route("/api/v1", h.Routes)

	accessLog := func() map[string]any {
		t.Helper()
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		var entry map[string]any
		require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
		require.Equal(t, "http_request", entry["message"])
		buf.Reset()
		return entry
	}

	card := validCard()
	card.CVV = "1"
	rr := doJSON(t, r, http.MethodPost, "/api/v1/checkout", SubmitInput{
		Package:              customPackage(),
		DeliveryAddress:      validAddress(),
		PaymentDetails:       card,
		SelectedDeliveryDays: weeklyDays(),
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	entry := accessLog()
	require.Equal(t, "payment", entry["step"])
	require.Equal(t, "weekly", entry["plan"])

	rr = doJSON(t, r, http.MethodPost, "/api/v1/checkout", SubmitInput{
		Package:              customPackage(),
		DeliveryAddress:      validAddress(),
		PaymentDetails:       validCard(),
		SelectedDeliveryDays: weeklyDays()[:1],
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Equal(t, "delivery", accessLog()["step"])

	rr = doJSON(t, r, http.MethodPost, "/api/v1/checkout", SubmitInput{
		Package:              customPackage(),
		DeliveryAddress:      validAddress(),
		PaymentDetails:       validCard(),
		SelectedDeliveryDays: weeklyDays(),
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "confirmation", accessLog()["step"])
}

func TestValidateDeliveryEndpoint(t *testing.T) {
	rr := doJSON(t, newTestRouter(t, orders.MockProcessor{}), http.MethodPost, "/api/v1/checkout/validate/delivery", DeliveryInput{
		Plan: "biweekly", DeliveryAddress: validAddress(), SelectedDeliveryDays: []string{"2025-03-05"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "Please select exactly 2 delivery days", env.Error.Details["deliveryDays"])
}

func TestSubmitEndpoint(t *testing.T) {
	router := newTestRouter(t, orders.MockProcessor{})
	rr := doJSON(t, router, http.MethodPost, "/api/v1/checkout", SubmitInput{
		Package:              customPackage(),
		DeliveryAddress:      validAddress(),
		PaymentDetails:       validCard(),
		SelectedDeliveryDays: weeklyDays(),
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var out SubmitOutput
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.NotEmpty(t, out.OrderID)
	require.NotContains(t, rr.Body.String(), "4111111111111111")
}

func TestSubmitEndpointProcessorFailure(t *testing.T) {
	router := newTestRouter(t, orders.MockProcessor{Fail: true})
	rr := doJSON(t, router, http.MethodPost, "/api/v1/checkout", SubmitInput{
		Package:              customPackage(),
		DeliveryAddress:      validAddress(),
		PaymentDetails:       validCard(),
		SelectedDeliveryDays: weeklyDays(),
	})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, "PROCESSING_FAILED", env.Error.Code)
	require.Equal(t, orders.FailureMessage, env.Error.Message)
}

func TestSubmitMiddlewareIsApplied(t *testing.T) {
	called := false
	h := &Handler{
		Svc: newService(t, orders.MockProcessor{}),
		SubmitMiddleware: []func(http.Handler) http.Handler{
			func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
					w.WriteHeader(http.StatusTooManyRequests)
				})
			},
		},
	}
	r := chi.NewRouter()
	r.Route("/api/v1", h.Routes)
	rr := doJSON(t, r, http.MethodPost, "/api/v1/checkout", map[string]any{})
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.True(t, called)

	rr = doJSON(t, r, http.MethodPost, "/api/v1/checkout/summary", map[string]any{"package": customPackage()})
	require.Equal(t, http.StatusOK, rr.Code)
}
