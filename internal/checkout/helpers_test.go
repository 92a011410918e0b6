package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-tani/internal/delivery"
	"github.com/noah-isme/backend-tani/internal/orders"
	"github.com/noah-isme/backend-tani/internal/payment"
	"github.com/noah-isme/backend-tani/internal/plans"
	"github.com/noah-isme/backend-tani/internal/pricing"
)

func testNow() time.Time {
	return time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
}

func newRules(t *testing.T) Rules {
	t.Helper()
	dv, err := delivery.NewValidator(delivery.NewWindow(time.UTC, testNow))
	require.NoError(t, err)
	pv, err := payment.NewValidator(testNow)
	require.NoError(t, err)
	return Rules{Delivery: dv, Payment: pv}
}

func newService(t *testing.T, proc orders.Processor) *Service {
	t.Helper()
	return &Service{
		Plans:     plans.DefaultTable(),
		Rules:     newRules(t),
		Processor: proc,
		Logger:    zerolog.Nop(),
	}
}

func validAddress() delivery.Address {
	return delivery.Address{Street: "1 Farm Lane", City: "York", Postcode: "YO1 7HH"}
}

func validCard() payment.Details {
	return payment.Details{
		CardNumber: "4111 1111 1111 1111",
		ExpiryDate: "12/30",
		CVV:        "123",
		NameOnCard: "Ada Lovelace",
	}
}

func weeklyDays() []string {
	return []string{"2025-03-03", "2025-03-10", "2025-03-17", "2025-03-24"}
}

func customPackage() pricing.Package {
	return pricing.Package{
		Type: pricing.Custom,
		Plan: plans.Weekly,
		Items: []pricing.LineItem{
			{Name: "Carrots", Quantity: "2kg", Price: 10},
			{Name: "Eggs", Quantity: "12units", Price: 5.5},
		},
	}
}

type recordingProcessor struct {
	subs []orders.Submission
	res  orders.Result
	err  error
}

func (p *recordingProcessor) Submit(_ context.Context, sub orders.Submission) (orders.Result, error) {
	p.subs = append(p.subs, sub)
	return p.res, p.err
}
