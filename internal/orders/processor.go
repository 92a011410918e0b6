package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tani/internal/delivery"
	"github.com/noah-isme/backend-tani/internal/payment"
)

// ErrProcessingFailed covers every way a submission can fail downstream.
// Callers show FailureMessage and let the customer resubmit.
var ErrProcessingFailed = errors.New("orders: processing failed")

// FailureMessage is the only text a customer sees when submission fails.
const FailureMessage = "We couldn't process your order, please try again"

// Card is the payment block sent to the processor. The number is digits only.
type Card struct {
	CardNumber string `json:"cardNumber"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	NameOnCard string `json:"nameOnCard"`
}

// MarshalZerologObject logs the card without anything that could identify it
// beyond its network and last four digits.
func (c Card) MarshalZerologObject(e *zerolog.Event) {
	last := c.CardNumber
	if len(last) > 4 {
		last = last[len(last)-4:]
	}
	e.Str("network", networkLabel(payment.DetectCardType(c.CardNumber))).Str("last4", last)
}

// Submission is the outbound order body.
type Submission struct {
	DeliveryAddress      delivery.Address `json:"deliveryAddress"`
	PaymentDetails       Card             `json:"paymentDetails"`
	SelectedDeliveryDays []string         `json:"selectedDeliveryDays"`

	// IdempotencyKey is forwarded as a header so a processor can drop
	// duplicates; it is not part of the body.
	IdempotencyKey string `json:"-"`
}

// NewSubmission assembles the outbound body from validated checkout state.
func NewSubmission(addr delivery.Address, details payment.Details, days []string) Submission {
	return Submission{
		DeliveryAddress: addr,
		PaymentDetails: Card{
			CardNumber: details.DigitsOnly(),
			ExpiryDate: details.ExpiryDate,
			CVV:        details.CVV,
			NameOnCard: details.NameOnCard,
		},
		SelectedDeliveryDays: append([]string(nil), days...),
	}
}

// Result is the processor's reply.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId,omitempty"`
}

// Processor places a validated order with the order-processing collaborator.
type Processor interface {
	Submit(ctx context.Context, sub Submission) (Result, error)
}

// MockProcessor accepts every submission and is useful for testing and
// development. Set Fail to simulate a rejected order.
type MockProcessor struct {
	Fail bool
}

// Submit returns a fresh order id, or ErrProcessingFailed when Fail is set.
func (m MockProcessor) Submit(ctx context.Context, sub Submission) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if m.Fail {
		return Result{Success: false, Message: "order rejected"}, ErrProcessingFailed
	}
	return Result{
		Success: true,
		Message: "Order placed successfully",
		OrderID: uuid.NewString(),
	}, nil
}

func networkLabel(n payment.Network) string {
	if n == payment.Unknown {
		return "unknown"
	}
	return string(n)
}
