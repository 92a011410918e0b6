package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-tani/internal/common"
	"github.com/noah-isme/backend-tani/internal/delivery"
	"github.com/noah-isme/backend-tani/internal/obs"
	"github.com/noah-isme/backend-tani/internal/orders"
	"github.com/noah-isme/backend-tani/internal/payment"
	"github.com/noah-isme/backend-tani/internal/plans"
	"github.com/noah-isme/backend-tani/internal/pricing"
)

// DeliveryInput is the delivery step as posted by a client.
type DeliveryInput struct {
	Plan                 string           `json:"plan"`
	DeliveryAddress      delivery.Address `json:"deliveryAddress"`
	SelectedDeliveryDays []string         `json:"selectedDeliveryDays"`
}

// ToggleInput flips one day in a client-held selection.
type ToggleInput struct {
	Plan     string   `json:"plan"`
	Selected []string `json:"selected"`
	Day      string   `json:"day"`
}

// ToggleOutput is the selection after a toggle.
type ToggleOutput struct {
	RequiredDays int      `json:"requiredDays"`
	Selected     []string `json:"selected"`
	Ready        bool     `json:"ready"`
}

// DaysOutput lists the bookable days for a plan.
type DaysOutput struct {
	Plan         plans.Type `json:"plan"`
	RequiredDays int        `json:"requiredDays"`
	Candidates   []string   `json:"candidates"`
}

// PaymentOutput echoes the derived card fields of a valid payment form.
type PaymentOutput struct {
	CardType  payment.Network `json:"cardType"`
	Formatted string          `json:"formatted"`
	Masked    string          `json:"masked"`
}

// SubmitInput is a complete checkout.
type SubmitInput struct {
	Package              pricing.Package  `json:"package"`
	DeliveryAddress      delivery.Address `json:"deliveryAddress"`
	PaymentDetails       payment.Details  `json:"paymentDetails"`
	SelectedDeliveryDays []string         `json:"selectedDeliveryDays"`
}

// SubmitOutput is returned once the processor accepted the order.
type SubmitOutput struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	OrderID string          `json:"orderId"`
	Summary pricing.Summary `json:"summary"`
}

// Service composes plans, pricing, delivery and payment checks and the
// order processor behind the checkout endpoints. It keeps no state between
// calls; clients hold the wizard state and resend it.
type Service struct {
	Plans     plans.Table
	Rules     Rules
	Processor orders.Processor
	Logger    zerolog.Logger
}

// ListPlans returns the plan table, most frequent first.
func (s *Service) ListPlans() []plans.Plan {
	return s.Plans.List()
}

// DeliveryDays returns the window of bookable days and the required count.
func (s *Service) DeliveryDays(planRaw string) (DaysOutput, error) {
	plan, err := s.plan(planRaw)
	if err != nil {
		return DaysOutput{}, err
	}
	return DaysOutput{
		Plan:         plan.Type,
		RequiredDays: plan.RequiredDays(),
		Candidates:   s.Rules.Delivery.Window().Candidates(),
	}, nil
}

// ToggleDay applies one toggle to the posted selection. Only days inside
// the booking window may be added; removing is always allowed.
func (s *Service) ToggleDay(in ToggleInput) (ToggleOutput, error) {
	plan, err := s.plan(in.Plan)
	if err != nil {
		return ToggleOutput{}, err
	}
	sel := delivery.NewSelection(plan.RequiredDays(), in.Selected...)
	if !slices.Contains(sel.Days, in.Day) {
		if err := s.Rules.Delivery.Window().Check(in.Day); err != nil {
			return ToggleOutput{}, common.ValidationFailed(common.ValidationErrors{
				"day": "Please choose a day within the next 31 days",
			})
		}
	}
	sel = sel.Toggle(in.Day)
	return ToggleOutput{RequiredDays: sel.Required, Selected: sel.Days, Ready: sel.Ready()}, nil
}

// Summary prices a package under its plan, rounded for display.
func (s *Service) Summary(pkg pricing.Package) (pricing.Summary, error) {
	plan, err := s.plan(string(pkg.Plan))
	if err != nil {
		return pricing.Summary{}, err
	}
	if err := checkPackage(pkg); err != nil {
		return pricing.Summary{}, err
	}
	return pricing.Compute(plan, pkg).Rounded(), nil
}

// ValidateDelivery runs the delivery step checks.
func (s *Service) ValidateDelivery(in DeliveryInput) error {
	plan, err := s.plan(in.Plan)
	if err != nil {
		return err
	}
	w, errs := s.deliveryWizard(plan, in.DeliveryAddress, in.SelectedDeliveryDays)
	if errs.Empty() {
		_, errs = w.Apply(Next{})
	}
	obs.ObserveValidation(StepDelivery.String(), errs.Empty())
	if !errs.Empty() {
		return common.ValidationFailed(errs)
	}
	return nil
}

// ValidatePayment runs the payment step checks.
func (s *Service) ValidatePayment(d payment.Details) (PaymentOutput, error) {
	d = d.Normalized()
	errs := s.Rules.Payment.Validate(d)
	obs.ObserveValidation(StepPayment.String(), errs.Empty())
	if !errs.Empty() {
		return PaymentOutput{}, common.ValidationFailed(errs)
	}
	return PaymentOutput{
		CardType:  d.CardType,
		Formatted: payment.FormatCardNumber(d.CardNumber),
		Masked:    d.Masked(),
	}, nil
}

// Submit walks the wizard over a full checkout and, when every step
// passes, sends the order to the processor exactly once.
func (s *Service) Submit(ctx context.Context, in SubmitInput, idempotencyKey string) (SubmitOutput, error) {
	obs.Annotate(ctx, StepField, StepDelivery.String())
	obs.Annotate(ctx, PlanField, string(in.Package.Plan))
	plan, err := s.plan(string(in.Package.Plan))
	if err != nil {
		return SubmitOutput{}, err
	}
	if err := checkPackage(in.Package); err != nil {
		return SubmitOutput{}, err
	}

	w, errs := s.deliveryWizard(plan, in.DeliveryAddress, in.SelectedDeliveryDays)
	if errs.Empty() {
		w, errs = w.Apply(Next{})
	}
	obs.ObserveValidation(StepDelivery.String(), errs.Empty())
	if !errs.Empty() {
		return SubmitOutput{}, common.ValidationFailed(errs)
	}

	obs.Annotate(ctx, StepField, w.Step.String())
	w, _ = w.Apply(SetPayment{Details: in.PaymentDetails})
	w, errs = w.Apply(Next{})
	obs.ObserveValidation(StepPayment.String(), errs.Empty())
	if !errs.Empty() {
		return SubmitOutput{}, common.ValidationFailed(errs)
	}
	obs.ObserveCardNetwork(string(w.Payment.CardType))

	summary := pricing.Compute(plan, in.Package).Rounded()
	sub := orders.NewSubmission(w.Address, w.Payment, w.Days.Days)
	sub.IdempotencyKey = idempotencyKey

	res, err := s.Processor.Submit(ctx, sub)
	if err != nil {
		s.logger(ctx).Warn().
			Str("plan", string(plan.Type)).
			Str("card", w.Payment.Masked()).
			Msg("checkout_submission_failed")
		return SubmitOutput{}, common.NewAppError("PROCESSING_FAILED", orders.FailureMessage, http.StatusBadGateway, err)
	}
	w, errs = w.Apply(Confirm{OrderID: res.OrderID})
	if !errs.Empty() {
		return SubmitOutput{}, common.ValidationFailed(errs)
	}
	obs.Annotate(ctx, StepField, w.Step.String())
	s.logger(ctx).Info().
		Str("order_id", w.OrderID).
		Str("plan", string(plan.Type)).
		Str("card", w.Payment.Masked()).
		Float64("total", summary.Total).
		Msg("checkout_completed")

	msg := res.Message
	if msg == "" {
		msg = "Order placed successfully"
	}
	return SubmitOutput{Success: true, Message: msg, OrderID: w.OrderID, Summary: summary}, nil
}

// deliveryWizard rebuilds the delivery step from posted state. Posting more
// distinct days than the plan allows fails the count gate rather than
// silently evicting days the customer chose.
func (s *Service) deliveryWizard(plan plans.Plan, addr delivery.Address, days []string) (Wizard, common.ValidationErrors) {
	w := NewWizard(s.Rules, plan)
	w, _ = w.Apply(SetAddress{Address: addr})
	distinct := make([]string, 0, len(days))
	for _, d := range days {
		if !slices.Contains(distinct, d) {
			distinct = append(distinct, d)
		}
	}
	if len(distinct) > plan.RequiredDays() {
		errs := s.Rules.Delivery.ValidateAddress(addr)
		errs.Add(delivery.DaysField, delivery.GateMessage(plan.RequiredDays()))
		return w, errs
	}
	for _, d := range distinct {
		w, _ = w.Apply(ToggleDay{Day: d})
	}
	return w, common.ValidationErrors{}
}

// logger prefers the request-scoped logger installed by the HTTP middleware.
func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}

func (s *Service) plan(raw string) (plans.Plan, error) {
	t, err := plans.ParseType(raw)
	if err == nil {
		var p plans.Plan
		if p, err = s.Plans.Lookup(t); err == nil {
			return p, nil
		}
	}
	if errors.Is(err, plans.ErrUnknownPlan) {
		return plans.Plan{}, common.ValidationFailed(common.ValidationErrors{
			PlanField: "Please choose a weekly, biweekly or monthly plan",
		})
	}
	return plans.Plan{}, err
}

func checkPackage(pkg pricing.Package) error {
	switch pkg.Type {
	case pricing.Premade, pricing.Custom:
	default:
		return common.ValidationFailed(common.ValidationErrors{
			"packageType": "Package type must be premade or custom",
		})
	}
	if err := pricing.CheckItems(pkg.Items); err != nil {
		return common.ValidationFailed(common.ValidationErrors{
			"items": fmt.Sprintf("Item prices and their total must not exceed %.0f", pricing.MaxAmount),
		})
	}
	return nil
}
