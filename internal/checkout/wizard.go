package checkout

import (
	"github.com/noah-isme/backend-tani/internal/common"
	"github.com/noah-isme/backend-tani/internal/delivery"
	"github.com/noah-isme/backend-tani/internal/payment"
	"github.com/noah-isme/backend-tani/internal/plans"
)

// Step is a checkout wizard page.
type Step int

const (
	StepDelivery     Step = 1
	StepPayment      Step = 2
	StepConfirmation Step = 3
)

func (s Step) String() string {
	switch s {
	case StepDelivery:
		return "delivery"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	default:
		return "unknown"
	}
}

// Rules holds the validators the wizard runs when asked to advance.
type Rules struct {
	Delivery *delivery.Validator
	Payment  *payment.Validator
}

// Event is an input to the wizard.
type Event interface {
	isEvent()
}

// SelectPlan switches the active plan. Changing plan clears chosen days
// since the required count may differ.
type SelectPlan struct{ Plan plans.Plan }

// ToggleDay flips one delivery day.
type ToggleDay struct{ Day string }

// SetAddress replaces the delivery address.
type SetAddress struct{ Address delivery.Address }

// SetPayment replaces the whole payment form, e.g. from a JSON body.
type SetPayment struct{ Details payment.Details }

// EditPayment applies a single field change to the payment form.
type EditPayment struct{ Change payment.Event }

// Next validates the current step. From delivery it advances to payment;
// on payment it only reports whether the order may be submitted.
type Next struct{}

// Back returns from payment to delivery.
type Back struct{}

// Confirm records an accepted order and ends the flow.
type Confirm struct{ OrderID string }

func (SelectPlan) isEvent()  {}
func (ToggleDay) isEvent()   {}
func (SetAddress) isEvent()  {}
func (SetPayment) isEvent()  {}
func (EditPayment) isEvent() {}
func (Next) isEvent()        {}
func (Back) isEvent()        {}
func (Confirm) isEvent()     {}

// Field keys used for wizard-level problems.
const (
	StepField = "step"
	PlanField = "plan"
)

// Wizard is the checkout state. It is a value: Apply returns a new Wizard
// and never mutates the receiver.
type Wizard struct {
	Step    Step               `json:"step"`
	Plan    plans.Plan         `json:"plan"`
	Days    delivery.Selection `json:"delivery"`
	Address delivery.Address   `json:"address"`
	Payment payment.Details    `json:"payment"`
	OrderID string             `json:"orderId,omitempty"`

	rules Rules
}

// NewWizard starts a checkout on the delivery step for plan.
func NewWizard(rules Rules, plan plans.Plan) Wizard {
	return Wizard{
		Step:  StepDelivery,
		Plan:  plan,
		Days:  delivery.NewSelection(plan.RequiredDays()),
		rules: rules,
	}
}

// Apply folds ev into the wizard. Events that are not allowed on the
// current step leave the state unchanged and report why.
func (w Wizard) Apply(ev Event) (Wizard, common.ValidationErrors) {
	errs := common.ValidationErrors{}
	switch e := ev.(type) {
	case SelectPlan:
		if w.Step != StepDelivery {
			errs.Add(PlanField, "The plan can only be changed on the delivery step")
			return w, errs
		}
		if e.Plan.Type != w.Plan.Type {
			w.Days = delivery.NewSelection(e.Plan.RequiredDays())
		}
		w.Plan = e.Plan
	case ToggleDay:
		if w.Step != StepDelivery {
			errs.Add(delivery.DaysField, "Delivery days can only be changed on the delivery step")
			return w, errs
		}
		w.Days = w.Days.Toggle(e.Day)
	case SetAddress:
		if w.Step != StepDelivery {
			errs.Add("address", "The address can only be changed on the delivery step")
			return w, errs
		}
		w.Address = e.Address
	case SetPayment:
		if w.Step != StepPayment {
			errs.Add("payment", "Payment details can only be entered on the payment step")
			return w, errs
		}
		w.Payment = e.Details.Normalized()
	case EditPayment:
		if w.Step != StepPayment {
			errs.Add("payment", "Payment details can only be entered on the payment step")
			return w, errs
		}
		w.Payment = payment.Reduce(w.Payment, e.Change)
	case Next:
		return w.next()
	case Back:
		if w.Step == StepPayment {
			w.Step = StepDelivery
		}
	case Confirm:
		if w.Step != StepPayment {
			errs.Add(StepField, "Only a checkout on the payment step can be confirmed")
			return w, errs
		}
		if errs = w.validatePayment(); !errs.Empty() {
			return w, errs
		}
		w.OrderID = e.OrderID
		w.Step = StepConfirmation
	default:
		errs.Add(StepField, "Unsupported checkout action")
	}
	return w, errs
}

func (w Wizard) next() (Wizard, common.ValidationErrors) {
	switch w.Step {
	case StepDelivery:
		errs := w.validateDelivery()
		if errs.Empty() {
			w.Step = StepPayment
		}
		return w, errs
	case StepPayment:
		return w, w.validatePayment()
	default:
		return w, common.ValidationErrors{}
	}
}

func (w Wizard) validateDelivery() common.ValidationErrors {
	if w.rules.Delivery == nil {
		return common.ValidationErrors{StepField: "Delivery checks are not configured"}
	}
	return w.rules.Delivery.Validate(w.Address, w.Days)
}

func (w Wizard) validatePayment() common.ValidationErrors {
	if w.rules.Payment == nil {
		return common.ValidationErrors{StepField: "Payment checks are not configured"}
	}
	return w.rules.Payment.Validate(w.Payment)
}
