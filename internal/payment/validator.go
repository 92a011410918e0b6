package payment

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/noah-isme/backend-tani/internal/common"
)

var cardMessages = map[error]string{
	ErrCardRequired: "Card number is required",
	ErrCardLength:   "Please enter a valid card number",
	ErrCardNetwork:  "Please enter a valid card number",
	ErrCardPattern:  "Please enter a valid card number",
	ErrCardChecksum: "Card number is invalid, please check the digits",
	ErrExpiryFormat: "Expiry date must be in MM/YY format",
	ErrExpiryMonth:  "Expiry month must be between 01 and 12",
	ErrCardExpired:  "Card has expired",
}

// Validator runs every payment field check and collects field messages.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

// NewValidator builds a Validator; now defaults to time.Now.
func NewValidator(now func() time.Time) (*Validator, error) {
	if now == nil {
		now = time.Now
	}
	pv := &Validator{v: validator.New(validator.WithRequiredStructEnabled()), now: now}
	pv.v.RegisterTagNameFunc(jsonFieldName)
	if err := pv.v.RegisterValidationCtx("card_expiry", func(ctx context.Context, fl validator.FieldLevel) bool {
		return ValidateExpiryDate(fl.Field().String(), checkedAt(ctx))
	}); err != nil {
		return nil, err
	}
	registrations := map[string]validator.Func{
		"card_number": func(fl validator.FieldLevel) bool {
			return ValidateCardNumber(fl.Field().String())
		},
		"card_cvv": func(fl validator.FieldLevel) bool {
			return ValidateCVV(fl.Field().String())
		},
		"notblank": validators.NotBlank,
	}
	for tag, fn := range registrations {
		if err := pv.v.RegisterValidation(tag, fn); err != nil {
			return nil, err
		}
	}
	return pv, nil
}

type nowKey struct{}

func checkedAt(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// Validate returns an empty record when d can be submitted. The clock is
// read once so the expiry check and its message agree.
func (pv *Validator) Validate(d Details) common.ValidationErrors {
	errs := common.ValidationErrors{}
	now := pv.now()
	err := pv.v.StructCtx(context.WithValue(context.Background(), nowKey{}, now), d)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("payment", "Payment details could not be validated")
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe, now))
	}
	return errs
}

func message(fe validator.FieldError, now time.Time) string {
	value, _ := fe.Value().(string)
	switch fe.Tag() {
	case "card_number":
		return cardMessages[CheckCardNumber(value)]
	case "card_expiry":
		return cardMessages[CheckExpiry(value, now)]
	case "card_cvv":
		return "CVV must be 3 or 4 digits"
	case "notblank":
		return "Name on card is required"
	default:
		return "Invalid value"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
