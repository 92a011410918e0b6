package delivery

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/noah-isme/backend-tani/internal/common"
)

// MaxInstructionsLength caps the free-text courier note.
const MaxInstructionsLength = 500

var postcodePattern = regexp.MustCompile(`(?i)^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)

// Address is where the box is delivered.
type Address struct {
	Street       string `json:"street" validate:"notblank"`
	City         string `json:"city" validate:"notblank"`
	Postcode     string `json:"postcode" validate:"uk_postcode"`
	Instructions string `json:"instructions" validate:"max=500"`
}

// ValidatePostcode matches the trimmed value against the UK postcode format,
// ignoring case.
func ValidatePostcode(postcode string) bool {
	return postcodePattern.MatchString(strings.TrimSpace(postcode))
}

// DaysField is the error key used for delivery day problems.
const DaysField = "deliveryDays"

var addressMessages = map[string]string{
	"street":       "Street is required",
	"city":         "City is required",
	"postcode":     "Please enter a valid UK postcode",
	"instructions": "Delivery instructions must be 500 characters or fewer",
}

// Validator checks the delivery step: address fields, the day count and
// that each chosen day is still bookable.
type Validator struct {
	v      *validator.Validate
	window Window
}

// NewValidator registers the address rules against window.
func NewValidator(window Window) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		return nil, err
	}
	err := v.RegisterValidation("uk_postcode", func(fl validator.FieldLevel) bool {
		return ValidatePostcode(fl.Field().String())
	})
	if err != nil {
		return nil, err
	}
	return &Validator{v: v, window: window}, nil
}

// Window exposes the booking window the validator checks against.
func (dv *Validator) Window() Window {
	return dv.window
}

// ValidateAddress returns one message per failing address field.
func (dv *Validator) ValidateAddress(addr Address) common.ValidationErrors {
	errs := common.ValidationErrors{}
	err := dv.v.Struct(addr)
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("address", "Address could not be validated")
		return errs
	}
	for _, fe := range fieldErrs {
		msg, ok := addressMessages[fe.Field()]
		if !ok {
			msg = "Invalid value"
		}
		errs.Add(fe.Field(), msg)
	}
	return errs
}

// ValidateDays checks the count gate and then window membership.
func (dv *Validator) ValidateDays(sel Selection) common.ValidationErrors {
	errs := common.ValidationErrors{}
	if !sel.Ready() {
		errs.Add(DaysField, GateMessage(sel.Required))
		return errs
	}
	for _, day := range sel.Days {
		if !dv.window.Contains(day) {
			errs.Add(DaysField, "Delivery days must fall within the next 31 days")
			break
		}
	}
	return errs
}

// Validate runs every delivery step check and merges the results.
func (dv *Validator) Validate(addr Address, sel Selection) common.ValidationErrors {
	errs := dv.ValidateAddress(addr)
	errs.Merge(dv.ValidateDays(sel))
	return errs
}
