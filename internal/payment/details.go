package payment

// Details is the payment form. CardNumber holds the formatted value;
// checks always run on its digits. CardType is derived, never supplied.
type Details struct {
	CardNumber string  `json:"cardNumber" validate:"card_number"`
	ExpiryDate string  `json:"expiryDate" validate:"card_expiry"`
	CVV        string  `json:"cvv" validate:"card_cvv"`
	NameOnCard string  `json:"nameOnCard" validate:"notblank"`
	CardType   Network `json:"cardType,omitempty"`
}

// Field names a payment form input.
type Field string

const (
	FieldCardNumber Field = "cardNumber"
	FieldExpiryDate Field = "expiryDate"
	FieldCVV        Field = "cvv"
	FieldNameOnCard Field = "nameOnCard"
)

// Event is a change to one input of the form.
type Event struct {
	Field Field  `json:"field"`
	Value string `json:"value"`
}

// Reduce applies ev to d and returns the new form state. Derived values
// (formatting, card type) are recomputed on every event.
func Reduce(d Details, ev Event) Details {
	switch ev.Field {
	case FieldCardNumber:
		digits := Digits(ev.Value)
		if limit := MaxDigits(DetectCardType(digits)); len(digits) > limit {
			digits = digits[:limit]
		}
		d.CardNumber = FormatCardNumber(digits)
	case FieldExpiryDate:
		digits := Digits(ev.Value)
		if len(digits) > 4 {
			digits = digits[:4]
		}
		if len(digits) > 2 {
			digits = digits[:2] + "/" + digits[2:]
		}
		d.ExpiryDate = digits
	case FieldCVV:
		digits := Digits(ev.Value)
		if len(digits) > 4 {
			digits = digits[:4]
		}
		d.CVV = digits
	case FieldNameOnCard:
		d.NameOnCard = truncateRunes(ev.Value, MaxNameLength)
	}
	return d.normalized()
}

func (d Details) normalized() Details {
	d.CardType = DetectCardType(d.CardNumber)
	return d
}

// Normalized returns d with its derived fields recomputed, for details that
// arrive whole rather than through Reduce.
func (d Details) Normalized() Details {
	return d.normalized()
}

// DigitsOnly is the card number as sent to the order processor.
func (d Details) DigitsOnly() string {
	return Digits(d.CardNumber)
}

// LastFour returns the trailing four digits, or fewer for short input.
func (d Details) LastFour() string {
	digits := Digits(d.CardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

// Masked renders the card as "**** 1111" for logs and responses.
func (d Details) Masked() string {
	last := d.LastFour()
	if last == "" {
		return ""
	}
	return "**** " + last
}
