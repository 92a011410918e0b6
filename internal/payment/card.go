package payment

import (
	"errors"
	"regexp"
	"strings"
)

// Network is a card scheme inferred from leading digits.
type Network string

const (
	Visa       Network = "visa"
	Mastercard Network = "mastercard"
	Amex       Network = "amex"
	Discover   Network = "discover"
	// Unknown is returned when no scheme prefix matches.
	Unknown Network = ""
)

var (
	ErrCardRequired = errors.New("payment: card number is required")
	ErrCardLength   = errors.New("payment: card number must be 15 or 16 digits")
	ErrCardNetwork  = errors.New("payment: unsupported card network")
	ErrCardPattern  = errors.New("payment: card number does not match its network")
	ErrCardChecksum = errors.New("payment: card number failed checksum")
)

// Prefix rules are evaluated in order; the first match wins.
var networkPrefixes = []struct {
	network Network
	prefix  *regexp.Regexp
}{
	{Visa, regexp.MustCompile(`^4`)},
	{Mastercard, regexp.MustCompile(`^(5[1-5]|2[2-7])`)},
	{Amex, regexp.MustCompile(`^3[47]`)},
	{Discover, regexp.MustCompile(`^6(011|5)`)},
}

var networkPatterns = map[Network]*regexp.Regexp{
	Visa:       regexp.MustCompile(`^4\d{15}$`),
	Mastercard: regexp.MustCompile(`^(5[1-5]|2[2-7])\d{14}$`),
	Amex:       regexp.MustCompile(`^3[47]\d{13}$`),
	Discover:   regexp.MustCompile(`^6(?:011|5\d{2})\d{12}$`),
}

// Digits strips every non-digit character.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DetectCardType classifies the digits-only form of number.
func DetectCardType(number string) Network {
	digits := Digits(number)
	for _, np := range networkPrefixes {
		if np.prefix.MatchString(digits) {
			return np.network
		}
	}
	return Unknown
}

// MaxDigits is the full card length for the network.
func MaxDigits(n Network) int {
	if n == Amex {
		return 15
	}
	return 16
}

// CheckCardNumber runs the card checks in order and reports the first
// failure. The checksum only runs once length, network and pattern pass.
func CheckCardNumber(raw string) error {
	digits := Digits(raw)
	if digits == "" {
		return ErrCardRequired
	}
	if len(digits) != 15 && len(digits) != 16 {
		return ErrCardLength
	}
	network := DetectCardType(digits)
	if network == Unknown {
		return ErrCardNetwork
	}
	if !networkPatterns[network].MatchString(digits) {
		return ErrCardPattern
	}
	if !Luhn(digits) {
		return ErrCardChecksum
	}
	return nil
}

// ValidateCardNumber reports whether raw is a well-formed card number of a
// supported network with a valid checksum.
func ValidateCardNumber(raw string) bool {
	return CheckCardNumber(raw) == nil
}

// Luhn reports whether a digit string passes the mod-10 checksum. Strings
// containing anything but digits fail.
func Luhn(digits string) bool {
	if digits == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// FormatCardNumber groups digits for display: 4-6-5 for amex, 4-4-4-4
// otherwise. It only affects presentation.
func FormatCardNumber(raw string) string {
	digits := Digits(raw)
	groups := []int{4, 4, 4, 4}
	if DetectCardType(digits) == Amex {
		groups = []int{4, 6, 5}
	}
	parts := make([]string, 0, len(groups))
	for _, size := range groups {
		if digits == "" {
			break
		}
		if size > len(digits) {
			size = len(digits)
		}
		parts = append(parts, digits[:size])
		digits = digits[size:]
	}
	for digits != "" {
		size := min(4, len(digits))
		parts = append(parts, digits[:size])
		digits = digits[size:]
	}
	return strings.Join(parts, " ")
}
