package payment

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxNameLength caps the name-on-card input.
const MaxNameLength = 70

var (
	ErrExpiryFormat = errors.New("payment: expiry must be MM/YY")
	ErrExpiryMonth  = errors.New("payment: expiry month must be 01-12")
	ErrCardExpired  = errors.New("payment: card has expired")
)

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvPattern    = regexp.MustCompile(`^\d{3,4}$`)
)

// CheckExpiry validates an MM/YY expiry against now. A card expiring in the
// current month is still valid.
func CheckExpiry(expiry string, now time.Time) error {
	if !expiryPattern.MatchString(expiry) {
		return ErrExpiryFormat
	}
	month, _ := strconv.Atoi(expiry[:2])
	year, _ := strconv.Atoi(expiry[3:])
	if month < 1 || month > 12 {
		return ErrExpiryMonth
	}
	curYear := now.Year() % 100
	curMonth := int(now.Month())
	if year < curYear || (year == curYear && month < curMonth) {
		return ErrCardExpired
	}
	return nil
}

// ValidateExpiryDate reports whether expiry is a well-formed, unexpired MM/YY date.
func ValidateExpiryDate(expiry string, now time.Time) bool {
	return CheckExpiry(expiry, now) == nil
}

// ValidateCVV accepts exactly three or four digits.
func ValidateCVV(cvv string) bool {
	return cvvPattern.MatchString(cvv)
}

// ValidateName requires a non-blank name.
func ValidateName(name string) bool {
	return strings.TrimSpace(name) != ""
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
