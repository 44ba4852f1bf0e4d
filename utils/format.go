package utils

import (
	"regexp"

	"github.com/shopspring/decimal"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// FormatCents renders an amount in cents as a euro string.
func FormatCents(cents int64) string {
	return "EUR " + decimal.New(cents, -2).StringFixed(2)
}
