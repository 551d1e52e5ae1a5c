package util

import (
	"regexp"
	"strings"
)

const (
	MinPhoneDigits = 10
	MaxPhoneDigits = 11
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	pinPattern = regexp.MustCompile(`^[0-9]{4}$`)
	// local@domain.tld with no whitespace
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizePhone strips everything but ASCII digits
func NormalizePhone(phone string) string {
	return nonDigit.ReplaceAllString(phone, "")
}

// ValidPhone reports whether phone has 10 or 11 digits once normalized
func ValidPhone(phone string) bool {
	n := len(NormalizePhone(phone))
	return n >= MinPhoneDigits && n <= MaxPhoneDigits
}

// ValidPIN reports whether pin is exactly four ASCII digits
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// ValidEmail applies the basic local@domain.tld check
func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}
