// Package policy masks personal data before it reaches logs.
package policy

import (
	"regexp"
	"strings"
)

var (
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cardPattern    = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	aadhaarPattern = regexp.MustCompile(`\b\d{4}[ -]\d{4}[ -]\d{4}\b`)
	phonePattern   = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

// RedactPII masks emails, card numbers, Aadhaar-style ids and phone numbers.
// Longer digit runs are matched first so a card is not reported as a phone.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, r := range []struct {
		pattern *regexp.Regexp
		marker  string
	}{
		{emailPattern, "[REDACTED_EMAIL]"},
		{cardPattern, "[REDACTED_CARD]"},
		{aadhaarPattern, "[REDACTED_ID]"},
		{phonePattern, "[REDACTED_PHONE]"},
	} {
		next := r.pattern.ReplaceAllString(out, r.marker)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// MaskPhone keeps the country prefix and the last four digits of a number:
// "+91 98765 43210" -> "+91******3210".
func MaskPhone(number string) string {
	digits := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			digits = append(digits, number[i])
		}
	}
	if len(digits) <= 4 {
		return strings.Repeat("*", len(digits))
	}
	prefix := ""
	keep := 0
	if strings.HasPrefix(strings.TrimSpace(number), "+") && len(digits) > 10 {
		keep = len(digits) - 10
		prefix = "+" + string(digits[:keep])
	}
	tail := string(digits[len(digits)-4:])
	return prefix + strings.Repeat("*", len(digits)-keep-4) + tail
}
