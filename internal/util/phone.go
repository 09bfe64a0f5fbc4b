package util

import "strings"

// FormatPhone normalizes a raw phone number to E.164. Numbers already
// carrying a + prefix pass through unchanged. A bare 10-digit number is
// assumed to be an Indian mobile number and gains the +91 country code.
func FormatPhone(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	digits := digitsOnly(raw)
	if len(digits) == 10 {
		return "+91" + digits
	}
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		return "+" + digits
	}
	return "+" + digits
}

// SameSubscriber reports whether two phone numbers refer to the same line,
// comparing only the last 10 digits so that +91, 91 and bare forms match.
func SameSubscriber(a, b string) bool {
	da, db := lastDigits(a, 10), lastDigits(b, 10)
	return da != "" && da == db
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lastDigits(s string, n int) string {
	d := digitsOnly(s)
	if len(d) > n {
		return d[len(d)-n:]
	}
	return d
}
