package card

import "strings"

// IsValidLuhn reports whether s passes the Luhn (mod 10) checksum.
// Non-digit characters are stripped first, so "4005 5500 0000 0001" and
// "4005550000000001" give the same answer. Length is not checked here;
// brand-specific length rules live in ValidateCard.
func IsValidLuhn(s string) bool {
	digits := Digits(s)
	if digits == "" {
		return false
	}

	sum := 0
	double := false

	// Process digits from right to left
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
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

// Digits returns only the ASCII digits of s, in order.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
