package card

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ExpiryPolicy decides what FormatExpiryWithPolicy does with an out of range month.
type ExpiryPolicy int

const (
	// ExpiryKeep leaves the month as typed; ValidateCard then reports the bad format.
	ExpiryKeep ExpiryPolicy = iota
	// ExpiryClamp rewrites a month above 12 to 12 and month 00 to 01.
	ExpiryClamp
)

const maxCVVLength = 4

// FormatCardNumber groups the digits of s for display using the brand's spacing:
// American Express 4-6-5, Diners Club 4-6-4, everything else blocks of four.
// Digits beyond the brand's maximum length are dropped. Formatting an already
// formatted value returns it unchanged.
func FormatCardNumber(s string) string {
	digits := Digits(s)
	brand := ClassifyBrand(digits)
	if len(digits) > brand.MaxLength() {
		digits = digits[:brand.MaxLength()]
	}
	return group(digits, brand.groups())
}

// FormatExpiry normalizes typed expiry input towards MM/YY. It is FormatExpiryWithPolicy
// with ExpiryKeep.
func FormatExpiry(s string) string {
	return FormatExpiryWithPolicy(s, ExpiryKeep)
}

// FormatExpiryWithPolicy strips non-digits, keeps at most four (MMYY) and inserts
// the slash once the month is complete.
func FormatExpiryWithPolicy(s string, policy ExpiryPolicy) string {
	digits := Digits(s)
	if len(digits) > 4 {
		digits = digits[:4]
	}
	if len(digits) < 2 {
		return digits
	}

	month := digits[:2]
	if policy == ExpiryClamp {
		mm, _ := strconv.Atoi(month)
		switch {
		case mm > 12:
			month = "12"
		case mm == 0:
			month = "01"
		}
	}

	return month + "/" + digits[2:]
}

// FormatCVV keeps at most four digits of s. The brand-specific length is enforced
// by ValidateCard, not here.
func FormatCVV(s string) string {
	digits := Digits(s)
	if len(digits) > maxCVVLength {
		return digits[:maxCVVLength]
	}
	return digits
}

// MaskCardNumber hides everything except the last four digits and groups the
// result like the original number. Inputs with fewer than four digits are
// masked completely and not grouped.
func MaskCardNumber(s string) string {
	digits := Digits(s)
	if len(digits) < 4 {
		return strings.Repeat("*", len(digits))
	}

	brand := ClassifyBrand(digits)
	masked := strings.Repeat("*", len(digits)-4) + digits[len(digits)-4:]
	return group(masked, brand.groups())
}

// FormatCurrency renders amount (major units) with the currency's symbol in English.
func FormatCurrency(amount float64, code string) string {
	return FormatCurrencyIn(amount, code, language.English)
}

// FormatCurrencyIn renders amount for the given locale as "<symbol> <amount>",
// always with two decimals, including for currencies such as JPY that have none.
// Codes that are not recognized ISO 4217 currencies fall back to
// "<CODE> <amount>".
func FormatCurrencyIn(amount float64, code string, tag language.Tag) string {
	code = strings.ToUpper(strings.TrimSpace(code))

	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", code, amount)
	}

	p := message.NewPrinter(tag)
	return p.Sprintf("%v %v", currency.Symbol(unit), number.Decimal(amount, number.Scale(2)))
}

// group splits s into space separated blocks of the given sizes. A trailing partial
// block is kept; anything beyond the last block size is appended to the final group.
func group(s string, sizes []int) string {
	if s == "" {
		return ""
	}

	var parts []string
	rest := s
	for i, size := range sizes {
		if rest == "" {
			break
		}
		if i == len(sizes)-1 || len(rest) <= size {
			parts = append(parts, rest)
			rest = ""
			break
		}
		parts = append(parts, rest[:size])
		rest = rest[size:]
	}

	return strings.Join(parts, " ")
}
