package card

import "regexp"

// Brand identifies the card network, derived from the leading digits.
type Brand string

const (
	Visa       Brand = "Visa"
	Mastercard Brand = "Mastercard"
	Amex       Brand = "Amex"
	Discover   Brand = "Discover"
	Diners     Brand = "Diners"
	JCB        Brand = "JCB"
	Unknown    Brand = "Unknown"
)

// brandRule pairs a brand with the prefix pattern that selects it.
type brandRule struct {
	brand   Brand
	pattern *regexp.Regexp
}

// Order matters: the first matching rule wins.
var brandRules = []brandRule{
	{Visa, regexp.MustCompile(`^4`)},
	{Mastercard, regexp.MustCompile(`^(5[1-5]|2[2-7])`)},
	{Amex, regexp.MustCompile(`^3[47]`)},
	{Discover, regexp.MustCompile(`^(6011|65|64[4-9]|622(1[2-9]|[2-8]\d|9[01]|92[0-5]))`)},
	{Diners, regexp.MustCompile(`^3(0[0-5]|[68]\d)`)},
	{JCB, regexp.MustCompile(`^35`)},
}

// ClassifyBrand maps a (possibly partial) card number to its brand.
// Separators are ignored. A prefix too short to decide yields Unknown,
// so the same function serves live typing and final validation.
func ClassifyBrand(prefix string) Brand {
	digits := Digits(prefix)
	if digits == "" {
		return Unknown
	}

	for _, rule := range brandRules {
		if rule.pattern.MatchString(digits) {
			return rule.brand
		}
	}

	return Unknown
}

// DisplayName returns the human readable network name used in messages.
func (b Brand) DisplayName() string {
	switch b {
	case Amex:
		return "American Express"
	case Diners:
		return "Diners Club"
	case Unknown:
		return "Card"
	default:
		return string(b)
	}
}

// MaxLength is the canonical maximum number of digits for the brand.
func (b Brand) MaxLength() int {
	switch b {
	case Mastercard:
		return 16
	case Amex:
		return 15
	case Diners:
		return 14
	default:
		return 19
	}
}

// ValidLengths lists the accepted card number lengths for the brand.
func (b Brand) ValidLengths() []int {
	switch b {
	case Visa:
		return []int{13, 16, 19}
	case Mastercard:
		return []int{16}
	case Amex:
		return []int{15}
	case Diners:
		return []int{14}
	case Discover, JCB:
		return []int{16, 17, 18, 19}
	default:
		return []int{13, 14, 15, 16, 17, 18, 19}
	}
}

// CVVLength is 4 for American Express and 3 for every other brand.
func (b Brand) CVVLength() int {
	if b == Amex {
		return 4
	}
	return 3
}

// groups returns the digit grouping used when displaying a number of this brand.
func (b Brand) groups() []int {
	switch b {
	case Amex:
		return []int{4, 6, 5}
	case Diners:
		return []int{4, 6, 4}
	default:
		return []int{4, 4, 4, 4, 4}
	}
}
