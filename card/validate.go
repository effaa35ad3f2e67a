package card

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Validation messages. ValidateCard appends them in check order:
// holder name, number, expiry, CVV.
const (
	MsgHolderNameRequired = "Cardholder name is required"
	MsgHolderNameTooShort = "Cardholder name must be at least 2 characters"
	MsgNumberRequired     = "Card number is required"
	MsgNumberLength       = "Card number must be between 13 and 19 digits"
	MsgNumberInvalid      = "Invalid card number"
	MsgExpiryRequired     = "Expiry date is required"
	MsgExpiryFormat       = "Expiry date must be in MM/YY format"
	MsgExpired            = "Card has expired"
	MsgCVVRequired        = "CVV is required"
)

const minHolderNameLength = 2

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)

// CardDetails is the raw card data collected from a form.
type CardDetails struct {
	HolderName string `json:"holderName"`
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"` // MM/YY
	CVV        string `json:"cvv"`
}

// ValidationResult is the outcome of ValidateCard. Valid is true exactly when
// Errors is empty. Errors is never nil so it always encodes as a JSON array.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Brand  Brand    `json:"brand"`
	Errors []string `json:"errors"`
}

// ValidateCard checks d against the current time. See ValidateCardAt.
func ValidateCard(d CardDetails) ValidationResult {
	return ValidateCardAt(d, time.Now())
}

// ValidateCardAt runs every card check and collects all failures instead of
// stopping at the first one, so a form can show each problem at once.
// The expiry month is compared against the year and month of now.
func ValidateCardAt(d CardDetails, now time.Time) ValidationResult {
	number := Digits(d.CardNumber)
	brand := ClassifyBrand(number)
	errs := make([]string, 0, 4)

	if msg := checkHolderName(d.HolderName); msg != "" {
		errs = append(errs, msg)
	}
	if msg := checkNumber(number, brand); msg != "" {
		errs = append(errs, msg)
	}
	if msg := checkExpiry(d.Expiry, now); msg != "" {
		errs = append(errs, msg)
	}
	if msg := checkCVV(d.CVV, brand); msg != "" {
		errs = append(errs, msg)
	}

	return ValidationResult{
		Valid:  len(errs) == 0,
		Brand:  brand,
		Errors: errs,
	}
}

func checkHolderName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return MsgHolderNameRequired
	case len([]rune(name)) < minHolderNameLength:
		return MsgHolderNameTooShort
	}
	return ""
}

// checkNumber reports at most one problem: missing digits, a length the brand
// does not allow, or a failed checksum.
func checkNumber(number string, brand Brand) string {
	if number == "" {
		return MsgNumberRequired
	}
	if !slices.Contains(brand.ValidLengths(), len(number)) {
		return lengthMessage(brand)
	}
	if !IsValidLuhn(number) {
		return MsgNumberInvalid
	}
	return ""
}

func lengthMessage(brand Brand) string {
	switch brand {
	case Visa:
		return "Visa card number must be 13, 16 or 19 digits"
	case Mastercard, Amex, Diners:
		return fmt.Sprintf("%s card number must be %d digits", brand.DisplayName(), brand.MaxLength())
	case Discover, JCB:
		return fmt.Sprintf("%s card number must be 16 to 19 digits", brand.DisplayName())
	default:
		return MsgNumberLength
	}
}

func checkExpiry(expiry string, now time.Time) string {
	expiry = strings.TrimSpace(expiry)
	if expiry == "" {
		return MsgExpiryRequired
	}

	month, year, ok := ParseExpiry(expiry)
	if !ok {
		return MsgExpiryFormat
	}

	nowYear, nowMonth := now.Year(), int(now.Month())
	if year < nowYear || (year == nowYear && month < nowMonth) {
		return MsgExpired
	}
	return ""
}

// ParseExpiry parses a strict MM/YY value into a month and a four digit year
// (2000 + YY).
func ParseExpiry(expiry string) (month, year int, ok bool) {
	m := expiryPattern.FindStringSubmatch(strings.TrimSpace(expiry))
	if m == nil {
		return 0, 0, false
	}
	month, _ = strconv.Atoi(m[1])
	yy, _ := strconv.Atoi(m[2])
	return month, 2000 + yy, true
}

func checkCVV(cvv string, brand Brand) string {
	digits := Digits(cvv)
	if digits == "" {
		return MsgCVVRequired
	}
	if want := brand.CVVLength(); len(digits) != want {
		return fmt.Sprintf("CVV must be %d digits", want)
	}
	return ""
}
