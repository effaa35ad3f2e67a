package card

import (
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount (major units) accepted by ValidateAmount.
var MaxAmount = decimal.RequireFromString("999999.99")

var (
	fieldValidator = validator.New()

	phonePattern    = regexp.MustCompile(`^(\+?61|0)[2-478]\d{8}$`)
	postcodePattern = regexp.MustCompile(`^(0[289]\d{2}|[1-9]\d{3})$`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// FieldResult is the outcome of a single field validation.
type FieldResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func ok() FieldResult { return FieldResult{Valid: true} }

func fail(msg string) FieldResult { return FieldResult{Error: msg} }

// ValidateEmail requires a syntactically valid email address.
func ValidateEmail(email string) FieldResult {
	email = strings.TrimSpace(email)
	if email == "" {
		return fail("Email is required")
	}
	if err := fieldValidator.Var(email, "email"); err != nil {
		return fail("Invalid email address")
	}
	return ok()
}

// ValidatePhone accepts an empty value (the field is optional) or an Australian
// number in national (0X XXXX XXXX) or international (+61 X XXXX XXXX) form.
func ValidatePhone(phone string) FieldResult {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ok()
	}
	if !phonePattern.MatchString(phoneSeparators.Replace(phone)) {
		return fail("Invalid phone number")
	}
	return ok()
}

// ValidateAustralianPostcode accepts four digit postcodes in the allocated ranges:
// 02xx (ACT), 08xx and 09xx (NT) and 1000 to 9999.
func ValidateAustralianPostcode(postcode string) FieldResult {
	postcode = strings.TrimSpace(postcode)
	if postcode == "" {
		return fail("Postcode is required")
	}
	if !postcodePattern.MatchString(postcode) {
		return fail("Invalid postcode")
	}
	return ok()
}

// ValidateAmount checks a payment amount in major currency units: it must be a
// finite number greater than zero and no larger than MaxAmount.
func ValidateAmount(amount float64) FieldResult {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fail("Amount must be a valid number")
	}
	if amount <= 0 {
		return fail("Amount must be greater than zero")
	}
	if decimal.NewFromFloat(amount).GreaterThan(MaxAmount) {
		return fail("Amount must not exceed " + MaxAmount.StringFixed(2))
	}
	return ok()
}

// ValidateAmountStrict is ValidateAmount plus a limit of two decimal places.
func ValidateAmountStrict(amount float64) FieldResult {
	if res := ValidateAmount(amount); !res.Valid {
		return res
	}
	return ValidateDecimalAmount(decimal.NewFromFloat(amount))
}

// ValidateDecimalAmount applies the ValidateAmountStrict rules to an exact
// decimal, so no digits are lost to float rounding before the scale check.
func ValidateDecimalAmount(amount decimal.Decimal) FieldResult {
	if !amount.IsPositive() {
		return fail("Amount must be greater than zero")
	}
	if amount.GreaterThan(MaxAmount) {
		return fail("Amount must not exceed " + MaxAmount.StringFixed(2))
	}
	if !amount.Equal(amount.Round(2)) {
		return fail("Amount must have at most 2 decimal places")
	}
	return ok()
}
