package provider

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/cardgate/apperror"
	"github.com/mstgnz/cardgate/infra/config"
	"golang.org/x/text/currency"
)

var validEnvironments = []string{"sandbox", "test", "production"}

// ValidateConfigFields validates configuration against provided field definitions
func ValidateConfigFields(providerName string, cfg map[string]string, requiredFields []ConfigField) error {
	for _, field := range requiredFields {
		value, exists := cfg[field.Key]
		if !field.Required && (!exists || value == "") {
			continue
		}

		if !exists {
			return fmt.Errorf("%s: required field '%s' is missing", providerName, field.Key)
		}

		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: required field '%s' cannot be empty", providerName, field.Key)
		}

		if err := validateFieldType(providerName, field, value); err != nil {
			return err
		}

		if err := validateFieldPattern(providerName, field, value); err != nil {
			return err
		}

		if err := validateFieldLength(providerName, field, value); err != nil {
			return err
		}
	}

	return nil
}

// validateFieldType validates field based on its type
func validateFieldType(providerName string, field ConfigField, value string) error {
	v := config.App().Validator

	switch field.Type {
	case "number":
		if v.Var(value, "number") != nil {
			return fmt.Errorf("%s: field '%s' must be a number", providerName, field.Key)
		}
	case "url":
		if v.Var(value, "url") != nil {
			return fmt.Errorf("%s: field '%s' must be a valid URL", providerName, field.Key)
		}
	case "email":
		if v.Var(value, "email") != nil {
			return fmt.Errorf("%s: field '%s' must be a valid email address", providerName, field.Key)
		}
	case "boolean":
		if value != "true" && value != "false" {
			return fmt.Errorf("%s: field '%s' must be 'true' or 'false'", providerName, field.Key)
		}
	}
	return nil
}

// validateFieldPattern validates field against regex pattern
func validateFieldPattern(providerName string, field ConfigField, value string) error {
	if field.Key == "environment" {
		if slices.Contains(validEnvironments, value) {
			return nil
		}
		return fmt.Errorf("%s: environment must be one of: %s", providerName, strings.Join(validEnvironments, ", "))
	}

	if field.Pattern == "" {
		return nil
	}

	matched, err := regexp.MatchString(field.Pattern, value)
	if err != nil {
		return fmt.Errorf("%s: invalid pattern for field '%s': %v", providerName, field.Key, err)
	}

	if !matched {
		return fmt.Errorf("%s: field '%s' does not match required pattern", providerName, field.Key)
	}

	return nil
}

// validateFieldLength validates field length constraints
func validateFieldLength(providerName string, field ConfigField, value string) error {
	if field.MinLength > 0 && len(value) < field.MinLength {
		return fmt.Errorf("%s: field '%s' must be at least %d characters", providerName, field.Key, field.MinLength)
	}

	if field.MaxLength > 0 && len(value) > field.MaxLength {
		return fmt.Errorf("%s: field '%s' must not exceed %d characters", providerName, field.Key, field.MaxLength)
	}

	return nil
}

// structErrors runs the validate tags on v and returns one message per failing field.
func structErrors(v any) []string {
	err := config.App().Validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		case "len", "alpha":
			msgs = append(msgs, fe.Field()+" must be a 3-letter ISO 4217 code")
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return msgs
}

// currencyErrors reports a well-formed 3-letter code that is not an ISO 4217
// currency. Malformed and empty codes are left to the struct tags.
func currencyErrors(code string) []string {
	if len(code) != 3 || strings.IndexFunc(code, func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < 'A' || r > 'Z')
	}) >= 0 {
		return nil
	}
	if _, err := currency.ParseISO(strings.ToUpper(code)); err != nil {
		return []string{fmt.Sprintf("Currency '%s' is not a recognized ISO 4217 code", strings.ToUpper(code))}
	}
	return nil
}

// invalid wraps collected problems as a caller-fixable error, or returns nil.
func invalid(message string, errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return apperror.NewDetailed(message, errs...)
}
