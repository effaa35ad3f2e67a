// Package card validates and formats payment card input.
//
// Everything in this package is a pure function over its arguments: no I/O, no
// shared mutable state, safe to call from any number of goroutines. Bad user
// input is never reported as a Go error; it comes back as data
// (ValidationResult, FieldResult) so a form can show every problem at once.
//
// # Building blocks
//
//   - IsValidLuhn: mod 10 checksum, separators ignored
//   - ClassifyBrand: issuer network from the leading digits, works on partial input
//   - FormatCardNumber, FormatExpiry, FormatCVV, MaskCardNumber, FormatCurrency
//   - ValidateCard / ValidateCardAt: holder name, number, expiry and CVV checks
//   - ValidateEmail, ValidatePhone, ValidateAustralianPostcode, ValidateAmount
//   - RedactPAN: scrub card numbers out of free text before logging
//
// # Amounts
//
// Amounts handled here are in major currency units (dollars, not cents).
// Converting to a gateway's minor units is the caller's job.
//
// # Expiry month policy
//
// FormatExpiry leaves an out of range month such as "13" untouched and lets
// ValidateCard reject it. Callers that prefer the old clamping behaviour use
// FormatExpiryWithPolicy with ExpiryClamp.
package card
