// Package signing computes the HMAC-SHA256 verification hash attached to outbound
// gateway requests and authenticates inbound webhook bodies.
//
// Secrets are always passed in through Config; nothing here reads the environment.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrMissingSecret is returned when a hash or signature is requested without a shared secret.
var ErrMissingSecret = errors.New("signing: shared secret is not configured")

// Config carries the shared secret agreed with the gateway.
type Config struct {
	SharedSecret string
}

// VerificationInput is the transaction data covered by the verification hash.
// Amount is in major currency units (dollars, not cents).
type VerificationInput struct {
	Reference string
	Amount    decimal.Decimal
	Currency  string
	Timestamp int64
	CardToken string
}

// CanonicalPayload builds the string that is signed for in:
//
//	amount|CURRENCY|reference[|cardToken]|timestamp
//
// The amount always carries two decimals so 10 and 10.00 sign identically.
func CanonicalPayload(in VerificationInput) string {
	parts := []string{
		in.Amount.StringFixed(2),
		strings.ToUpper(strings.TrimSpace(in.Currency)),
		in.Reference,
	}
	if in.CardToken != "" {
		parts = append(parts, in.CardToken)
	}
	parts = append(parts, strconv.FormatInt(in.Timestamp, 10))
	return strings.Join(parts, "|")
}

// GenerateVerificationHash returns the lowercase hex HMAC-SHA256 of the canonical payload.
func GenerateVerificationHash(in VerificationInput, cfg Config) (string, error) {
	return SignPayload([]byte(CanonicalPayload(in)), cfg)
}

// SignPayload returns the lowercase hex HMAC-SHA256 of body.
func SignPayload(body []byte, cfg Config) (string, error) {
	mac, err := compute(body, cfg)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(mac), nil
}

// VerifyWebhookSignature reports whether signature is the hex HMAC-SHA256 of the raw
// body under the shared secret. The comparison is constant time. A missing or
// malformed signature is reported as false with a nil error; only a missing secret
// is an error.
func VerifyWebhookSignature(body []byte, signature string, cfg Config) (bool, error) {
	expected, err := compute(body, cfg)
	if err != nil {
		return false, err
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false, nil
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false, nil
	}

	return hmac.Equal(expected, got), nil
}

// VerifyStripeSignature checks a Stripe-Signature header (timestamp plus v1 HMAC)
// against the raw body, including Stripe's timestamp tolerance.
func VerifyStripeSignature(body []byte, header, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if err := webhook.ValidatePayload(body, header, secret); err != nil {
		return fmt.Errorf("signing: stripe signature: %w", err)
	}
	return nil
}

func compute(body []byte, cfg Config) ([]byte, error) {
	if cfg.SharedSecret == "" {
		return nil, ErrMissingSecret
	}
	h := hmac.New(sha256.New, []byte(cfg.SharedSecret))
	h.Write(body)
	return h.Sum(nil), nil
}
