package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mstgnz/cardgate/apperror"
	"github.com/mstgnz/cardgate/card"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current status of a payment
type PaymentStatus string

const (
	StatusPending    PaymentStatus = "pending"
	StatusProcessing PaymentStatus = "processing"
	StatusSuccessful PaymentStatus = "successful"
	StatusFailed     PaymentStatus = "failed"
	StatusCancelled  PaymentStatus = "cancelled"
	StatusRefunded   PaymentStatus = "refunded"
)

// ErrInvalidSignature is returned by ValidateWebhook when the body does not
// carry a valid signature. It is caller-fixable and maps to HTTP 400.
var ErrInvalidSignature = apperror.NewDetailed("Invalid webhook signature")

// ConfigField represents a required configuration field for a payment provider
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "email", "boolean"
	Description string `json:"description"`
	Example     string `json:"example"`
	Pattern     string `json:"pattern,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// PaymentRequest contains all information required to create a payment.
// Exactly one of Card or Token identifies the payment method.
// Amount is in major currency units.
type PaymentRequest struct {
	Reference   string            `json:"reference" validate:"required,max=64"`
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency" validate:"required,len=3,alpha"`
	Description string            `json:"description,omitempty" validate:"max=255"`
	Email       string            `json:"email,omitempty"`
	Card        *card.CardDetails `json:"card,omitempty"`
	Token       string            `json:"token,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// PaymentResponse contains the result of a payment request
type PaymentResponse struct {
	Success          bool            `json:"success"`
	Status           PaymentStatus   `json:"status"`
	Message          string          `json:"message,omitempty"`
	ErrorCode        string          `json:"errorCode,omitempty"`
	PaymentID        string          `json:"paymentId,omitempty"`
	Reference        string          `json:"reference,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Brand            card.Brand      `json:"brand,omitempty"`
	Last4            string          `json:"last4,omitempty"`
	SystemTime       *time.Time      `json:"systemTime,omitempty"`
	ProviderResponse any             `json:"providerResponse,omitempty"`
}

// TokenRequest asks the gateway to exchange raw card data for a single-use token.
// Amount and Currency are optional and only feed the verification hash.
type TokenRequest struct {
	Card      card.CardDetails `json:"card"`
	Reference string           `json:"reference,omitempty" validate:"max=64"`
	Amount    decimal.Decimal  `json:"amount"`
	Currency  string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
}

// TokenResponse is the tokenized card. The raw number never appears in it.
type TokenResponse struct {
	Token            string     `json:"token"`
	Brand            card.Brand `json:"brand"`
	Last4            string     `json:"last4"`
	Reference        string     `json:"reference,omitempty"`
	VerificationHash string     `json:"verificationHash,omitempty"`
	Timestamp        int64      `json:"timestamp,omitempty"`
}

// RefundRequest contains information to request a refund. A zero Amount
// refunds the full payment.
type RefundRequest struct {
	PaymentID string          `json:"paymentId" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Reason    string          `json:"reason,omitempty"`
}

// RefundResponse contains the result of a refund request
type RefundResponse struct {
	Success     bool            `json:"success"`
	RefundID    string          `json:"refundId,omitempty"`
	PaymentID   string          `json:"paymentId,omitempty"`
	Status      string          `json:"status,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Message     string          `json:"message,omitempty"`
	ErrorCode   string          `json:"errorCode,omitempty"`
	SystemTime  *time.Time      `json:"systemTime,omitempty"`
	RawResponse any             `json:"rawResponse,omitempty"`
}

// WebhookEvent is an authenticated inbound notification.
type WebhookEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	PaymentID string          `json:"paymentId,omitempty"`
	Status    PaymentStatus   `json:"status,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// PaymentProvider defines the interface that all payment gateways must implement
type PaymentProvider interface {
	// Initialize sets up the payment provider with authentication and configuration
	Initialize(config map[string]string) error

	// GetRequiredConfig returns the configuration fields required for this provider
	GetRequiredConfig(environment string) []ConfigField

	// ValidateConfig validates the provided configuration against provider requirements
	ValidateConfig(config map[string]string) error

	// CreatePayment charges a card or a previously issued token
	CreatePayment(ctx context.Context, request PaymentRequest) (*PaymentResponse, error)

	// TokenizeCard exchanges raw card data for a gateway token
	TokenizeCard(ctx context.Context, request TokenRequest) (*TokenResponse, error)

	// GetPaymentStatus retrieves the current status of a payment
	GetPaymentStatus(ctx context.Context, paymentID string) (*PaymentResponse, error)

	// RefundPayment issues a refund for a payment
	RefundPayment(ctx context.Context, request RefundRequest) (*RefundResponse, error)

	// ValidateWebhook authenticates the raw body against the signature headers
	// and only then parses it. It returns ErrInvalidSignature on mismatch.
	ValidateWebhook(ctx context.Context, body []byte, headers http.Header) (*WebhookEvent, error)
}

// ProviderFactory is a function type that creates a new PaymentProvider
type ProviderFactory func() PaymentProvider
