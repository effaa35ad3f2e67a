// Package sandbox is an offline gateway for development and tests. It approves
// the sandbox test cards, declines every other card and keeps payments in memory.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/cardgate/apperror"
	"github.com/mstgnz/cardgate/card"
	"github.com/mstgnz/cardgate/provider"
	"github.com/mstgnz/cardgate/signing"
	"github.com/shopspring/decimal"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

const (
	codeDeclined     = "card_declined"
	codeInvalidToken = "invalid_token"
)

type storedToken struct {
	brand card.Brand
	last4 string
	test  bool
}

// SandboxProvider implements provider.PaymentProvider without network access.
type SandboxProvider struct {
	mu       sync.Mutex
	webhook  signing.Config
	payments map[string]*provider.PaymentResponse
	refunded map[string]decimal.Decimal
	tokens   map[string]storedToken
	now      func() time.Time
}

// NewProvider creates a new sandbox provider
func NewProvider() provider.PaymentProvider {
	return &SandboxProvider{
		payments: make(map[string]*provider.PaymentResponse),
		refunded: make(map[string]decimal.Decimal),
		tokens:   make(map[string]storedToken),
		now:      time.Now,
	}
}

// GetRequiredConfig returns the configuration fields of the sandbox
func (p *SandboxProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "webhookSecret",
			Required:    false,
			Type:        "string",
			Description: "Shared secret used to sign and verify sandbox webhooks",
			Example:     "change-me",
			MinLength:   8,
		},
		{
			Key:         "environment",
			Required:    true,
			Type:        "string",
			Description: "Environment setting (sandbox or test)",
			Example:     "sandbox",
			Pattern:     "^(sandbox|test)$",
		},
	}
}

// ValidateConfig validates the provided configuration
func (p *SandboxProvider) ValidateConfig(config map[string]string) error {
	if err := provider.ValidateConfigFields("sandbox", config, p.GetRequiredConfig(config["environment"])); err != nil {
		return err
	}
	if config["environment"] == "production" {
		return errors.New("sandbox: cannot be used in production")
	}
	return nil
}

// Initialize sets the webhook secret
func (p *SandboxProvider) Initialize(config map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.webhook = signing.Config{SharedSecret: config["webhookSecret"]}
	return nil
}

// CreatePayment approves sandbox test cards and tokens issued for them
func (p *SandboxProvider) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	resp := &provider.PaymentResponse{
		PaymentID:  "sbx_pay_" + uuid.NewString(),
		Reference:  request.Reference,
		Amount:     request.Amount,
		Currency:   strings.ToUpper(request.Currency),
		SystemTime: &now,
	}

	approved := false
	switch {
	case request.Card != nil:
		digits := card.Digits(request.Card.CardNumber)
		resp.Brand = card.ClassifyBrand(digits)
		resp.Last4 = lastFour(digits)
		approved = card.IsTestCardNumber(digits)
		if !approved {
			resp.ErrorCode = codeDeclined
		}
	default:
		tok, ok := p.tokens[request.Token]
		if !ok {
			resp.ErrorCode = codeInvalidToken
			break
		}
		delete(p.tokens, request.Token)
		resp.Brand, resp.Last4 = tok.brand, tok.last4
		approved = tok.test
		if !approved {
			resp.ErrorCode = codeDeclined
		}
	}

	if approved {
		resp.Success = true
		resp.Status = provider.StatusSuccessful
		resp.Message = "Payment successful"
	} else {
		resp.Status = provider.StatusFailed
		resp.Message = "Payment declined"
	}

	p.payments[resp.PaymentID] = resp
	return copyResponse(resp), nil
}

// TokenizeCard issues a single-use token for the card
func (p *SandboxProvider) TokenizeCard(ctx context.Context, request provider.TokenRequest) (*provider.TokenResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digits := card.Digits(request.Card.CardNumber)
	tok := storedToken{
		brand: card.ClassifyBrand(digits),
		last4: lastFour(digits),
		test:  card.IsTestCardNumber(digits),
	}
	id := "sbx_tok_" + uuid.NewString()

	p.mu.Lock()
	p.tokens[id] = tok
	p.mu.Unlock()

	return &provider.TokenResponse{
		Token:     id,
		Brand:     tok.brand,
		Last4:     tok.last4,
		Reference: request.Reference,
	}, nil
}

// GetPaymentStatus returns a payment created by this sandbox
func (p *SandboxProvider) GetPaymentStatus(ctx context.Context, paymentID string) (*provider.PaymentResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	resp, ok := p.payments[paymentID]
	if !ok {
		return nil, paymentNotFound(paymentID)
	}
	return copyResponse(resp), nil
}

// RefundPayment refunds a successful payment in full or in part. Refunds add up
// per payment and never exceed the charged amount; a zero amount refunds what is
// left.
func (p *SandboxProvider) RefundPayment(ctx context.Context, request provider.RefundRequest) (*provider.RefundResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	payment, ok := p.payments[request.PaymentID]
	if !ok {
		return nil, paymentNotFound(request.PaymentID)
	}

	now := p.now()
	resp := &provider.RefundResponse{
		RefundID:   "sbx_re_" + uuid.NewString(),
		PaymentID:  request.PaymentID,
		SystemTime: &now,
	}

	refunded := p.refunded[request.PaymentID]
	remaining := payment.Amount.Sub(refunded)
	amount := request.Amount
	if amount.IsZero() {
		amount = remaining
	}

	switch {
	case payment.Status != provider.StatusSuccessful:
		resp.Status = "failed"
		resp.ErrorCode = "payment_not_refundable"
		resp.Message = fmt.Sprintf("Payment is %s", payment.Status)
	case amount.GreaterThan(remaining):
		resp.Status = "failed"
		resp.ErrorCode = "amount_too_large"
		resp.Message = fmt.Sprintf("Refund exceeds the remaining amount of %s", remaining.StringFixed(2))
	default:
		refunded = refunded.Add(amount)
		p.refunded[request.PaymentID] = refunded
		resp.Success = true
		resp.Status = "succeeded"
		resp.Amount = amount
		if refunded.Equal(payment.Amount) {
			payment.Status = provider.StatusRefunded
		}
	}

	return resp, nil
}

type webhookBody struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	PaymentID string                 `json:"paymentId"`
	Status    provider.PaymentStatus `json:"status"`
}

// ValidateWebhook verifies the X-Webhook-Signature header over the raw body
func (p *SandboxProvider) ValidateWebhook(ctx context.Context, body []byte, headers http.Header) (*provider.WebhookEvent, error) {
	p.mu.Lock()
	cfg := p.webhook
	p.mu.Unlock()

	ok, err := signing.VerifyWebhookSignature(body, headers.Get(SignatureHeader), cfg)
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	if !ok {
		return nil, provider.ErrInvalidSignature
	}

	var wb webhookBody
	if err := json.Unmarshal(body, &wb); err != nil {
		return nil, fmt.Errorf("sandbox: decode webhook: %w", err)
	}

	return &provider.WebhookEvent{
		ID:        wb.ID,
		Type:      wb.Type,
		PaymentID: wb.PaymentID,
		Status:    wb.Status,
		Payload:   json.RawMessage(body),
	}, nil
}

func paymentNotFound(paymentID string) error {
	return apperror.NewDetailed(fmt.Sprintf("Payment %q not found", paymentID))
}

func lastFour(digits string) string {
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

func copyResponse(resp *provider.PaymentResponse) *provider.PaymentResponse {
	out := *resp
	return &out
}
