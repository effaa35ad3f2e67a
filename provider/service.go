package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/cardgate/apperror"
	"github.com/mstgnz/cardgate/card"
	"github.com/mstgnz/cardgate/infra/logger"
	"github.com/mstgnz/cardgate/infra/middle"
	"github.com/mstgnz/cardgate/infra/opensearch"
	"github.com/mstgnz/cardgate/signing"
	"github.com/shopspring/decimal"
)

// AuditSink receives one event per gateway interaction.
type AuditSink interface {
	LogEvent(ctx context.Context, event opensearch.Event) error
}

// PaymentService validates requests locally and forwards them to a configured
// gateway. It is safe for concurrent use.
type PaymentService struct {
	mu              sync.RWMutex
	providers       map[string]PaymentProvider
	defaultProvider string

	registry *ProviderRegistry
	signing  signing.Config
	audit    AuditSink
	now      func() time.Time
}

// Option configures a PaymentService.
type Option func(*PaymentService)

// WithSigning sets the shared secret used for token verification hashes.
func WithSigning(cfg signing.Config) Option {
	return func(s *PaymentService) { s.signing = cfg }
}

// WithAuditSink records every gateway interaction in sink.
func WithAuditSink(sink AuditSink) Option {
	return func(s *PaymentService) { s.audit = sink }
}

// WithClock replaces time.Now for expiry checks and hash timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

// WithRegistry resolves provider names against r instead of DefaultRegistry.
func WithRegistry(r *ProviderRegistry) Option {
	return func(s *PaymentService) { s.registry = r }
}

// NewPaymentService creates a new payment service
func NewPaymentService(opts ...Option) *PaymentService {
	s := &PaymentService{
		providers: make(map[string]PaymentProvider),
		registry:  DefaultRegistry,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddProvider makes an initialized provider available under name. The first
// provider added becomes the default.
func (s *PaymentService) AddProvider(name string, p PaymentProvider) {
	name = strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = p
	if s.defaultProvider == "" {
		s.defaultProvider = name
	}
}

// ConfigureProvider builds a provider from the registry, validates and applies
// cfg, and adds it, replacing any provider previously added under name.
func (s *PaymentService) ConfigureProvider(name string, cfg map[string]string) error {
	p, err := s.registry.CreateProvider(name)
	if err != nil {
		return err
	}

	if err := p.ValidateConfig(cfg); err != nil {
		return apperror.NewDetailed("Invalid provider configuration", err.Error())
	}

	if err := p.Initialize(cfg); err != nil {
		return fmt.Errorf("initialize %s: %w", name, err)
	}

	s.AddProvider(name, p)
	logger.Info("Payment provider configured", logger.LogContext{Provider: strings.ToLower(name)})
	return nil
}

// RequiredConfig lists the configuration fields a registered provider needs in
// the given environment.
func (s *PaymentService) RequiredConfig(name, environment string) ([]ConfigField, error) {
	p, err := s.registry.CreateProvider(name)
	if err != nil {
		return nil, err
	}
	return p.GetRequiredConfig(environment), nil
}

// SetDefaultProvider selects the provider used when a request names none.
func (s *PaymentService) SetDefaultProvider(name string) error {
	name = strings.ToLower(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[name]; !ok {
		return apperror.NewDetailed(fmt.Sprintf("payment provider '%s' is not configured", name))
	}
	s.defaultProvider = name
	return nil
}

// GetProvider returns the provider added under name, or the default when name is empty.
func (s *PaymentService) GetProvider(name string) (string, PaymentProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if name == "" {
		name = s.defaultProvider
	}
	name = strings.ToLower(name)

	p, ok := s.providers[name]
	if !ok {
		if name == "" {
			return "", nil, apperror.NewDetailed("no payment provider is configured")
		}
		return name, nil, apperror.NewDetailed(fmt.Sprintf("payment provider '%s' is not configured", name))
	}
	return name, p, nil
}

// ProviderNames lists the configured providers.
func (s *PaymentService) ProviderNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// CreatePayment validates the amount, currency and payment method, then charges
// through the named provider. Validation failures are returned as
// *apperror.Detailed and never reach the gateway.
func (s *PaymentService) CreatePayment(ctx context.Context, providerName string, request PaymentRequest) (*PaymentResponse, error) {
	name, p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	if err := s.validatePayment(request); err != nil {
		return nil, err
	}
	request.Currency = strings.ToUpper(request.Currency)

	start := s.now()
	resp, err := p.CreatePayment(ctx, request)

	event := s.newEvent(ctx, opensearch.EventPayment, name, start)
	event.Reference = request.Reference
	event.Amount = request.Amount.StringFixed(2)
	event.Currency = request.Currency
	if request.Card != nil {
		event.Brand, event.Last4 = cardSummary(*request.Card)
	}
	if resp != nil {
		event.PaymentID = resp.PaymentID
		event.Status = string(resp.Status)
		event.Success = resp.Success
		if resp.Brand != "" {
			event.Brand, event.Last4 = string(resp.Brand), resp.Last4
		}
	}
	s.record(ctx, event, err)

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *PaymentService) validatePayment(request PaymentRequest) error {
	errs := structErrors(request)
	errs = append(errs, currencyErrors(request.Currency)...)

	if res := card.ValidateDecimalAmount(request.Amount); !res.Valid {
		errs = append(errs, res.Error)
	}

	if request.Email != "" {
		if res := card.ValidateEmail(request.Email); !res.Valid {
			errs = append(errs, res.Error)
		}
	}

	switch {
	case request.Card == nil && request.Token == "":
		errs = append(errs, "Either card or token is required")
	case request.Card != nil && request.Token != "":
		errs = append(errs, "Provide either card or token, not both")
	case request.Card != nil:
		if res := card.ValidateCardAt(*request.Card, s.now()); !res.Valid {
			errs = append(errs, res.Errors...)
		}
	}

	return invalid("Invalid payment request", errs)
}

// TokenizeCard validates the card and exchanges it for a gateway token. When a
// shared secret is configured the response carries a verification hash over
// amount, currency, reference, token and timestamp.
func (s *PaymentService) TokenizeCard(ctx context.Context, providerName string, request TokenRequest) (*TokenResponse, error) {
	name, p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	errs := structErrors(request)
	errs = append(errs, currencyErrors(request.Currency)...)
	if res := card.ValidateCardAt(request.Card, s.now()); !res.Valid {
		errs = append(errs, res.Errors...)
	}
	if !request.Amount.IsZero() {
		if res := card.ValidateDecimalAmount(request.Amount); !res.Valid {
			errs = append(errs, res.Error)
		}
	}
	if err := invalid("Invalid card details", errs); err != nil {
		return nil, err
	}
	request.Currency = strings.ToUpper(request.Currency)

	start := s.now()
	resp, err := p.TokenizeCard(ctx, request)

	event := s.newEvent(ctx, opensearch.EventTokenization, name, start)
	event.Reference = request.Reference
	event.Brand, event.Last4 = cardSummary(request.Card)
	event.Success = err == nil
	s.record(ctx, event, err)

	if err != nil {
		return nil, err
	}

	if s.signing.SharedSecret != "" {
		resp.Timestamp = s.now().Unix()
		resp.Reference = request.Reference
		resp.VerificationHash, err = signing.GenerateVerificationHash(signing.VerificationInput{
			Reference: request.Reference,
			Amount:    request.Amount,
			Currency:  request.Currency,
			Timestamp: resp.Timestamp,
			CardToken: resp.Token,
		}, s.signing)
		if err != nil {
			return nil, fmt.Errorf("sign token: %w", err)
		}
	}

	return resp, nil
}

// GetPaymentStatus retrieves the current status of a payment
func (s *PaymentService) GetPaymentStatus(ctx context.Context, providerName, paymentID string) (*PaymentResponse, error) {
	name, p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(paymentID) == "" {
		return nil, apperror.NewDetailed("Payment ID is required")
	}

	start := s.now()
	resp, err := p.GetPaymentStatus(ctx, paymentID)

	event := s.newEvent(ctx, opensearch.EventStatus, name, start)
	event.PaymentID = paymentID
	if resp != nil {
		event.Status = string(resp.Status)
		event.Success = resp.Success
	}
	s.record(ctx, event, err)

	return resp, err
}

// RefundPayment issues a refund for a payment
func (s *PaymentService) RefundPayment(ctx context.Context, providerName string, request RefundRequest) (*RefundResponse, error) {
	name, p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	errs := structErrors(request)
	errs = append(errs, currencyErrors(request.Currency)...)
	if request.Amount.IsNegative() {
		errs = append(errs, "Amount must be greater than zero")
	} else if !request.Amount.IsZero() {
		if res := card.ValidateDecimalAmount(request.Amount); !res.Valid {
			errs = append(errs, res.Error)
		}
		if request.Currency == "" {
			errs = append(errs, "Currency is required for a partial refund")
		}
	}
	if err := invalid("Invalid refund request", errs); err != nil {
		return nil, err
	}
	request.Currency = strings.ToUpper(request.Currency)

	start := s.now()
	resp, err := p.RefundPayment(ctx, request)

	event := s.newEvent(ctx, opensearch.EventRefund, name, start)
	event.PaymentID = request.PaymentID
	if !request.Amount.IsZero() {
		event.Amount = request.Amount.StringFixed(2)
	}
	event.Currency = request.Currency
	if resp != nil {
		event.Status = resp.Status
		event.Success = resp.Success
	}
	s.record(ctx, event, err)

	return resp, err
}

// ValidateWebhook hands the raw body to the provider for authentication. The
// body is parsed only after its signature has been verified.
func (s *PaymentService) ValidateWebhook(ctx context.Context, providerName string, body []byte, headers http.Header) (*WebhookEvent, error) {
	name, p, err := s.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	start := s.now()
	evt, err := p.ValidateWebhook(ctx, body, headers)

	event := s.newEvent(ctx, opensearch.EventWebhook, name, start)
	if evt != nil {
		event.PaymentID = evt.PaymentID
		event.Status = string(evt.Status)
		event.Success = true
	}
	if errors.Is(err, ErrInvalidSignature) {
		logger.Warn("Rejected webhook with invalid signature", logger.LogContext{
			Provider:  name,
			RequestID: event.RequestID,
		})
	}
	s.record(ctx, event, err)

	return evt, err
}

func (s *PaymentService) newEvent(ctx context.Context, typ opensearch.EventType, providerName string, start time.Time) opensearch.Event {
	return opensearch.Event{
		Type:       typ,
		Provider:   providerName,
		RequestID:  middle.GetRequestID(ctx),
		DurationMs: s.now().Sub(start).Milliseconds(),
	}
}

// record logs the outcome and forwards it to the audit sink. Sink failures are
// logged and never fail the request.
func (s *PaymentService) record(ctx context.Context, event opensearch.Event, err error) {
	logCtx := logger.LogContext{
		Provider:  event.Provider,
		RequestID: event.RequestID,
		Fields: map[string]any{
			"type":        string(event.Type),
			"reference":   event.Reference,
			"payment_id":  event.PaymentID,
			"status":      event.Status,
			"duration_ms": event.DurationMs,
		},
	}

	if err != nil {
		event.Success = false
		normalized := apperror.From(err)
		event.Error = &opensearch.ErrorInfo{Message: normalized.Message}
		logger.Error("Gateway request failed", err, logCtx)
	} else {
		logger.Debug("Gateway request completed", logCtx)
	}

	if s.audit == nil {
		return
	}
	if auditErr := s.audit.LogEvent(ctx, event); auditErr != nil {
		logger.Warn("Failed to record audit event", logger.LogContext{
			Provider:  event.Provider,
			RequestID: event.RequestID,
			Fields:    map[string]any{"error": auditErr.Error()},
		})
	}
}

// cardSummary reduces card data to what may be stored: brand and last four digits.
func cardSummary(d card.CardDetails) (brand, last4 string) {
	digits := card.Digits(d.CardNumber)
	brand = string(card.ClassifyBrand(digits))
	if len(digits) >= 4 {
		last4 = digits[len(digits)-4:]
	}
	return brand, last4
}

// MinorUnits converts a major-unit amount to an integer count of the currency's
// smallest unit, e.g. 10.50 AUD -> 1050.
func MinorUnits(amount decimal.Decimal, scale int32) int64 {
	return amount.Shift(scale).Round(0).IntPart()
}
