package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/cardgate/card"
	"github.com/mstgnz/cardgate/provider"
	"github.com/mstgnz/cardgate/signing"
	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"golang.org/x/text/currency"
)

const (
	// SignatureHeader carries the Stripe webhook signature.
	SignatureHeader = "Stripe-Signature"

	metadataReference = "reference"
)

// StripeProvider implements the provider.PaymentProvider interface for Stripe
type StripeProvider struct {
	secretKey     string
	publicKey     string
	webhookSecret string
	isProduction  bool
	api           *client.API
}

// NewProvider creates a new Stripe payment provider
func NewProvider() provider.PaymentProvider {
	return &StripeProvider{}
}

// GetRequiredConfig returns the configuration fields required for Stripe
func (p *StripeProvider) GetRequiredConfig(environment string) []provider.ConfigField {
	return []provider.ConfigField{
		{
			Key:         "secretKey",
			Required:    true,
			Type:        "string",
			Description: "Stripe secret API key (Dashboard > Developers > API keys)",
			Example:     "sk_test_51H...",
			Pattern:     "^sk_(test|live)_",
			MinLength:   10,
			MaxLength:   255,
		},
		{
			Key:         "publicKey",
			Required:    false,
			Type:        "string",
			Description: "Stripe publishable key, handed to browser clients",
			Example:     "pk_test_51H...",
			Pattern:     "^pk_(test|live)_",
		},
		{
			Key:         "webhookSecret",
			Required:    false,
			Type:        "string",
			Description: "Signing secret of the webhook endpoint",
			Example:     "whsec_...",
			Pattern:     "^whsec_",
		},
		{
			Key:         "apiURL",
			Required:    false,
			Type:        "url",
			Description: "Override of the Stripe API base URL, for local stubs",
			Example:     "http://localhost:12111",
		},
		{
			Key:         "environment",
			Required:    true,
			Type:        "string",
			Description: "Environment setting (sandbox or production)",
			Example:     "sandbox",
			Pattern:     "^(sandbox|production)$",
		},
	}
}

// ValidateConfig validates the provided configuration against Stripe requirements
func (p *StripeProvider) ValidateConfig(config map[string]string) error {
	return provider.ValidateConfigFields("stripe", config, p.GetRequiredConfig(config["environment"]))
}

// Initialize sets up the Stripe payment provider with authentication credentials
func (p *StripeProvider) Initialize(conf map[string]string) error {
	p.secretKey = conf["secretKey"]
	p.publicKey = conf["publicKey"]
	p.webhookSecret = conf["webhookSecret"]

	if p.secretKey == "" {
		return errors.New("stripe: secretKey is required")
	}

	p.isProduction = conf["environment"] == "production"

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        provider.NewHTTPClient(provider.HTTPClientConfig{}),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
		EnableTelemetry:   stripe.Bool(false),
	}
	if apiURL := conf["apiURL"]; apiURL != "" {
		backendConfig.URL = stripe.String(strings.TrimRight(apiURL, "/"))
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	p.api = &client.API{}
	p.api.Init(p.secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return nil
}

// CreatePayment attaches the card (or token) to a PaymentMethod and confirms a
// PaymentIntent with it in one step. Card declines come back as a failed
// response; other Stripe errors are returned wrapped.
func (p *StripeProvider) CreatePayment(ctx context.Context, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	if p.api == nil {
		return nil, errors.New("stripe: provider is not initialized")
	}

	scale, err := currencyScale(request.Currency)
	if err != nil {
		return nil, err
	}

	pm, err := p.createPaymentMethod(ctx, request)
	if err != nil {
		if resp, ok := declined(err, request); ok {
			return resp, nil
		}
		return nil, fmt.Errorf("stripe: create payment method: %w", err)
	}

	params := &stripe.PaymentIntentParams{
		Params:             stripe.Params{Context: ctx},
		Amount:             stripe.Int64(provider.MinorUnits(request.Amount, scale)),
		Currency:           stripe.String(strings.ToLower(request.Currency)),
		PaymentMethod:      stripe.String(pm.ID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
	}
	if request.Description != "" {
		params.Description = stripe.String(request.Description)
	}
	if request.Email != "" {
		params.ReceiptEmail = stripe.String(request.Email)
	}
	params.AddMetadata(metadataReference, request.Reference)
	for k, v := range request.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(uuid.NewString())

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		if resp, ok := declined(err, request); ok {
			return resp, nil
		}
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	resp := mapPaymentIntent(pi, scale)
	resp.Reference = request.Reference
	if pm.Card != nil {
		resp.Brand = mapBrand(string(pm.Card.Brand))
		resp.Last4 = pm.Card.Last4
	}
	return resp, nil
}

func (p *StripeProvider) createPaymentMethod(ctx context.Context, request provider.PaymentRequest) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String(string(stripe.PaymentMethodTypeCard)),
	}

	if request.Card != nil {
		month, year, ok := card.ParseExpiry(request.Card.Expiry)
		if !ok {
			return nil, fmt.Errorf("stripe: %s", card.MsgExpiryFormat)
		}
		params.Card = &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Digits(request.Card.CardNumber)),
			ExpMonth: stripe.Int64(int64(month)),
			ExpYear:  stripe.Int64(int64(year)),
			CVC:      stripe.String(card.Digits(request.Card.CVV)),
		}
		params.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{
			Name: stripe.String(strings.TrimSpace(request.Card.HolderName)),
		}
	} else {
		params.Card = &stripe.PaymentMethodCardParams{Token: stripe.String(request.Token)}
	}

	if request.Email != "" {
		if params.BillingDetails == nil {
			params.BillingDetails = &stripe.PaymentMethodBillingDetailsParams{}
		}
		params.BillingDetails.Email = stripe.String(request.Email)
	}

	return p.api.PaymentMethods.New(params)
}

// TokenizeCard exchanges raw card data for a single-use Stripe token
func (p *StripeProvider) TokenizeCard(ctx context.Context, request provider.TokenRequest) (*provider.TokenResponse, error) {
	if p.api == nil {
		return nil, errors.New("stripe: provider is not initialized")
	}

	month, year, ok := card.ParseExpiry(request.Card.Expiry)
	if !ok {
		return nil, fmt.Errorf("stripe: %s", card.MsgExpiryFormat)
	}

	number := card.Digits(request.Card.CardNumber)
	params := &stripe.TokenParams{
		Params: stripe.Params{Context: ctx},
		Card: &stripe.CardParams{
			Number:   stripe.String(number),
			ExpMonth: stripe.String(strconv.Itoa(month)),
			ExpYear:  stripe.String(strconv.Itoa(year)),
			CVC:      stripe.String(card.Digits(request.Card.CVV)),
			Name:     stripe.String(strings.TrimSpace(request.Card.HolderName)),
		},
	}

	tok, err := p.api.Tokens.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create token: %w", err)
	}

	resp := &provider.TokenResponse{
		Token:     tok.ID,
		Brand:     card.ClassifyBrand(number),
		Reference: request.Reference,
	}
	if tok.Card != nil && tok.Card.Last4 != "" {
		resp.Last4 = tok.Card.Last4
	} else if len(number) >= 4 {
		resp.Last4 = number[len(number)-4:]
	}
	return resp, nil
}

// GetPaymentStatus retrieves the current status of a payment
func (p *StripeProvider) GetPaymentStatus(ctx context.Context, paymentID string) (*provider.PaymentResponse, error) {
	if p.api == nil {
		return nil, errors.New("stripe: provider is not initialized")
	}
	if paymentID == "" {
		return nil, errors.New("stripe: paymentID is required")
	}

	pi, err := p.api.PaymentIntents.Get(paymentID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, fmt.Errorf("stripe: get payment intent: %w", err)
	}

	scale, err := currencyScale(string(pi.Currency))
	if err != nil {
		return nil, err
	}

	resp := mapPaymentIntent(pi, scale)
	resp.Reference = pi.Metadata[metadataReference]
	return resp, nil
}

// RefundPayment issues a refund for a payment
func (p *StripeProvider) RefundPayment(ctx context.Context, request provider.RefundRequest) (*provider.RefundResponse, error) {
	if p.api == nil {
		return nil, errors.New("stripe: provider is not initialized")
	}
	if request.PaymentID == "" {
		return nil, errors.New("stripe: paymentID is required for refund")
	}

	params := &stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(request.PaymentID),
	}

	scale := int32(2)
	if !request.Amount.IsZero() {
		var err error
		if scale, err = currencyScale(request.Currency); err != nil {
			return nil, err
		}
		params.Amount = stripe.Int64(provider.MinorUnits(request.Amount, scale))
	}
	if request.Reason != "" {
		params.Reason = stripe.String(request.Reason)
	}
	params.SetIdempotencyKey(uuid.NewString())

	refund, err := p.api.Refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create refund: %w", err)
	}

	if refund.Currency != "" {
		if s, err := currencyScale(string(refund.Currency)); err == nil {
			scale = s
		}
	}

	now := time.Now()
	return &provider.RefundResponse{
		Success:     refund.Status != stripe.RefundStatusFailed && refund.Status != stripe.RefundStatusCanceled,
		RefundID:    refund.ID,
		PaymentID:   request.PaymentID,
		Status:      string(refund.Status),
		Amount:      decimal.New(refund.Amount, -scale),
		SystemTime:  &now,
		RawResponse: refund,
	}, nil
}

// ValidateWebhook checks the Stripe-Signature header against the endpoint's
// signing secret before decoding the event.
func (p *StripeProvider) ValidateWebhook(ctx context.Context, body []byte, headers http.Header) (*provider.WebhookEvent, error) {
	if err := signing.VerifyStripeSignature(body, headers.Get(SignatureHeader), p.webhookSecret); err != nil {
		if errors.Is(err, signing.ErrMissingSecret) {
			return nil, fmt.Errorf("stripe: %w", err)
		}
		return nil, provider.ErrInvalidSignature
	}

	var event stripe.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("stripe: decode event: %w", err)
	}

	out := &provider.WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: json.RawMessage(body),
	}

	if event.Data != nil && strings.HasPrefix(string(event.Type), "payment_intent.") {
		if id, ok := event.Data.Object["id"].(string); ok {
			out.PaymentID = id
		}
		if status, ok := event.Data.Object["status"].(string); ok {
			out.Status, _ = mapStatus(stripe.PaymentIntentStatus(status))
		}
	}

	return out, nil
}

// declined turns a Stripe card error into a failed payment response.
func declined(err error, request provider.PaymentRequest) (*provider.PaymentResponse, bool) {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.Type != stripe.ErrorTypeCard {
		return nil, false
	}

	now := time.Now()
	return &provider.PaymentResponse{
		Success:          false,
		Status:           provider.StatusFailed,
		Message:          stripeErr.Msg,
		ErrorCode:        string(stripeErr.Code),
		Reference:        request.Reference,
		Amount:           request.Amount,
		Currency:         strings.ToUpper(request.Currency),
		SystemTime:       &now,
		ProviderResponse: stripeErr,
	}, true
}

func mapPaymentIntent(pi *stripe.PaymentIntent, scale int32) *provider.PaymentResponse {
	now := time.Now()
	status, message := mapStatus(pi.Status)

	resp := &provider.PaymentResponse{
		Success:          status == provider.StatusSuccessful,
		Status:           status,
		Message:          message,
		PaymentID:        pi.ID,
		Amount:           decimal.New(pi.Amount, -scale),
		Currency:         strings.ToUpper(string(pi.Currency)),
		SystemTime:       &now,
		ProviderResponse: pi,
	}

	if pi.LastPaymentError != nil {
		resp.ErrorCode = string(pi.LastPaymentError.Code)
		if pi.LastPaymentError.Msg != "" {
			resp.Message = pi.LastPaymentError.Msg
		}
	}
	if pi.PaymentMethod != nil && pi.PaymentMethod.Card != nil {
		resp.Brand = mapBrand(string(pi.PaymentMethod.Card.Brand))
		resp.Last4 = pi.PaymentMethod.Card.Last4
	}

	return resp
}

func mapStatus(status stripe.PaymentIntentStatus) (provider.PaymentStatus, string) {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return provider.StatusSuccessful, "Payment successful"
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation:
		return provider.StatusPending, "Payment requires additional action"
	case stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresCapture:
		return provider.StatusProcessing, "Payment is being processed"
	case stripe.PaymentIntentStatusCanceled:
		return provider.StatusCancelled, "Payment was cancelled"
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return provider.StatusFailed, "Payment failed - invalid payment method"
	default:
		return provider.StatusPending, fmt.Sprintf("Payment status: %s", status)
	}
}

var stripeBrands = map[string]card.Brand{
	"visa":       card.Visa,
	"mastercard": card.Mastercard,
	"amex":       card.Amex,
	"discover":   card.Discover,
	"diners":     card.Diners,
	"jcb":        card.JCB,
}

func mapBrand(brand string) card.Brand {
	if b, ok := stripeBrands[strings.ToLower(brand)]; ok {
		return b
	}
	return card.Unknown
}

// currencyScale is the number of minor-unit digits of an ISO 4217 code, e.g.
// 2 for AUD and 0 for JPY.
func currencyScale(code string) (int32, error) {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return 0, fmt.Errorf("stripe: unsupported currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}
