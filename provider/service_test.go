package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/mstgnz/cardgate/apperror"
	"github.com/mstgnz/cardgate/card"
	"github.com/mstgnz/cardgate/infra/middle"
	"github.com/mstgnz/cardgate/infra/opensearch"
	"github.com/mstgnz/cardgate/signing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*PaymentService, *mockProvider, *recordingSink) {
	t.Helper()
	mock := &mockProvider{}
	sink := &recordingSink{}
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithAuditSink(sink)}, opts...)
	s := NewPaymentService(opts...)
	s.AddProvider("mock", mock)
	return s, mock, sink
}

func validCard() *card.CardDetails {
	return &card.CardDetails{
		HolderName: "Jane Citizen",
		CardNumber: "4005 5500 0000 0001",
		Expiry:     "12/30",
		CVV:        "123",
	}
}

func detailsOf(t *testing.T, err error) []string {
	t.Helper()
	var d *apperror.Detailed
	require.True(t, errors.As(err, &d), "expected *apperror.Detailed, got %T", err)
	return d.Errors
}

func TestPaymentService_CreatePayment(t *testing.T) {
	s, mock, sink := newTestService(t)
	ctx := middle.WithRequestID(context.Background(), "req-1")

	resp, err := s.CreatePayment(ctx, "", PaymentRequest{
		Reference: "order-1",
		Amount:    decimal.RequireFromString("49.95"),
		Currency:  "aud",
		Card:      validCard(),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "pay_123", resp.PaymentID)

	require.Len(t, mock.payments, 1)
	assert.Equal(t, "AUD", mock.payments[0].Currency, "currency is upper-cased before forwarding")

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, opensearch.EventPayment, events[0].Type)
	assert.Equal(t, "mock", events[0].Provider)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "49.95", events[0].Amount)
	assert.Equal(t, "Visa", events[0].Brand)
	assert.Equal(t, "0001", events[0].Last4)
	assert.True(t, events[0].Success)
}

func TestPaymentService_CreatePayment_ValidationStopsBeforeGateway(t *testing.T) {
	tests := []struct {
		name    string
		request PaymentRequest
		want    []string
	}{
		{
			name:    "missing method",
			request: PaymentRequest{Reference: "r", Amount: decimal.NewFromInt(10), Currency: "AUD"},
			want:    []string{"Either card or token is required"},
		},
		{
			name:    "both methods",
			request: PaymentRequest{Reference: "r", Amount: decimal.NewFromInt(10), Currency: "AUD", Card: validCard(), Token: "tok_1"},
			want:    []string{"Provide either card or token, not both"},
		},
		{
			name:    "three decimals",
			request: PaymentRequest{Reference: "r", Amount: decimal.RequireFromString("10.005"), Currency: "AUD", Token: "tok_1"},
			want:    []string{"Amount must have at most 2 decimal places"},
		},
		{
			name:    "precision beyond float",
			request: PaymentRequest{Reference: "r", Amount: decimal.RequireFromString("10.00000000000000001"), Currency: "AUD", Token: "tok_1"},
			want:    []string{"Amount must have at most 2 decimal places"},
		},
		{
			name:    "unknown currency",
			request: PaymentRequest{Reference: "r", Amount: decimal.NewFromInt(10), Currency: "zzz", Token: "tok_1"},
			want:    []string{"Currency 'ZZZ' is not a recognized ISO 4217 code"},
		},
		{
			name:    "zero amount",
			request: PaymentRequest{Reference: "r", Amount: decimal.Zero, Currency: "AUD", Token: "tok_1"},
			want:    []string{"Amount must be greater than zero"},
		},
		{
			name:    "bad email",
			request: PaymentRequest{Reference: "r", Amount: decimal.NewFromInt(10), Currency: "AUD", Token: "tok_1", Email: "nope"},
			want:    []string{"Invalid email address"},
		},
		{
			name: "expired card",
			request: PaymentRequest{Reference: "r", Amount: decimal.NewFromInt(10), Currency: "AUD", Card: &card.CardDetails{
				HolderName: "Jane Citizen", CardNumber: "4005550000000001", Expiry: "01/24", CVV: "123",
			}},
			want: []string{card.MsgExpired},
		},
		{
			name:    "missing reference and currency",
			request: PaymentRequest{Amount: decimal.NewFromInt(10), Token: "tok_1"},
			want:    []string{"Reference is required", "Currency is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, sink := newTestService(t)

			resp, err := s.CreatePayment(context.Background(), "mock", tt.request)
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, tt.want, detailsOf(t, err))
			assert.Equal(t, 400, apperror.StatusCode(apperror.Classify(err)))
			assert.Empty(t, mock.payments)
			assert.Empty(t, sink.all())
		})
	}
}

func TestPaymentService_CreatePayment_GatewayError(t *testing.T) {
	s, mock, sink := newTestService(t)
	mock.err = errors.New("connection reset")

	_, err := s.CreatePayment(context.Background(), "mock", PaymentRequest{
		Reference: "r", Amount: decimal.NewFromInt(10), Currency: "AUD", Token: "tok_1",
	})
	require.Error(t, err)

	events := sink.all()
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	require.NotNil(t, events[0].Error)
	assert.Equal(t, "connection reset", events[0].Error.Message)
}

func TestPaymentService_UnknownProvider(t *testing.T) {
	s := NewPaymentService()

	_, err := s.CreatePayment(context.Background(), "", PaymentRequest{})
	require.Error(t, err)
	assert.Equal(t, "no payment provider is configured", apperror.From(err).Message)

	s.AddProvider("mock", &mockProvider{})
	_, err = s.GetPaymentStatus(context.Background(), "other", "pay_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'other' is not configured")
}

func TestPaymentService_SetDefaultProvider(t *testing.T) {
	s := NewPaymentService()
	s.AddProvider("first", &mockProvider{})
	s.AddProvider("second", &mockProvider{})

	name, _, err := s.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "first", name)

	require.NoError(t, s.SetDefaultProvider("SECOND"))
	name, _, err = s.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "second", name)

	assert.Error(t, s.SetDefaultProvider("missing"))
	assert.ElementsMatch(t, []string{"first", "second"}, s.ProviderNames())
}

func TestPaymentService_ConfigureProvider(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register("mock", func() PaymentProvider { return &mockProvider{} })
	s := NewPaymentService(WithRegistry(registry))

	err := s.ConfigureProvider("mock", map[string]string{"environment": "sandbox"})
	require.Error(t, err)
	assert.Equal(t, []string{"mock: required field 'apiKey' is missing"}, detailsOf(t, err))

	require.NoError(t, s.ConfigureProvider("mock", map[string]string{"apiKey": "key", "environment": "sandbox"}))
	_, p, err := s.GetProvider("mock")
	require.NoError(t, err)
	assert.Equal(t, "key", p.(*mockProvider).config["apiKey"])

	err = s.ConfigureProvider("unknown", nil)
	assert.Contains(t, err.Error(), "is not registered")
}

func TestPaymentService_RequiredConfig(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register("mock", func() PaymentProvider { return &mockProvider{} })
	s := NewPaymentService(WithRegistry(registry))

	fields, err := s.RequiredConfig("MOCK", "sandbox")
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, "apiKey", fields[0].Key)

	_, err = s.RequiredConfig("unknown", "sandbox")
	assert.Error(t, err)
}

func TestPaymentService_TokenizeCard(t *testing.T) {
	secret := signing.Config{SharedSecret: "secret"}
	s, mock, sink := newTestService(t, WithSigning(secret))

	resp, err := s.TokenizeCard(context.Background(), "mock", TokenRequest{
		Card:      *validCard(),
		Reference: "REF1",
		Amount:    decimal.NewFromInt(1000),
		Currency:  "aud",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok_123", resp.Token)
	assert.Equal(t, fixedNow.Unix(), resp.Timestamp)
	assert.Equal(t, "REF1", resp.Reference)

	want, err := signing.GenerateVerificationHash(signing.VerificationInput{
		Reference: "REF1",
		Amount:    decimal.NewFromInt(1000),
		Currency:  "AUD",
		Timestamp: fixedNow.Unix(),
		CardToken: "tok_123",
	}, secret)
	require.NoError(t, err)
	assert.Equal(t, want, resp.VerificationHash)

	require.Len(t, mock.tokens, 1)
	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, opensearch.EventTokenization, events[0].Type)
	assert.Equal(t, "0001", events[0].Last4)
}

func TestPaymentService_TokenizeCard_NoSecretNoHash(t *testing.T) {
	s, _, _ := newTestService(t)

	resp, err := s.TokenizeCard(context.Background(), "mock", TokenRequest{Card: *validCard()})
	require.NoError(t, err)
	assert.Empty(t, resp.VerificationHash)
	assert.Zero(t, resp.Timestamp)
}

func TestPaymentService_TokenizeCard_InvalidCard(t *testing.T) {
	s, mock, _ := newTestService(t)

	_, err := s.TokenizeCard(context.Background(), "mock", TokenRequest{Card: card.CardDetails{
		HolderName: "J",
		CardNumber: "4005550000000002",
		Expiry:     "13/30",
		CVV:        "",
	}})
	require.Error(t, err)
	assert.Equal(t, []string{
		card.MsgHolderNameTooShort,
		card.MsgNumberInvalid,
		card.MsgExpiryFormat,
		card.MsgCVVRequired,
	}, detailsOf(t, err))
	assert.Empty(t, mock.tokens)
}

func TestPaymentService_RefundPayment(t *testing.T) {
	s, mock, sink := newTestService(t)

	resp, err := s.RefundPayment(context.Background(), "mock", RefundRequest{PaymentID: "pay_123", Amount: decimal.RequireFromString("5.50"), Currency: "aud"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "AUD", mock.refunds[0].Currency)
	assert.Equal(t, "5.50", sink.all()[0].Amount)

	_, err = s.RefundPayment(context.Background(), "mock", RefundRequest{PaymentID: "pay_123", Amount: decimal.NewFromInt(-1)})
	assert.Equal(t, []string{"Amount must be greater than zero"}, detailsOf(t, err))

	_, err = s.RefundPayment(context.Background(), "mock", RefundRequest{})
	assert.Equal(t, []string{"PaymentID is required"}, detailsOf(t, err))

	_, err = s.RefundPayment(context.Background(), "mock", RefundRequest{PaymentID: "pay_123", Amount: decimal.NewFromInt(5)})
	assert.Equal(t, []string{"Currency is required for a partial refund"}, detailsOf(t, err))

	_, err = s.RefundPayment(context.Background(), "mock", RefundRequest{PaymentID: "pay_123", Amount: decimal.NewFromInt(5), Currency: "ZZZ"})
	assert.Equal(t, []string{"Currency 'ZZZ' is not a recognized ISO 4217 code"}, detailsOf(t, err))
	assert.Len(t, mock.refunds, 1)
}

func TestPaymentService_GetPaymentStatus(t *testing.T) {
	s, _, sink := newTestService(t)

	resp, err := s.GetPaymentStatus(context.Background(), "mock", "pay_9")
	require.NoError(t, err)
	assert.Equal(t, "pay_9", resp.PaymentID)
	assert.Equal(t, opensearch.EventStatus, sink.all()[0].Type)

	_, err = s.GetPaymentStatus(context.Background(), "mock", " ")
	assert.Error(t, err)
}

func TestPaymentService_ValidateWebhook(t *testing.T) {
	s, _, sink := newTestService(t)
	body := []byte(`{"id":"evt_1"}`)

	evt, err := s.ValidateWebhook(context.Background(), "mock", body, http.Header{"X-Signature": []string{"ok"}})
	require.NoError(t, err)
	assert.Equal(t, "pay_123", evt.PaymentID)
	assert.JSONEq(t, string(body), string(evt.Payload))

	evt, err = s.ValidateWebhook(context.Background(), "mock", body, http.Header{})
	assert.Nil(t, evt)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, 400, apperror.StatusCode(apperror.Classify(err)))

	events := sink.all()
	require.Len(t, events, 2)
	assert.True(t, events[0].Success)
	assert.False(t, events[1].Success)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1050), MinorUnits(decimal.RequireFromString("10.50"), 2))
	assert.Equal(t, int64(1000), MinorUnits(decimal.NewFromInt(1000), 0))
	assert.Equal(t, int64(1235), MinorUnits(decimal.RequireFromString("1.2345"), 3))
}
