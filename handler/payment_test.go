package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/cardgate/apperror"
	"github.com/mstgnz/cardgate/infra/response"
	"github.com/mstgnz/cardgate/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock PaymentService for testing
type mockPaymentService struct {
	createPaymentFunc    func(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error)
	tokenizeCardFunc     func(ctx context.Context, providerName string, request provider.TokenRequest) (*provider.TokenResponse, error)
	getPaymentStatusFunc func(ctx context.Context, providerName, paymentID string) (*provider.PaymentResponse, error)
	refundPaymentFunc    func(ctx context.Context, providerName string, request provider.RefundRequest) (*provider.RefundResponse, error)
	validateWebhookFunc  func(ctx context.Context, providerName string, body []byte, headers http.Header) (*provider.WebhookEvent, error)

	lastProvider string
}

func (m *mockPaymentService) CreatePayment(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
	m.lastProvider = providerName
	if m.createPaymentFunc != nil {
		return m.createPaymentFunc(ctx, providerName, request)
	}
	return &provider.PaymentResponse{
		Success:   true,
		PaymentID: "pay_123",
		Status:    provider.StatusSuccessful,
		Reference: request.Reference,
		Amount:    request.Amount,
		Currency:  request.Currency,
	}, nil
}

func (m *mockPaymentService) TokenizeCard(ctx context.Context, providerName string, request provider.TokenRequest) (*provider.TokenResponse, error) {
	m.lastProvider = providerName
	if m.tokenizeCardFunc != nil {
		return m.tokenizeCardFunc(ctx, providerName, request)
	}
	return &provider.TokenResponse{Token: "tok_123", Last4: "0001"}, nil
}

func (m *mockPaymentService) GetPaymentStatus(ctx context.Context, providerName, paymentID string) (*provider.PaymentResponse, error) {
	m.lastProvider = providerName
	if m.getPaymentStatusFunc != nil {
		return m.getPaymentStatusFunc(ctx, providerName, paymentID)
	}
	return &provider.PaymentResponse{
		Success:   true,
		PaymentID: paymentID,
		Status:    provider.StatusSuccessful,
	}, nil
}

func (m *mockPaymentService) RefundPayment(ctx context.Context, providerName string, request provider.RefundRequest) (*provider.RefundResponse, error) {
	m.lastProvider = providerName
	if m.refundPaymentFunc != nil {
		return m.refundPaymentFunc(ctx, providerName, request)
	}
	return &provider.RefundResponse{
		Success:   true,
		RefundID:  "re_123",
		PaymentID: request.PaymentID,
		Amount:    request.Amount,
	}, nil
}

func (m *mockPaymentService) ValidateWebhook(ctx context.Context, providerName string, body []byte, headers http.Header) (*provider.WebhookEvent, error) {
	m.lastProvider = providerName
	if m.validateWebhookFunc != nil {
		return m.validateWebhookFunc(ctx, providerName, body, headers)
	}
	return &provider.WebhookEvent{ID: "evt_1", Type: "payment.succeeded", PaymentID: "pay_123", Status: provider.StatusSuccessful}, nil
}

// serve routes req through a chi router so URL params resolve.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, req *http.Request) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

const paymentBody = `{
	"reference": "order-1",
	"amount": "10.50",
	"currency": "aud",
	"card": {"holderName": "Jane Citizen", "cardNumber": "4005550000000001", "expiry": "12/30", "cvv": "123"}
}`

func TestPaymentHandler_ProcessPayment(t *testing.T) {
	tests := []struct {
		name           string
		pattern        string
		path           string
		body           string
		createFunc     func(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error)
		expectedStatus int
		expectedError  string
		wantProvider   string
	}{
		{
			name:           "default provider",
			pattern:        "/v1/payments",
			path:           "/v1/payments",
			body:           paymentBody,
			expectedStatus: http.StatusOK,
			wantProvider:   "",
		},
		{
			name:           "named provider",
			pattern:        "/v1/payments/{provider}",
			path:           "/v1/payments/stripe",
			body:           paymentBody,
			expectedStatus: http.StatusOK,
			wantProvider:   "stripe",
		},
		{
			name:           "malformed json",
			pattern:        "/v1/payments",
			path:           "/v1/payments",
			body:           `{"amount":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request format",
		},
		{
			name:    "validation failure",
			pattern: "/v1/payments",
			path:    "/v1/payments",
			body:    paymentBody,
			createFunc: func(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
				return nil, apperror.NewDetailed("Invalid payment request", "Card has expired")
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Card has expired",
		},
		{
			name:    "card declined",
			pattern: "/v1/payments",
			path:    "/v1/payments",
			body:    paymentBody,
			createFunc: func(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
				return &provider.PaymentResponse{Success: false, Status: provider.StatusFailed, Message: "Your card was declined.", ErrorCode: "card_declined"}, nil
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Your card was declined.",
		},
		{
			name:    "unexpected failure",
			pattern: "/v1/payments",
			path:    "/v1/payments",
			body:    paymentBody,
			createFunc: func(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
				return nil, errors.New("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{createPaymentFunc: tt.createFunc}
			h := NewPaymentHandler(svc)

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			w, resp := serve(t, http.MethodPost, tt.pattern, h.ProcessPayment, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, resp.Error)
			assert.Equal(t, tt.expectedStatus == http.StatusOK, resp.Successful)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, tt.wantProvider, svc.lastProvider)
			}
		})
	}
}

func TestPaymentHandler_ProcessPayment_DecodesDecimalAmount(t *testing.T) {
	var got provider.PaymentRequest
	svc := &mockPaymentService{
		createPaymentFunc: func(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error) {
			got = request
			return &provider.PaymentResponse{Success: true}, nil
		},
	}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/payments", strings.NewReader(paymentBody))
	serve(t, http.MethodPost, "/v1/payments", h.ProcessPayment, req)

	assert.True(t, decimal.RequireFromString("10.50").Equal(got.Amount))
	require.NotNil(t, got.Card)
	assert.Equal(t, "4005550000000001", got.Card.CardNumber)
	assert.Equal(t, "order-1", got.Reference)
}

func TestPaymentHandler_TokenizeCard(t *testing.T) {
	svc := &mockPaymentService{}
	h := NewPaymentHandler(svc)

	body := `{"card": {"holderName": "Jane Citizen", "cardNumber": "4005550000000001", "expiry": "12/30", "cvv": "123"}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tokens/sandbox", strings.NewReader(body))
	w, resp := serve(t, http.MethodPost, "/v1/tokens/{provider}", h.TokenizeCard, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Successful)
	assert.Equal(t, "sandbox", svc.lastProvider)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "tok_123", data["token"])
}

func TestPaymentHandler_TokenizeCard_Invalid(t *testing.T) {
	svc := &mockPaymentService{
		tokenizeCardFunc: func(ctx context.Context, providerName string, request provider.TokenRequest) (*provider.TokenResponse, error) {
			return nil, apperror.NewDetailed("Invalid card details", "Invalid card number", "CVV is required")
		},
	}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/tokens", strings.NewReader(`{"card":{}}`))
	w, resp := serve(t, http.MethodPost, "/v1/tokens", h.TokenizeCard, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid card number", resp.Error)
	assert.Equal(t, []string{"Invalid card number", "CVV is required"}, resp.Details)
}

func TestPaymentHandler_GetPaymentStatus(t *testing.T) {
	var gotID string
	svc := &mockPaymentService{
		getPaymentStatusFunc: func(ctx context.Context, providerName, paymentID string) (*provider.PaymentResponse, error) {
			gotID = paymentID
			return &provider.PaymentResponse{Success: true, PaymentID: paymentID, Status: provider.StatusRefunded}, nil
		},
	}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/stripe/pi_123", nil)
	w, resp := serve(t, http.MethodGet, "/v1/payments/{provider}/{paymentID}", h.GetPaymentStatus, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_123", gotID)
	assert.Equal(t, "stripe", svc.lastProvider)
	assert.Equal(t, "refunded", resp.Data.(map[string]any)["status"])
}

func TestPaymentHandler_GetPaymentStatus_NotConfigured(t *testing.T) {
	svc := &mockPaymentService{
		getPaymentStatusFunc: func(ctx context.Context, providerName, paymentID string) (*provider.PaymentResponse, error) {
			return nil, apperror.NewDetailed("payment provider 'paypal' is not configured")
		},
	}
	h := NewPaymentHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/payments/paypal/x", nil)
	w, resp := serve(t, http.MethodGet, "/v1/payments/{provider}/{paymentID}", h.GetPaymentStatus, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payment provider 'paypal' is not configured", resp.Error)
}

func TestPaymentHandler_RefundPayment(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		refundFunc     func(ctx context.Context, providerName string, request provider.RefundRequest) (*provider.RefundResponse, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "full refund",
			body:           `{"paymentId": "pay_123"}`,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed json",
			body:           `not json`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request format",
		},
		{
			name: "gateway refuses",
			body: `{"paymentId": "pay_123", "amount": 500}`,
			refundFunc: func(ctx context.Context, providerName string, request provider.RefundRequest) (*provider.RefundResponse, error) {
				return &provider.RefundResponse{Success: false, Message: "Refund amount exceeds the payment", ErrorCode: "amount_too_large"}, nil
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Refund amount exceeds the payment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPaymentService{refundPaymentFunc: tt.refundFunc}
			h := NewPaymentHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/v1/payments/sandbox/refund", strings.NewReader(tt.body))
			w, resp := serve(t, http.MethodPost, "/v1/payments/{provider}/refund", h.RefundPayment, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}
}
