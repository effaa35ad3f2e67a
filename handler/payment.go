package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/cardgate/infra/response"
	"github.com/mstgnz/cardgate/provider"
)

const requestTimeout = 30 * time.Second

// PaymentServiceInterface is the part of provider.PaymentService the HTTP layer uses.
type PaymentServiceInterface interface {
	CreatePayment(ctx context.Context, providerName string, request provider.PaymentRequest) (*provider.PaymentResponse, error)
	TokenizeCard(ctx context.Context, providerName string, request provider.TokenRequest) (*provider.TokenResponse, error)
	GetPaymentStatus(ctx context.Context, providerName, paymentID string) (*provider.PaymentResponse, error)
	RefundPayment(ctx context.Context, providerName string, request provider.RefundRequest) (*provider.RefundResponse, error)
	ValidateWebhook(ctx context.Context, providerName string, body []byte, headers http.Header) (*provider.WebhookEvent, error)
}

// PaymentHandler handles payment, tokenization and refund requests.
type PaymentHandler struct {
	paymentService PaymentServiceInterface
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// ProcessPayment charges a card or token. An empty provider segment uses the
// default provider.
func (h *PaymentHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	resp, err := h.paymentService.CreatePayment(ctx, chi.URLParam(r, "provider"), req)
	if err != nil {
		response.Failure(w, err)
		return
	}

	if !resp.Success {
		declined(w, resp.Message, resp)
		return
	}

	response.Success(w, http.StatusOK, "Payment processed", resp)
}

// TokenizeCard exchanges raw card details for a gateway token.
func (h *PaymentHandler) TokenizeCard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	resp, err := h.paymentService.TokenizeCard(ctx, chi.URLParam(r, "provider"), req)
	if err != nil {
		response.Failure(w, err)
		return
	}

	response.Success(w, http.StatusCreated, "Card tokenized", resp)
}

// GetPaymentStatus returns the current state of a payment.
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	resp, err := h.paymentService.GetPaymentStatus(ctx, chi.URLParam(r, "provider"), chi.URLParam(r, "paymentID"))
	if err != nil {
		response.Failure(w, err)
		return
	}

	response.Success(w, http.StatusOK, "Payment status retrieved", resp)
}

// RefundPayment refunds a payment in full, or partially when an amount is given.
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req provider.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	resp, err := h.paymentService.RefundPayment(ctx, chi.URLParam(r, "provider"), req)
	if err != nil {
		response.Failure(w, err)
		return
	}

	if !resp.Success {
		declined(w, resp.Message, resp)
		return
	}

	response.Success(w, http.StatusOK, "Refund processed", resp)
}

// declined writes a gateway-declared failure as 400 with the gateway's result.
func declined(w http.ResponseWriter, message string, data any) {
	if message == "" {
		message = "Payment declined"
	}
	response.WriteJSON(w, http.StatusBadRequest, response.Response{
		Successful: false,
		Error:      message,
		Data:       data,
	})
}
