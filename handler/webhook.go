package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/cardgate/infra/logger"
	"github.com/mstgnz/cardgate/infra/middle"
	"github.com/mstgnz/cardgate/infra/response"
	"github.com/mstgnz/cardgate/provider"
)

// WebhookHandler receives gateway notifications.
type WebhookHandler struct {
	paymentService PaymentServiceInterface
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(paymentService PaymentServiceInterface) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService}
}

// HandleWebhook reads the raw body and hands it to the provider, which checks the
// signature before anything is parsed.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	providerName := chi.URLParam(r, "provider")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid webhook body", err)
		return
	}

	event, err := h.paymentService.ValidateWebhook(ctx, providerName, body, r.Header)
	if err != nil {
		response.Failure(w, err)
		return
	}

	h.logEvent(ctx, providerName, event)

	response.Success(w, http.StatusOK, "Webhook received", map[string]string{
		"status":    "accepted",
		"eventId":   event.ID,
		"paymentId": event.PaymentID,
	})
}

func (h *WebhookHandler) logEvent(ctx context.Context, providerName string, event *provider.WebhookEvent) {
	logCtx := logger.LogContext{
		Provider:  providerName,
		RequestID: middle.GetRequestID(ctx),
		Fields: map[string]any{
			"event_id":   event.ID,
			"event_type": event.Type,
			"payment_id": event.PaymentID,
			"status":     string(event.Status),
		},
	}

	switch event.Status {
	case provider.StatusFailed, provider.StatusCancelled:
		logger.Warn("Payment failed via webhook", logCtx)
	case provider.StatusRefunded:
		logger.Info("Payment refunded via webhook", logCtx)
	case provider.StatusSuccessful:
		logger.Info("Payment completed via webhook", logCtx)
	default:
		logger.Info("Webhook event processed", logCtx)
	}
}
