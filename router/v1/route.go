package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/cardgate/handler"
	"github.com/mstgnz/cardgate/infra/middle"
)

// Handlers groups the handlers mounted under /v1.
type Handlers struct {
	Payment *handler.PaymentHandler
	Card    *handler.CardHandler
	Config  *handler.ConfigHandler
	// APIKey guards the configuration routes.
	APIKey string
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers) {
	// Payment routes; a missing provider segment uses the default provider
	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.Payment.ProcessPayment)
		r.Post("/{provider}", h.Payment.ProcessPayment)
		r.Get("/{provider}/{paymentID}", h.Payment.GetPaymentStatus)
		r.Post("/{provider}/refund", h.Payment.RefundPayment)
	})

	r.Route("/tokens", func(r chi.Router) {
		r.Post("/", h.Payment.TokenizeCard)
		r.Post("/{provider}", h.Payment.TokenizeCard)
	})

	// Card tools for payment forms
	r.Route("/cards", func(r chi.Router) {
		r.Post("/validate", h.Card.ValidateCard)
		r.Post("/format", h.Card.FormatCard)
	})

	r.Route("/config", func(r chi.Router) {
		r.Use(middle.AuthMiddleware(h.APIKey))
		r.Get("/{provider}", h.Config.GetRequiredConfig)
		r.Post("/{provider}", h.Config.SetProviderConfig)
	})
}
