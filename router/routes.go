package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/cardgate/handler"
	"github.com/mstgnz/cardgate/infra/middle"
	"github.com/mstgnz/cardgate/infra/response"
	"github.com/mstgnz/cardgate/provider"
	v1 "github.com/mstgnz/cardgate/router/v1"
)

// Options carries what the routes need from the process.
type Options struct {
	PaymentService *provider.PaymentService
	// ConfigStore persists credentials posted to /v1/config. Optional.
	ConfigStore handler.ConfigStore
	// APIKey is the bearer key for /v1/config. Empty rejects every config request.
	APIKey string
	// RateLimiter throttles per client IP. Optional.
	RateLimiter  *middle.RateLimiter
	AuditEnabled bool
}

// Routes installs the middleware stack and every route on r.
func Routes(r chi.Router, opts Options) {
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.SecurityHeadersMiddleware())
	if opts.RateLimiter != nil {
		r.Use(middle.RateLimitMiddleware(opts.RateLimiter))
	}
	r.Use(middle.RequestValidationMiddleware())

	paymentHandler := handler.NewPaymentHandler(opts.PaymentService)

	r.Get("/health", handler.NewHealthHandler(opts.PaymentService, opts.AuditEnabled).CheckHealth)

	// Gateways call these; they authenticate by signature, not API key
	r.Post("/webhooks/{provider}", handler.NewWebhookHandler(opts.PaymentService).HandleWebhook)

	r.Route("/v1", func(r chi.Router) {
		v1.Routes(r, v1.Handlers{
			Payment: paymentHandler,
			Card:    handler.NewCardHandler(),
			Config:  handler.NewConfigHandler(opts.PaymentService, opts.ConfigStore),
			APIKey:  opts.APIKey,
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	})
}
