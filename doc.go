// Package cardgate is a card payment gateway. It validates and formats card
// data, signs what it hands back to clients, normalizes errors from every layer
// into one shape and forwards payments to card processors behind a single API.
//
// # Overview
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │    │                 │    │                 │
//	│  Checkout form  │◄──►│    cardgate     │◄──►│  Card gateway   │
//	│  / your app     │    │                 │    │ (Stripe, ...)   │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// Card data is checked before any gateway is called. A request with a bad card
// number, an expired card or a malformed amount is answered with every problem
// at once and never leaves the process.
//
// # Packages
//
//   - card: Luhn check, brand detection, field formatting and validation, PAN redaction
//   - signing: verification hashes and webhook signature checks (HMAC-SHA256)
//   - apperror: turns any error into {message, errors} and picks the HTTP status
//   - provider: the gateway interface, registry and PaymentService
//   - provider/stripe: Stripe PaymentIntents, tokens and refunds
//   - provider/sandbox: an in-memory gateway that approves test cards
//   - handler, router: the chi HTTP surface
//   - infra: configuration, logging, OpenSearch audit, SQLite credential store, middleware
//
// # Quick Start
//
//	package main
//
//	import (
//	    "context"
//
//	    "github.com/mstgnz/cardgate/card"
//	    "github.com/mstgnz/cardgate/provider"
//	    _ "github.com/mstgnz/cardgate/provider/sandbox" // Import to register provider
//	    "github.com/shopspring/decimal"
//	)
//
//	func main() {
//	    service := provider.NewPaymentService()
//
//	    err := service.ConfigureProvider("sandbox", map[string]string{
//	        "environment": "sandbox",
//	    })
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    resp, err := service.CreatePayment(context.Background(), "sandbox", provider.PaymentRequest{
//	        Reference: "order-1001",
//	        Amount:    decimal.RequireFromString("49.95"),
//	        Currency:  "AUD",
//	        Card: &card.CardDetails{
//	            HolderName: "Jane Citizen",
//	            CardNumber: "4005 5500 0000 0001",
//	            Expiry:     "12/30",
//	            CVV:        "123",
//	        },
//	    })
//	    if err != nil {
//	        panic(err) // validation problems arrive as *apperror.Detailed
//	    }
//	    _ = resp.Success
//	}
//
// # HTTP API
//
//	POST /v1/payments[/{provider}]             charge a card or token
//	GET  /v1/payments/{provider}/{paymentID}   payment status
//	POST /v1/payments/{provider}/refund        full or partial refund
//	POST /v1/tokens[/{provider}]               tokenize a card
//	POST /v1/cards/validate                    validate form fields
//	POST /v1/cards/format                      format form fields for display
//	GET  /v1/config/{provider}                 required configuration (API key)
//	POST /v1/config/{provider}                 store credentials (API key)
//	POST /webhooks/{provider}                  signed gateway notifications
//	GET  /health
//
// Errors always have the shape {"successful": false, "error": "...", "details": [...]}.
// Problems the caller can fix answer 400, everything else 500.
//
// # Configuration
//
// Environment variables (a .env file is read when present):
//
//	APP_PORT=9999
//	ENVIRONMENT=development
//	GATEWAY_SHARED_SECRET=...   # signs verification hashes
//	WEBHOOK_SECRET=...          # sandbox webhooks; defaults to the shared secret
//	DEFAULT_PROVIDER=stripe
//	STRIPE_SECRET_KEY=sk_test_...
//	STRIPE_WEBHOOK_SECRET=whsec_...
//	SQLITE_PATH=./data/cardgate.db
//	API_KEY=...                 # bearer key for /v1/config
//	RATE_LIMIT_PER_MINUTE=100
//	ENABLE_OPENSEARCH_LOGGING=false
//	OPENSEARCH_URL=http://localhost:9200
package cardgate
