// Package provider puts payment gateways behind one interface and runs the local
// card, amount and request checks before anything is forwarded.
//
// # Core Concepts
//
//   - PaymentProvider: the interface every gateway implements
//   - ProviderRegistry: name -> factory lookup; gateways register themselves in init
//   - PaymentService: validates requests, routes them to a configured provider,
//     signs tokens and records audit events
//
// # Basic Usage
//
//	service := provider.NewPaymentService(
//	    provider.WithSigning(signing.Config{SharedSecret: secret}),
//	)
//
//	err := service.ConfigureProvider("stripe", map[string]string{
//	    "secretKey":   "sk_test_...",
//	    "environment": "sandbox",
//	})
//
//	resp, err := service.CreatePayment(ctx, "stripe", provider.PaymentRequest{
//	    Reference: "order-1001",
//	    Amount:    decimal.RequireFromString("49.95"),
//	    Currency:  "AUD",
//	    Card: &card.CardDetails{
//	        HolderName: "Jane Citizen",
//	        CardNumber: "4005 5500 0000 0001",
//	        Expiry:     "12/30",
//	        CVV:        "123",
//	    },
//	})
//
// Invalid input comes back as *apperror.Detailed carrying one message per
// problem; the gateway is not called.
//
// # Webhooks
//
// ValidateWebhook receives the raw request body and headers. Providers verify
// the signature first and return ErrInvalidSignature without parsing the body
// when it does not match.
package provider
