// Package handler contains the chi HTTP handlers for cardgate: payments, tokens,
// refunds, webhooks, card tools, provider configuration and health.
//
// Handlers decode JSON, call the payment service and write responses through
// infra/response. Service errors go through response.Failure, which normalizes
// them and answers 400 for caller-fixable problems and 500 for everything else.
package handler
