package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/mstgnz/cardgate/card"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// EventType classifies an audit event.
type EventType string

const (
	EventPayment      EventType = "payment"
	EventTokenization EventType = "tokenization"
	EventStatus       EventType = "status"
	EventRefund       EventType = "refund"
	EventWebhook      EventType = "webhook"
)

// Event is one gateway interaction. It never carries a full card number or CVV;
// card data is reduced to brand and last four digits before it gets here.
type Event struct {
	ID         string     `json:"id"`
	Timestamp  time.Time  `json:"timestamp"`
	Type       EventType  `json:"type"`
	Provider   string     `json:"provider"`
	RequestID  string     `json:"request_id,omitempty"`
	Reference  string     `json:"reference,omitempty"`
	PaymentID  string     `json:"payment_id,omitempty"`
	Amount     string     `json:"amount,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	Brand      string     `json:"brand,omitempty"`
	Last4      string     `json:"last4,omitempty"`
	Status     string     `json:"status,omitempty"`
	Success    bool       `json:"success"`
	DurationMs int64      `json:"duration_ms"`
	Error      *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// AuditLogger indexes audit events and system logs. A nil *AuditLogger is a
// valid no-op logger.
type AuditLogger struct {
	client *Client
}

// NewAuditLogger creates a new OpenSearch audit logger
func NewAuditLogger(client *Client) *AuditLogger {
	return &AuditLogger{
		client: client,
	}
}

// LogEvent writes event to the provider's event index.
func (l *AuditLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || !l.client.IsEnabled() {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Error != nil {
		event.Error.Message = SanitizeForLog(event.Error.Message)
	}

	return l.index(ctx, l.client.EventIndexName(event.Provider), event.ID, event)
}

// LogSystemEvent writes an arbitrary system log document.
func (l *AuditLogger) LogSystemEvent(ctx context.Context, log any) error {
	if l == nil || !l.client.IsEnabled() {
		return nil
	}
	return l.index(ctx, SystemIndexName, "", log)
}

func (l *AuditLogger) index(ctx context.Context, indexName, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      indexName,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

var sensitiveFields = []string{
	"cardNumber", "card_number", "number", "cvv", "cvv2", "cvc", "cvc2", "securityCode", "security_code", "expiry",
	"apiKey", "api_key", "secretKey", "secret_key", "webhookSecret", "sharedSecret",
	"password", "authorization", "x-api-key",
}

type redaction struct {
	re   *regexp.Regexp
	repl string
}

var sensitivePatterns = buildSensitivePatterns()

func buildSensitivePatterns() []redaction {
	patterns := make([]redaction, 0, len(sensitiveFields)*3+1)
	for _, field := range sensitiveFields {
		quoted := regexp.QuoteMeta(field)
		patterns = append(patterns,
			redaction{regexp.MustCompile(`(?i)("` + quoted + `"\s*:\s*)"[^"]*"`), `${1}"***REDACTED***"`},
			redaction{regexp.MustCompile(`(?i)("` + quoted + `"\s*:\s*)-?\d+`), `${1}"***REDACTED***"`},
			redaction{regexp.MustCompile(`(?i)(\b` + quoted + `=)[^&\s]+`), `${1}***REDACTED***`},
		)
	}
	// Security codes quoted in free text, e.g. "CVV 123 rejected" or "cvc: 1234".
	patterns = append(patterns, redaction{
		regexp.MustCompile(`(?i)(\b(?:cvv2?|cvc2?|security[ _]?code)\b[\s:=]*)\d{3,4}\b`),
		`${1}***`,
	})
	return patterns
}

// SanitizeForLog redacts the values of sensitive JSON keys and query parameters,
// security codes in free text and any card number still present.
func SanitizeForLog(data string) string {
	if data == "" {
		return data
	}

	result := data
	for _, r := range sensitivePatterns {
		result = r.re.ReplaceAllString(result, r.repl)
	}

	result, _ = card.RedactPAN(result)
	return result
}
