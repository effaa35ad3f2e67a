// Package apperror turns the different error shapes that reach an HTTP boundary
// into one message plus a list of sub-errors.
//
// The accepted shapes form a closed set: every Source is one of Text, Failure,
// *Detailed, Gateway or Unknown. Use Classify to map an arbitrary value onto it.
package apperror

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v82"
)

// FallbackMessage is used when a source carries no usable message.
const FallbackMessage = "An unknown error occurred"

// Source is an error shape accepted by Message, Details and Normalize.
type Source interface {
	source()
}

// Text is a bare error string.
type Text string

// Failure wraps an ordinary Go error.
type Failure struct {
	Err error
}

// Detailed carries a summary message and the individual problems behind it,
// typically the output of a validator.
type Detailed struct {
	Message string
	Errors  []string
}

// Gateway wraps an error returned by the Stripe SDK.
type Gateway struct {
	Err *stripe.Error
}

// Unknown holds any other value. It always normalizes to FallbackMessage.
type Unknown struct {
	Value any
}

func (Text) source()      {}
func (Failure) source()   {}
func (*Detailed) source() {}
func (Gateway) source()   {}
func (Unknown) source()   {}

// NewDetailed returns a Detailed error with the given message and sub-errors.
func NewDetailed(message string, errs ...string) *Detailed {
	if errs == nil {
		errs = []string{}
	}
	return &Detailed{Message: message, Errors: errs}
}

func (d *Detailed) Error() string {
	return Message(d)
}

// NormalizedError is the single shape handed to HTTP responses.
type NormalizedError struct {
	Message   string   `json:"error"`
	SubErrors []string `json:"details"`
}

func (e NormalizedError) Error() string {
	return e.Message
}

// Classify maps v onto a Source. Errors are unwrapped with errors.As, so a
// *Detailed or *stripe.Error anywhere in the chain is recognized.
func Classify(v any) Source {
	switch x := v.(type) {
	case nil:
		return Unknown{}
	case Source:
		return x
	case string:
		return Text(x)
	case error:
		var detailed *Detailed
		if errors.As(x, &detailed) {
			return detailed
		}
		var stripeErr *stripe.Error
		if errors.As(x, &stripeErr) {
			return Gateway{Err: stripeErr}
		}
		return Failure{Err: x}
	default:
		return Unknown{Value: v}
	}
}

// Message picks the most specific message available: the first sub-error, then
// the message, then the raw string, then FallbackMessage.
func Message(src Source) string {
	var msg string

	switch s := src.(type) {
	case Text:
		msg = string(s)
	case Failure:
		if s.Err != nil {
			msg = s.Err.Error()
		}
	case *Detailed:
		if s != nil {
			if len(s.Errors) > 0 && s.Errors[0] != "" {
				msg = s.Errors[0]
			} else {
				msg = s.Message
			}
		}
	case Gateway:
		if s.Err != nil {
			msg = s.Err.Msg
		}
	case Unknown:
	}

	if msg == "" {
		return FallbackMessage
	}
	return msg
}

// Details returns the sub-error list when one is present, otherwise a single
// element list holding Message(src).
func Details(src Source) []string {
	if d, ok := src.(*Detailed); ok && d != nil && len(d.Errors) > 0 {
		out := make([]string, len(d.Errors))
		copy(out, d.Errors)
		return out
	}
	return []string{Message(src)}
}

// Normalize combines Message and Details.
func Normalize(src Source) NormalizedError {
	return NormalizedError{
		Message:   Message(src),
		SubErrors: Details(src),
	}
}

// From is Normalize(Classify(v)).
func From(v any) NormalizedError {
	return Normalize(Classify(v))
}

// StatusCode maps a source to the HTTP status a handler should answer with:
// 400 for problems the caller can fix (validation failures, card declines,
// invalid gateway requests) and 500 for everything else.
func StatusCode(src Source) int {
	switch s := src.(type) {
	case *Detailed:
		return http.StatusBadRequest
	case Gateway:
		if s.Err != nil && (s.Err.Type == stripe.ErrorTypeCard || s.Err.Type == stripe.ErrorTypeInvalidRequest) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}
