package response

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mstgnz/cardgate/apperror"
)

// Response is a standardized API response structure
type Response struct {
	Successful bool     `json:"successful"`
	Message    string   `json:"message,omitempty"`
	Error      string   `json:"error,omitempty"`
	Details    []string `json:"details,omitempty"`
	Data       any      `json:"data,omitempty"`
}

// Success writes a successful response with data
func Success(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, Response{
		Successful: true,
		Message:    message,
		Data:       data,
	})
}

// Error writes an error response. The error text, when present, becomes the
// single entry of details.
func Error(w http.ResponseWriter, statusCode int, message string, err error) {
	resp := Response{
		Successful: false,
		Error:      message,
	}

	if err != nil {
		resp.Details = []string{err.Error()}
	}

	WriteJSON(w, statusCode, resp)
}

// Failure normalizes err and writes it with the status code apperror assigns to it:
// 400 for caller-fixable problems, 500 otherwise.
func Failure(w http.ResponseWriter, err error) {
	src := apperror.Classify(err)
	normalized := apperror.Normalize(src)

	WriteJSON(w, apperror.StatusCode(src), Response{
		Successful: false,
		Error:      normalized.Message,
		Details:    normalized.SubErrors,
	})
}

// WriteJSON writes v as a JSON body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response: failed to encode body: %v", err)
	}
}
