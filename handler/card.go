package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mstgnz/cardgate/card"
	"github.com/mstgnz/cardgate/infra/response"
)

// CardHandler exposes the card validators and formatters to payment forms.
type CardHandler struct{}

// NewCardHandler creates a new card handler
func NewCardHandler() *CardHandler {
	return &CardHandler{}
}

// ValidateCardRequest carries a card plus the optional contact fields a checkout
// form collects next to it.
type ValidateCardRequest struct {
	Card     card.CardDetails `json:"card"`
	Email    *string          `json:"email,omitempty"`
	Phone    *string          `json:"phone,omitempty"`
	Postcode *string          `json:"postcode,omitempty"`
	Amount   *float64         `json:"amount,omitempty"`
}

// ValidateCardResponse reports every problem at once.
type ValidateCardResponse struct {
	Valid  bool                        `json:"valid"`
	Card   card.ValidationResult       `json:"card"`
	Fields map[string]card.FieldResult `json:"fields,omitempty"`
}

// FormatCardRequest holds raw, partially typed field values.
type FormatCardRequest struct {
	CardNumber string   `json:"cardNumber"`
	Expiry     string   `json:"expiry"`
	CVV        string   `json:"cvv"`
	Amount     *float64 `json:"amount,omitempty"`
	Currency   string   `json:"currency,omitempty"`
}

// FormatCardResponse holds the display forms of the submitted fields.
type FormatCardResponse struct {
	CardNumber string     `json:"cardNumber"`
	Masked     string     `json:"masked"`
	Brand      card.Brand `json:"brand"`
	Expiry     string     `json:"expiry"`
	CVV        string     `json:"cvv"`
	Amount     string     `json:"amount,omitempty"`
}

// ValidateCard runs the card checks and any optional field checks. Invalid input
// is a normal outcome and is answered with 200.
func (h *CardHandler) ValidateCard(w http.ResponseWriter, r *http.Request) {
	var req ValidateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result := ValidateCardResponse{
		Card:   card.ValidateCard(req.Card),
		Fields: map[string]card.FieldResult{},
	}
	if req.Email != nil {
		result.Fields["email"] = card.ValidateEmail(*req.Email)
	}
	if req.Phone != nil {
		result.Fields["phone"] = card.ValidatePhone(*req.Phone)
	}
	if req.Postcode != nil {
		result.Fields["postcode"] = card.ValidateAustralianPostcode(*req.Postcode)
	}
	if req.Amount != nil {
		result.Fields["amount"] = card.ValidateAmount(*req.Amount)
	}

	result.Valid = result.Card.Valid
	for _, f := range result.Fields {
		result.Valid = result.Valid && f.Valid
	}
	if len(result.Fields) == 0 {
		result.Fields = nil
	}

	response.Success(w, http.StatusOK, "Card validated", result)
}

// FormatCard formats each submitted field for display.
func (h *CardHandler) FormatCard(w http.ResponseWriter, r *http.Request) {
	var req FormatCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	result := FormatCardResponse{
		CardNumber: card.FormatCardNumber(req.CardNumber),
		Masked:     card.MaskCardNumber(req.CardNumber),
		Brand:      card.ClassifyBrand(card.Digits(req.CardNumber)),
		Expiry:     card.FormatExpiry(req.Expiry),
		CVV:        card.FormatCVV(req.CVV),
	}
	if req.Amount != nil && req.Currency != "" {
		result.Amount = card.FormatCurrency(*req.Amount, req.Currency)
	}

	response.Success(w, http.StatusOK, "Card formatted", result)
}
