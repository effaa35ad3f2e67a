package card

// sandboxCards are the card numbers the gateway sandbox accepts as test cards.
var sandboxCards = map[string]Brand{
	"4005550000000001": Visa,
	"4005550000000019": Visa,
	"5123456789012346": Mastercard,
	"5313581000123430": Mastercard,
	"345678901234564":  Amex,
	"30123456789019":   Diners,
	"3530111333300000": JCB,
	"6011000000000004": Discover,
}

// IsTestCardNumber reports whether s (separators allowed) is one of the gateway
// sandbox test cards.
func IsTestCardNumber(s string) bool {
	_, found := sandboxCards[Digits(s)]
	return found
}

// TestCardNumbers returns the sandbox test cards.
func TestCardNumbers() []string {
	numbers := make([]string, 0, len(sandboxCards))
	for n := range sandboxCards {
		numbers = append(numbers, n)
	}
	return numbers
}
