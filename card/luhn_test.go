package card

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidLuhn(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"visa sandbox card", "4005550000000001", true},
		{"visa 13 digits", "4222222222222", true},
		{"amex", "378282246310005", true},
		{"diners", "30123456789019", true},
		{"spaced input", "4005 5500 0000 0001", true},
		{"dashed input", "4005-5500-0000-0001", true},
		{"wrong check digit", "4005550000000002", false},
		{"sequential digits", "1234567890123456", false},
		{"single zero", "0", true},
		{"empty", "", false},
		{"only separators", " - - ", false},
		{"letters only", "abcd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLuhn(tt.input); got != tt.want {
				t.Errorf("IsValidLuhn(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// referenceLuhn reverses the digits first and doubles the odd indexes.
func referenceLuhn(s string) bool {
	reversed := make([]int, len(s))
	for i := range s {
		reversed[len(s)-1-i] = int(s[i] - '0')
	}

	sum := 0
	for i, d := range reversed {
		if i%2 == 1 {
			d *= 2
			sum += d/10 + d%10
			continue
		}
		sum += d
	}
	return sum%10 == 0
}

func TestIsValidLuhn_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		length := 13 + rng.Intn(7)
		b := make([]byte, length)
		for j := range b {
			b[j] = byte('0' + rng.Intn(10))
		}
		number := string(b)

		assert.Equal(t, referenceLuhn(number), IsValidLuhn(number), "number %s", number)
	}
}

func TestDigits(t *testing.T) {
	assert.Equal(t, "4005550000000001", Digits("4005 5500-0000/0001"))
	assert.Equal(t, "", Digits("no digits"))
	assert.Equal(t, "1225", Digits("12/25"))
}

func BenchmarkIsValidLuhn(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = IsValidLuhn("4005 5500 0000 0001")
	}
}
