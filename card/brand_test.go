package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBrand(t *testing.T) {
	tests := []struct {
		input string
		want  Brand
	}{
		{"", Unknown},
		{"4", Visa},
		{"4005550000000001", Visa},
		{"51", Mastercard},
		{"55", Mastercard},
		{"22", Mastercard},
		{"27", Mastercard},
		{"2", Unknown},
		{"28", Unknown},
		{"34", Amex},
		{"37", Amex},
		{"6011", Discover},
		{"65", Discover},
		{"644", Discover},
		{"649", Discover},
		{"643", Unknown},
		{"62212", Discover},
		{"62290", Discover},
		{"622925", Discover},
		{"62211", Unknown},
		{"300", Diners},
		{"305", Diners},
		{"306", Unknown},
		{"36", Diners},
		{"38", Diners},
		{"35", JCB},
		{"3530111333300000", JCB},
		{"1234", Unknown},
		{"9", Unknown},
		{"4005 5500", Visa},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyBrand(tt.input))
		})
	}
}

func TestClassifyBrand_VisaIgnoresTrailingDigits(t *testing.T) {
	for _, suffix := range []string{"", "0", "99", "123456789012345", "xyz"} {
		assert.Equal(t, Visa, ClassifyBrand("4"+suffix))
	}
}

func TestBrand_Metadata(t *testing.T) {
	assert.Equal(t, 4, Amex.CVVLength())
	assert.Equal(t, 3, Visa.CVVLength())
	assert.Equal(t, 3, Unknown.CVVLength())

	assert.Equal(t, 15, Amex.MaxLength())
	assert.Equal(t, 14, Diners.MaxLength())
	assert.Equal(t, 16, Mastercard.MaxLength())
	assert.Equal(t, 19, Visa.MaxLength())

	assert.Equal(t, []int{13, 16, 19}, Visa.ValidLengths())
	assert.Equal(t, "American Express", Amex.DisplayName())
	assert.Equal(t, "Diners Club", Diners.DisplayName())
	assert.Equal(t, "JCB", JCB.DisplayName())
}
