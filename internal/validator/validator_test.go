package validator

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/go-playground/validator/v10"
)

type sample struct {
	Type  string `validate:"transaction_type"`
	Month int    `validate:"month"`
	Color string `validate:"omitempty,hex_color"`
}

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	assert.NoError(t, v.RegisterValidation("hex_color", validateHexColor))
	assert.NoError(t, v.RegisterValidation("transaction_type", validateTransactionType))
	assert.NoError(t, v.RegisterValidation("month", validateMonth))
	return v
}

func TestCustomTags(t *testing.T) {
	v := newValidate(t)

	tests := []struct {
		name  string
		input sample
		ok    bool
	}{
		{"valid_expense", sample{Type: "expense", Month: 1}, true},
		{"valid_income_with_color", sample{Type: "income", Month: 12, Color: "#a1B2c3"}, true},
		{"transfer_rejected", sample{Type: "transfer", Month: 5}, false},
		{"month_zero", sample{Type: "income", Month: 0}, false},
		{"month_thirteen", sample{Type: "income", Month: 13}, false},
		{"bad_color", sample{Type: "income", Month: 3, Color: "red"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.input)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
