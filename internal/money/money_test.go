package money

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"dot separator", "12.50", 1250},
		{"comma separator", "12,50", 1250},
		{"integer", "100", 10000},
		{"single fraction digit", "0.5", 50},
		{"surrounding spaces", "  7.01 ", 701},
		{"trailing zeros", "3.100", 310},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty", "", ErrInvalidAmount},
		{"letters", "abc", ErrInvalidAmount},
		{"zero", "0", ErrNotPositive},
		{"negative", "-5", ErrNotPositive},
		{"too precise", "1.005", ErrTooPrecise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAmount(tt.input)
			assert.IsError(t, err, tt.want)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.50", Format(1250))
	assert.Equal(t, "0.07", Format(7))
	assert.Equal(t, "-3.00", Format(-300))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 60.0, Percent(3000, 5000))
	assert.Equal(t, 40.0, Percent(2000, 5000))
	assert.Equal(t, 33.33, Percent(1, 3))
	assert.Equal(t, 66.67, Percent(2, 3))
	assert.Equal(t, 0.0, Percent(10, 0))
	assert.Equal(t, 0.0, Percent(10, -5))
}

func TestSavingsRate(t *testing.T) {
	assert.Equal(t, 50.0, SavingsRate(10000, 5000))
	assert.Equal(t, -20.0, SavingsRate(10000, 12000))
	assert.Equal(t, 0.0, SavingsRate(0, 5000))
}
