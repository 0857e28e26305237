package money

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMinor(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr error
	}{
		{"10", 1000, nil},
		{"10.5", 1050, nil},
		{"10.05", 1005, nil},
		{"-3.20", -320, nil},
		{".75", 75, nil},
		{"1.234", 0, ErrTooManyDecimals},
		{"abc", 0, ErrInvalidAmount},
		{"", 0, ErrInvalidAmount},
		{"-", 0, ErrInvalidAmount},
		{"+", 0, ErrInvalidAmount},
		{".", 0, ErrInvalidAmount},
		{"-.", 0, ErrInvalidAmount},
		{"92233720368547758.07", 9223372036854775807, nil},
		{"92233720368547758.08", 0, ErrOverflow},
		{"92233720368547758.99", 0, ErrOverflow},
		{"-92233720368547758.99", 0, ErrOverflow},
		{"99999999999999999999", 0, ErrInvalidAmount},
	}
	for _, tt := range tests {
		got, err := ParseMinor(tt.input)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseMinor(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMinor(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMinor(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	tests := []struct {
		value int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{1050, "10.50"},
		{-320, "-3.20"},
	}
	for _, tt := range tests {
		if got := FormatMinor(tt.value); got != tt.want {
			t.Errorf("FormatMinor(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestToMinorRoundsToCents(t *testing.T) {
	if got, err := ToMinor(decimal.RequireFromString("1.005")); err != nil || got != 101 {
		t.Errorf("ToMinor(1.005) = %d, %v, want 101", got, err)
	}
	if got, err := ToMinor(decimal.RequireFromString("0.004")); err != nil || got != 0 {
		t.Errorf("ToMinor(0.004) = %d, %v, want 0", got, err)
	}
	if !FromMinor(5000).Equal(decimal.NewFromInt(50)) {
		t.Errorf("FromMinor(5000) = %s, want 50", FromMinor(5000))
	}
}

func TestMulMinorOverflow(t *testing.T) {
	if got, err := MulMinor(500, 10); err != nil || got != 5000 {
		t.Fatalf("MulMinor(500, 10) = %d, %v", got, err)
	}
	if _, err := MulMinor(1<<62, 4); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow error, got %v", err)
	}
}

func TestToMinorOverflow(t *testing.T) {
	tests := []string{
		"184467440737095516.17",
		"92233720368547758.08",
		"-92233720368547758.09",
		"1e30",
	}
	for _, input := range tests {
		if got, err := ToMinor(decimal.RequireFromString(input)); !errors.Is(err, ErrOverflow) {
			t.Errorf("ToMinor(%s) = %d, %v, want ErrOverflow", input, got, err)
		}
		if _, err := Round(decimal.RequireFromString(input)); !errors.Is(err, ErrOverflow) {
			t.Errorf("Round(%s) error = %v, want ErrOverflow", input, err)
		}
	}

	if got, err := ToMinor(decimal.RequireFromString("92233720368547758.07")); err != nil || got != math.MaxInt64 {
		t.Errorf("ToMinor(max) = %d, %v", got, err)
	}
	if got, err := ToMinor(decimal.RequireFromString("-92233720368547758.08")); err != nil || got != math.MinInt64 {
		t.Errorf("ToMinor(min) = %d, %v", got, err)
	}
}
