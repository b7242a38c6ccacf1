package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestFormatMinorUnits(t *testing.T) {
	cases := []struct {
		amount   Money
		currency string
		want     string
	}{
		{0, "KRW", "₩0"},
		{990, "KRW", "₩990"},
		{1_234_000, "KRW", "₩1,234,000"},
		{1250, "USD", "USD 12.50"},
		{5, "USD", "USD 0.05"},
		{123456, "EUR", "EUR 1234.56"},
		{1000, "JPY", "JPY 1000"},
		{12345, "BHD", "BHD 12.345"},
		{1250, "ZZZ", "ZZZ 12.50"},
		{1_000, "krw", "₩1,000"},
		{1250, " usd ", "USD 12.50"},
	}
	for _, tc := range cases {
		if got := FormatMinorUnits(tc.amount, tc.currency); got != tc.want {
			t.Fatalf("FormatMinorUnits(%d, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}

func TestMinorUnitExponent(t *testing.T) {
	for code, want := range map[string]int{"KRW": 0, "USD": 2, "JPY": 0, "BHD": 3, "nope": 2} {
		if got := MinorUnitExponent(code); got != want {
			t.Fatalf("MinorUnitExponent(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestDiscountPercentOf(t *testing.T) {
	cases := []struct {
		original, final Money
		want            int64
	}{
		{100_000, 60_000, 40},
		{0, 0, 0},
		{-5, 0, 0},
		{3, 2, 33},    // 33.33
		{8, 7, 13},    // 12.5 rounds away from zero
		{8, 9, -13},   // -12.5 rounds away from zero
		{200, 199, 1}, // 0.5
		{5_000, 0, 100},
		{1, math.MaxInt64 / 100, -(math.MaxInt64/100 - 1) * 100},
	}
	for _, tc := range cases {
		got, err := DiscountPercentOf(tc.original, tc.final)
		if err != nil {
			t.Fatalf("DiscountPercentOf(%d, %d) unexpected error: %v", tc.original, tc.final, err)
		}
		if got != tc.want {
			t.Fatalf("DiscountPercentOf(%d, %d) = %d, want %d", tc.original, tc.final, got, tc.want)
		}
	}
}

func TestDiscountPercentOfOutOfRange(t *testing.T) {
	cases := []struct {
		original, final Money
	}{
		{100, math.MinInt64 + 50},
		{1, math.MaxInt64},
		{2, math.MinInt64},
	}
	for _, tc := range cases {
		got, err := DiscountPercentOf(tc.original, tc.final)
		if !errors.Is(err, ErrAmountOverflow) {
			t.Fatalf("DiscountPercentOf(%d, %d) = %d, %v; want ErrAmountOverflow", tc.original, tc.final, got, err)
		}
		if ErrorCode(err) != "AMOUNT_OVERFLOW" {
			t.Fatalf("unexpected code %q", ErrorCode(err))
		}
	}
}
