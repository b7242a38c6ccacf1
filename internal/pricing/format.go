package pricing

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultMinorUnitExponent = 2

var groupPrinter = message.NewPrinter(language.English)

// MinorUnitExponent returns the number of decimal places of a currency's minor unit.
// Codes unknown to the ISO table fall back to two places.
func MinorUnitExponent(code string) int {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return defaultMinorUnitExponent
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// FormatMinorUnits renders an amount for display.
// KRW renders as a grouped whole number with the won sign, e.g. ₩1,234,000.
// Other currencies render as "<CODE> <major units>", e.g. "USD 12.50".
func FormatMinorUnits(amount Money, currencyCode string) string {
	currencyCode = strings.ToUpper(strings.TrimSpace(currencyCode))
	if currencyCode == "KRW" {
		return "₩" + groupPrinter.Sprintf("%d", amount)
	}
	exp := MinorUnitExponent(currencyCode)
	major := decimal.New(amount, int32(-exp))
	return currencyCode + " " + major.StringFixed(int32(exp))
}

// DiscountPercentOf returns the whole-number discount from original to final,
// rounded half away from zero. It returns 0 when original is not positive and
// ErrAmountOverflow when the percentage does not fit in an int64.
func DiscountPercentOf(original, final Money) (int64, error) {
	if original <= 0 {
		return 0, nil
	}
	num := new(big.Int).Sub(big.NewInt(original), big.NewInt(final))
	num.Mul(num, big.NewInt(200))
	den := new(big.Int).Mul(big.NewInt(original), big.NewInt(2))
	neg := num.Sign() < 0
	num.Abs(num)
	// floor((2*|x|*100 + original) / (2*original)) rounds |x|*100/original half up
	num.Add(num, big.NewInt(original))
	num.Quo(num, den)
	if neg {
		num.Neg(num)
	}
	if !num.IsInt64() {
		return 0, fmt.Errorf("%w: discount from %d to %d", ErrAmountOverflow, original, final)
	}
	return num.Int64(), nil
}
