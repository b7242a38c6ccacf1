package pricing

import (
	"errors"
	"fmt"
)

var (
	// ErrCurrencyMismatch is returned when a coupon is denominated in another currency than the course.
	ErrCurrencyMismatch = errors.New("coupon currency does not match course currency")
	// ErrInvalidPercent indicates a percent coupon outside the 0-100 range.
	ErrInvalidPercent = errors.New("coupon percent out of range")
	// ErrInvalidDiscountSpec indicates the coupon fields do not match its discount type.
	ErrInvalidDiscountSpec = errors.New("coupon discount spec inconsistent")
	// ErrNegativeAmount is returned when any minor-unit amount is below zero.
	ErrNegativeAmount = errors.New("negative amount")
	// ErrInvalidTaxRate indicates a negative tax rate.
	ErrInvalidTaxRate = errors.New("tax rate must not be negative")
	// ErrAmountOverflow is returned when a derived amount does not fit in 64-bit minor units.
	ErrAmountOverflow = errors.New("amount out of range")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrCurrencyMismatch, "CURRENCY_MISMATCH"},
	{ErrInvalidPercent, "INVALID_PERCENT"},
	{ErrInvalidDiscountSpec, "INVALID_DISCOUNT_SPEC"},
	{ErrNegativeAmount, "NEGATIVE_AMOUNT"},
	{ErrInvalidTaxRate, "INVALID_TAX_RATE"},
	{ErrAmountOverflow, "AMOUNT_OVERFLOW"},
}

// ErrorCode maps a pricing failure to its stable API code. It returns "" for foreign errors.
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

func validate(course CoursePriceSnapshot, coupon *Coupon, tax *TaxInfo) error {
	if course.ListPriceMinorUnits < 0 {
		return fmt.Errorf("%w: list price %d", ErrNegativeAmount, course.ListPriceMinorUnits)
	}
	if course.SalePriceMinorUnits != nil && *course.SalePriceMinorUnits < 0 {
		return fmt.Errorf("%w: sale price %d", ErrNegativeAmount, *course.SalePriceMinorUnits)
	}
	if coupon != nil {
		if err := validateCoupon(*coupon); err != nil {
			return err
		}
	}
	if tax != nil && tax.RatePercent.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidTaxRate, tax.RatePercent.String())
	}
	return nil
}

func validateCoupon(c Coupon) error {
	switch c.DiscountType {
	case DiscountPercent:
		if c.Percent == nil || c.AmountMinorUnits != nil {
			return fmt.Errorf("%w: percent coupon %q needs percent and no amount", ErrInvalidDiscountSpec, c.Code)
		}
		if *c.Percent < 0 || *c.Percent > 100 {
			return fmt.Errorf("%w: %d", ErrInvalidPercent, *c.Percent)
		}
	case DiscountFixed:
		if c.AmountMinorUnits == nil || c.Percent != nil {
			return fmt.Errorf("%w: fixed coupon %q needs amount and no percent", ErrInvalidDiscountSpec, c.Code)
		}
		if *c.AmountMinorUnits < 0 {
			return fmt.Errorf("%w: coupon amount %d", ErrNegativeAmount, *c.AmountMinorUnits)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrInvalidDiscountSpec, c.DiscountType)
	}
	return nil
}
