package pricing

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// DiscountType identifies how a coupon reduces the base price.
type DiscountType string

const (
	// DiscountPercent reduces the base price by a whole percentage.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed reduces the base price by a fixed amount in minor units.
	DiscountFixed DiscountType = "fixed"
)

// CoursePriceSnapshot is the immutable price record of a course at evaluation time.
type CoursePriceSnapshot struct {
	ListPriceMinorUnits Money      `json:"listPriceMinorUnits"`
	SalePriceMinorUnits *Money     `json:"salePriceMinorUnits,omitempty"`
	SaleEndsAt          *time.Time `json:"saleEndsAt,omitempty"`
	CurrencyCode        string     `json:"currencyCode"`
	TaxIncluded         bool       `json:"taxIncluded"`
}

// SaleActive reports whether the sale price applies at the given instant.
// A sale ending exactly at the instant is already over.
func (c CoursePriceSnapshot) SaleActive(at time.Time) bool {
	return c.SaleEndsAt != nil && c.SaleEndsAt.After(at) && c.SalePriceMinorUnits != nil
}

// Coupon is a single discount applied on top of the base price.
type Coupon struct {
	Code             string       `json:"code"`
	DiscountType     DiscountType `json:"discountType"`
	Percent          *int64       `json:"percent,omitempty"`
	AmountMinorUnits *Money       `json:"amountMinorUnits,omitempty"`
	CurrencyCode     string       `json:"currencyCode"`
}

// TaxInfo carries the tax rate applied to the effective price.
type TaxInfo struct {
	RatePercent decimal.Decimal `json:"ratePercent"`
	CountryCode string          `json:"countryCode,omitempty"`
}

// Breakdown exposes every intermediate amount of a computation.
type Breakdown struct {
	BasePriceMinorUnits      Money `json:"basePriceMinorUnits"`
	SaleDiscountMinorUnits   Money `json:"saleDiscountMinorUnits"`
	CouponDiscountMinorUnits Money `json:"couponDiscountMinorUnits"`
	SubtotalMinorUnits       Money `json:"subtotalMinorUnits"`
	TaxMinorUnits            Money `json:"taxMinorUnits"`
	TotalMinorUnits          Money `json:"totalMinorUnits"`
}

// Result is the itemised outcome of an effective price computation.
type Result struct {
	OriginalPriceMinorUnits  Money     `json:"originalPriceMinorUnits"`
	EffectivePriceMinorUnits Money     `json:"effectivePriceMinorUnits"`
	DiscountAmountMinorUnits Money     `json:"discountAmountMinorUnits"`
	TaxAmountMinorUnits      Money     `json:"taxAmountMinorUnits"`
	FinalAmountMinorUnits    Money     `json:"finalAmountMinorUnits"`
	CurrencyCode             string    `json:"currencyCode"`
	SaleActive               bool      `json:"saleActive"`
	TaxIncluded              bool      `json:"taxIncluded"`
	AppliedCoupon            *Coupon   `json:"appliedCoupon,omitempty"`
	TaxInfo                  *TaxInfo  `json:"taxInfo,omitempty"`
	Breakdown                Breakdown `json:"breakdown"`
}

// Resolver computes effective prices against an injectable clock.
type Resolver struct {
	Now func() time.Time
}

// Compute evaluates the price at the resolver's current instant.
func (r Resolver) Compute(course CoursePriceSnapshot, coupon *Coupon, tax *TaxInfo) (Result, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return ComputeEffectivePriceAt(now(), course, coupon, tax)
}

// ComputeEffectivePrice evaluates the price at the current wall-clock instant.
func ComputeEffectivePrice(course CoursePriceSnapshot, coupon *Coupon, tax *TaxInfo) (Result, error) {
	return ComputeEffectivePriceAt(time.Now(), course, coupon, tax)
}

// ComputeEffectivePriceAt derives the amount owed for a course at instant at.
//
// The order of operations and floor rounding mirror the server-side charge computation,
// so any change here must be made on both sides.
func ComputeEffectivePriceAt(at time.Time, course CoursePriceSnapshot, coupon *Coupon, tax *TaxInfo) (Result, error) {
	if coupon != nil && coupon.CurrencyCode != course.CurrencyCode {
		return Result{}, fmt.Errorf("%w: coupon %q is %s, course is %s",
			ErrCurrencyMismatch, coupon.Code, coupon.CurrencyCode, course.CurrencyCode)
	}
	if err := validate(course, coupon, tax); err != nil {
		return Result{}, err
	}

	saleActive := course.SaleActive(at)
	base := course.ListPriceMinorUnits
	var saleDiscount Money
	if saleActive {
		base = *course.SalePriceMinorUnits
		saleDiscount = max(0, course.ListPriceMinorUnits-base)
	}

	effective := base
	discount := saleDiscount
	var couponDiscount Money
	var applied *Coupon
	if coupon != nil {
		switch coupon.DiscountType {
		case DiscountPercent:
			couponDiscount, _ = mulDivFloor(base, big.NewInt(*coupon.Percent), big.NewInt(100))
		case DiscountFixed:
			couponDiscount = *coupon.AmountMinorUnits
		}
		// The reported discount stays nominal even when the clamp absorbs part of it.
		effective = max(0, base-couponDiscount)
		var ok bool
		if discount, ok = addChecked(saleDiscount, couponDiscount); !ok {
			return Result{}, fmt.Errorf("%w: discount %d + %d", ErrAmountOverflow, saleDiscount, couponDiscount)
		}
		c := *coupon
		applied = &c
	}

	var taxAmount Money
	final := effective
	var appliedTax *TaxInfo
	if tax != nil {
		num, den := ratio(tax.RatePercent)
		if course.TaxIncluded {
			// embedded portion: effective * rate / (100 + rate)
			taxAmount, _ = mulDivFloor(effective, num, new(big.Int).Add(new(big.Int).Mul(big.NewInt(100), den), num))
		} else {
			var ok bool
			taxAmount, ok = mulDivFloor(effective, num, new(big.Int).Mul(big.NewInt(100), den))
			if ok {
				final, ok = addChecked(effective, taxAmount)
			}
			if !ok {
				return Result{}, fmt.Errorf("%w: %d plus %s%% tax", ErrAmountOverflow, effective, tax.RatePercent.String())
			}
		}
		t := *tax
		appliedTax = &t
	}

	return Result{
		OriginalPriceMinorUnits:  course.ListPriceMinorUnits,
		EffectivePriceMinorUnits: effective,
		DiscountAmountMinorUnits: discount,
		TaxAmountMinorUnits:      taxAmount,
		FinalAmountMinorUnits:    final,
		CurrencyCode:             course.CurrencyCode,
		SaleActive:               saleActive,
		TaxIncluded:              course.TaxIncluded,
		AppliedCoupon:            applied,
		TaxInfo:                  appliedTax,
		Breakdown: Breakdown{
			BasePriceMinorUnits:      base,
			SaleDiscountMinorUnits:   saleDiscount,
			CouponDiscountMinorUnits: couponDiscount,
			SubtotalMinorUnits:       effective,
			TaxMinorUnits:            taxAmount,
			TotalMinorUnits:          final,
		},
	}, nil
}

// ratio splits a non-negative decimal into an integer numerator and a power-of-ten denominator.
func ratio(d decimal.Decimal) (*big.Int, *big.Int) {
	num := new(big.Int).Set(d.Coefficient())
	den := big.NewInt(1)
	exp := d.Exponent()
	ten := big.NewInt(10)
	if exp >= 0 {
		num.Mul(num, new(big.Int).Exp(ten, big.NewInt(int64(exp)), nil))
	} else {
		den.Exp(ten, big.NewInt(int64(-exp)), nil)
	}
	return num, den
}

// mulDivFloor returns floor(a * num / den) for non-negative operands.
// ok is false when the quotient does not fit in Money.
func mulDivFloor(a Money, num, den *big.Int) (Money, bool) {
	if den.Sign() == 0 {
		return 0, true
	}
	product := new(big.Int).Mul(big.NewInt(a), num)
	product.Quo(product, den)
	if !product.IsInt64() {
		return 0, false
	}
	return product.Int64(), true
}

// addChecked sums two non-negative amounts, reporting false on overflow.
func addChecked(a, b Money) (Money, bool) {
	if b > math.MaxInt64-a {
		return 0, false
	}
	return a + b, true
}
