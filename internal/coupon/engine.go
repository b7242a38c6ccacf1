package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/backend-lms/internal/pricing"
)

var (
	// ErrCouponDisabled is returned when the coupon has been switched off by an administrator.
	ErrCouponDisabled = errors.New("coupon disabled")
	// ErrCouponInactive is returned when attempting to use a coupon before its active window.
	ErrCouponInactive = errors.New("coupon not active yet")
	// ErrCouponExpired is returned when the coupon has already expired.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrUsageLimitReached indicates the coupon has exhausted the global usage quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Rule captures a stored coupon together with its redemption constraints.
type Rule struct {
	Code         string     `json:"code"`
	Kind         string     `json:"kind"`
	Percent      *int64     `json:"percent,omitempty"`
	Amount       *int64     `json:"amount,omitempty"`
	CurrencyCode string     `json:"currencyCode"`
	ValidFrom    *time.Time `json:"validFrom,omitempty"`
	ValidTo      *time.Time `json:"validTo,omitempty"`
	UsageLimit   *int32     `json:"usageLimit,omitempty"`
	UsedCount    int32      `json:"usedCount"`
	Active       bool       `json:"active"`
}

// NormalizeCode canonicalises a user supplied coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsIneligible reports whether err is one of the redemption constraint failures.
func IsIneligible(err error) bool {
	return errors.Is(err, ErrCouponDisabled) ||
		errors.Is(err, ErrCouponInactive) ||
		errors.Is(err, ErrCouponExpired) ||
		errors.Is(err, ErrUsageLimitReached)
}

// Validate ensures the rule can be redeemed at the provided instant.
func (r Rule) Validate(now time.Time) error {
	if !r.Active {
		return ErrCouponDisabled
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return ErrCouponInactive
	}
	if r.ValidTo != nil && !now.Before(*r.ValidTo) {
		return ErrCouponExpired
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// PricingCoupon converts the stored rule into the resolver's coupon shape.
func (r Rule) PricingCoupon() (pricing.Coupon, error) {
	c := pricing.Coupon{
		Code:         NormalizeCode(r.Code),
		CurrencyCode: strings.ToUpper(strings.TrimSpace(r.CurrencyCode)),
	}
	switch strings.ToLower(strings.TrimSpace(r.Kind)) {
	case "percent", "percentage":
		c.DiscountType = pricing.DiscountPercent
		c.Percent = r.Percent
	case "fixed", "fixed_amount":
		c.DiscountType = pricing.DiscountFixed
		c.AmountMinorUnits = r.Amount
	default:
		return pricing.Coupon{}, fmt.Errorf("%w: unknown coupon kind %q", pricing.ErrInvalidDiscountSpec, r.Kind)
	}
	return c, nil
}
