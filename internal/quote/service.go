package quote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lms/internal/coupon"
	"github.com/noah-isme/backend-lms/internal/obs"
	"github.com/noah-isme/backend-lms/internal/pricing"
)

// ErrUnsupportedCountry is returned when no tax rate is configured for the requested country.
var ErrUnsupportedCountry = errors.New("no tax rate configured for country")

type catalogReader interface {
	CourseSnapshot(ctx context.Context, courseID uuid.UUID) (pricing.CoursePriceSnapshot, error)
	Coupon(ctx context.Context, code string) (coupon.Rule, error)
}

// TaxTable resolves a country's tax rate in percent.
type TaxTable interface {
	TaxRate(country string) (decimal.Decimal, bool)
}

// Display carries pre-formatted amounts for the checkout screen.
type Display struct {
	Original  string `json:"original"`
	Effective string `json:"effective"`
	Discount  string `json:"discount"`
	Tax       string `json:"tax"`
	Final     string `json:"final"`
}

// Quote is a computed price preview.
type Quote struct {
	ID              string         `json:"id,omitempty"`
	CourseID        string         `json:"courseId,omitempty"`
	Result          pricing.Result `json:"result"`
	Display         Display        `json:"display"`
	DiscountPercent int64          `json:"discountPercent"`
	EvaluatedAt     time.Time      `json:"evaluatedAt"`
	ExpiresAt       *time.Time     `json:"expiresAt,omitempty"`
}

// PreviewRequest identifies the course and optional adjustments of a preview.
type PreviewRequest struct {
	CourseID    uuid.UUID
	CouponCode  string
	CountryCode string
}

// SnapshotPreview prices caller-supplied records, optionally at an explicit instant.
type SnapshotPreview struct {
	Course pricing.CoursePriceSnapshot
	Coupon *pricing.Coupon
	Tax    *pricing.TaxInfo
	At     *time.Time
}

// Service builds price previews from catalog records.
type Service struct {
	Catalog        catalogReader
	Taxes          TaxTable
	Store          *Store
	TTL            time.Duration
	DefaultCountry string
	Now            func() time.Time
	Metrics        *obs.QuoteMetrics
}

// Preview prices a stored course and issues a quote that checkout can re-read until it expires.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (Quote, error) {
	q, err := s.preview(ctx, req)
	s.Metrics.Observe(errorCode(err))
	return q, err
}

func (s *Service) preview(ctx context.Context, req PreviewRequest) (Quote, error) {
	if s == nil || s.Catalog == nil {
		return Quote{}, errors.New("quote service not configured")
	}
	snap, err := s.Catalog.CourseSnapshot(ctx, req.CourseID)
	if err != nil {
		return Quote{}, err
	}
	now := s.now()

	expires := now.Add(s.TTL)
	if snap.SaleActive(now) && snap.SaleEndsAt.Before(expires) {
		expires = *snap.SaleEndsAt
	}

	var applied *pricing.Coupon
	if code := coupon.NormalizeCode(req.CouponCode); code != "" {
		rule, err := s.Catalog.Coupon(ctx, code)
		if err != nil {
			return Quote{}, err
		}
		if err := rule.Validate(now); err != nil {
			return Quote{}, err
		}
		if rule.ValidTo != nil && rule.ValidTo.Before(expires) {
			expires = *rule.ValidTo
		}
		c, err := rule.PricingCoupon()
		if err != nil {
			return Quote{}, err
		}
		applied = &c
	}

	tax, err := s.taxFor(req.CountryCode)
	if err != nil {
		return Quote{}, err
	}

	res, err := pricing.ComputeEffectivePriceAt(now, snap, applied, tax)
	if err != nil {
		return Quote{}, err
	}
	q, err := newQuote(res, now)
	if err != nil {
		return Quote{}, err
	}
	q.ID = uuid.NewString()
	q.CourseID = req.CourseID.String()
	q.ExpiresAt = &expires
	// a quote never outlives the sale or coupon window it was priced under
	if err := s.Store.Save(ctx, q, expires.Sub(now)); err != nil {
		return Quote{}, fmt.Errorf("save quote: %w", err)
	}
	return q, nil
}

// PreviewSnapshot prices caller-supplied records without storing a quote.
func (s *Service) PreviewSnapshot(_ context.Context, in SnapshotPreview) (Quote, error) {
	at := s.now()
	if in.At != nil {
		at = *in.At
	}
	res, err := pricing.ComputeEffectivePriceAt(at, in.Course, in.Coupon, in.Tax)
	s.Metrics.Observe(errorCode(err))
	if err != nil {
		return Quote{}, err
	}
	return newQuote(res, at)
}

// Get returns a previously issued quote.
func (s *Service) Get(ctx context.Context, id string) (Quote, error) {
	return s.Store.Load(ctx, id)
}

func (s *Service) taxFor(country string) (*pricing.TaxInfo, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = s.DefaultCountry
	}
	if country == "" {
		return nil, nil
	}
	if s.Taxes == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCountry, country)
	}
	rate, ok := s.Taxes.TaxRate(country)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCountry, country)
	}
	return &pricing.TaxInfo{RatePercent: rate, CountryCode: country}, nil
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func newQuote(res pricing.Result, at time.Time) (Quote, error) {
	pct, err := pricing.DiscountPercentOf(res.OriginalPriceMinorUnits, res.EffectivePriceMinorUnits)
	if err != nil {
		return Quote{}, err
	}
	cur := res.CurrencyCode
	return Quote{
		Result: res,
		Display: Display{
			Original:  pricing.FormatMinorUnits(res.OriginalPriceMinorUnits, cur),
			Effective: pricing.FormatMinorUnits(res.EffectivePriceMinorUnits, cur),
			Discount:  pricing.FormatMinorUnits(res.DiscountAmountMinorUnits, cur),
			Tax:       pricing.FormatMinorUnits(res.TaxAmountMinorUnits, cur),
			Final:     pricing.FormatMinorUnits(res.FinalAmountMinorUnits, cur),
		},
		DiscountPercent: pct,
		EvaluatedAt:     at.UTC(),
	}, nil
}
