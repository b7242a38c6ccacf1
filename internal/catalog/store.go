package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-lms/internal/coupon"
	"github.com/noah-isme/backend-lms/internal/pricing"
)

var (
	// ErrCourseNotFound is returned when no published course matches the identifier.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCouponNotFound is returned when no coupon matches the code.
	ErrCouponNotFound = errors.New("coupon not found")
)

// RowQuerier is the subset of pgx used by the store. *pgxpool.Pool satisfies it.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads price snapshots and coupons from Postgres.
type Store struct {
	DB RowQuerier
}

const coursePriceSQL = `SELECT list_price, sale_price, sale_ends_at, currency_code, tax_included
FROM courses
WHERE id = $1 AND published`

const couponByCodeSQL = `SELECT code, kind, percent, amount, currency_code, valid_from, valid_to, usage_limit, used_count, active
FROM coupons
WHERE code = $1`

// CoursePrice loads the price snapshot of a published course.
func (s Store) CoursePrice(ctx context.Context, courseID uuid.UUID) (pricing.CoursePriceSnapshot, error) {
	if s.DB == nil {
		return pricing.CoursePriceSnapshot{}, errors.New("catalog store not configured")
	}
	var (
		list       int64
		sale       pgtype.Int8
		saleEndsAt pgtype.Timestamptz
		currency   string
		included   bool
	)
	err := s.DB.QueryRow(ctx, coursePriceSQL, courseID).Scan(&list, &sale, &saleEndsAt, &currency, &included)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.CoursePriceSnapshot{}, ErrCourseNotFound
		}
		return pricing.CoursePriceSnapshot{}, fmt.Errorf("query course price: %w", err)
	}
	snap := pricing.CoursePriceSnapshot{
		ListPriceMinorUnits: list,
		CurrencyCode:        strings.ToUpper(strings.TrimSpace(currency)),
		TaxIncluded:         included,
	}
	if sale.Valid {
		v := sale.Int64
		snap.SalePriceMinorUnits = &v
	}
	if saleEndsAt.Valid {
		v := saleEndsAt.Time
		snap.SaleEndsAt = &v
	}
	return snap, nil
}

// CouponByCode loads a coupon rule by its normalised code.
func (s Store) CouponByCode(ctx context.Context, code string) (coupon.Rule, error) {
	if s.DB == nil {
		return coupon.Rule{}, errors.New("catalog store not configured")
	}
	var (
		rule       coupon.Rule
		pct        pgtype.Int8
		amount     pgtype.Int8
		validFrom  pgtype.Timestamptz
		validTo    pgtype.Timestamptz
		usageLimit pgtype.Int4
	)
	err := s.DB.QueryRow(ctx, couponByCodeSQL, coupon.NormalizeCode(code)).Scan(
		&rule.Code, &rule.Kind, &pct, &amount, &rule.CurrencyCode,
		&validFrom, &validTo, &usageLimit, &rule.UsedCount, &rule.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Rule{}, ErrCouponNotFound
		}
		return coupon.Rule{}, fmt.Errorf("query coupon: %w", err)
	}
	if pct.Valid {
		v := pct.Int64
		rule.Percent = &v
	}
	if amount.Valid {
		v := amount.Int64
		rule.Amount = &v
	}
	if validFrom.Valid {
		v := validFrom.Time
		rule.ValidFrom = &v
	}
	if validTo.Valid {
		v := validTo.Time
		rule.ValidTo = &v
	}
	if usageLimit.Valid {
		v := usageLimit.Int32
		rule.UsageLimit = &v
	}
	return rule, nil
}
