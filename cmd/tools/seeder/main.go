package main

import (
	"context"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-lms/internal/obs"
)

type seedCourse struct {
	Slug        string
	Title       string
	ListPrice   int64
	SalePrice   *int64
	SaleFor     time.Duration
	Currency    string
	TaxIncluded bool
}

type seedCoupon struct {
	Code       string
	Kind       string
	Percent    *int64
	Amount     *int64
	Currency   string
	ValidFor   time.Duration
	UsageLimit *int32
}

func ptr[T any](v T) *T { return &v }

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info")

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	now := time.Now().UTC()
	courses := []seedCourse{
		{Slug: "go-for-backend", Title: "Go for Backend Engineers", ListPrice: 100_000, SalePrice: ptr[int64](80_000), SaleFor: 14 * 24 * time.Hour, Currency: "KRW", TaxIncluded: true},
		{Slug: "postgres-in-depth", Title: "PostgreSQL in Depth", ListPrice: 120_000, Currency: "KRW", TaxIncluded: true},
		{Slug: "distributed-systems", Title: "Distributed Systems Fundamentals", ListPrice: 90_000, Currency: "KRW"},
		{Slug: "intro-kubernetes", Title: "Intro to Kubernetes", ListPrice: 4_900, SalePrice: ptr[int64](2_900), SaleFor: 72 * time.Hour, Currency: "USD"},
	}
	coupons := []seedCoupon{
		{Code: "WELCOME10", Kind: "percent", Percent: ptr[int64](10), Currency: "KRW", ValidFor: 90 * 24 * time.Hour},
		{Code: "QUARTER", Kind: "percent", Percent: ptr[int64](25), Currency: "KRW", UsageLimit: ptr[int32](100)},
		{Code: "FLAT5000", Kind: "fixed", Amount: ptr[int64](5_000), Currency: "KRW", ValidFor: 30 * 24 * time.Hour},
		{Code: "USD5OFF", Kind: "fixed", Amount: ptr[int64](500), Currency: "USD"},
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := seedCourses(ctx, tx, now, courses, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed courses")
	}
	if err := seedCoupons(ctx, tx, now, coupons, logger); err != nil {
		logger.Fatal().Err(err).Msg("seed coupons")
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Fatal().Err(err).Msg("commit seed")
	}
	logger.Info().Int("courses", len(courses)).Int("coupons", len(coupons)).Msg("seeding completed")
}

func seedCourses(ctx context.Context, tx pgx.Tx, now time.Time, courses []seedCourse, logger zerolog.Logger) error {
	for _, c := range courses {
		var saleEndsAt *time.Time
		if c.SalePrice != nil {
			ends := now.Add(c.SaleFor)
			saleEndsAt = &ends
		}
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO courses (slug, title, list_price, sale_price, sale_ends_at, currency_code, tax_included, published)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
			ON CONFLICT (slug) DO UPDATE SET
				title = EXCLUDED.title,
				list_price = EXCLUDED.list_price,
				sale_price = EXCLUDED.sale_price,
				sale_ends_at = EXCLUDED.sale_ends_at,
				currency_code = EXCLUDED.currency_code,
				tax_included = EXCLUDED.tax_included,
				updated_at = now()
			RETURNING id::text`,
			c.Slug, c.Title, c.ListPrice, c.SalePrice, saleEndsAt, c.Currency, c.TaxIncluded,
		).Scan(&id)
		if err != nil {
			return err
		}
		logger.Info().Str("slug", c.Slug).Str("id", id).Msg("course seeded")
	}
	return nil
}

func seedCoupons(ctx context.Context, tx pgx.Tx, now time.Time, coupons []seedCoupon, logger zerolog.Logger) error {
	batch := &pgx.Batch{}
	for _, c := range coupons {
		var validTo *time.Time
		if c.ValidFor > 0 {
			ends := now.Add(c.ValidFor)
			validTo = &ends
		}
		batch.Queue(`
			INSERT INTO coupons (code, kind, percent, amount, currency_code, valid_from, valid_to, usage_limit, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
			ON CONFLICT (code) DO UPDATE SET
				kind = EXCLUDED.kind,
				percent = EXCLUDED.percent,
				amount = EXCLUDED.amount,
				currency_code = EXCLUDED.currency_code,
				valid_from = EXCLUDED.valid_from,
				valid_to = EXCLUDED.valid_to,
				usage_limit = EXCLUDED.usage_limit,
				active = TRUE`,
			c.Code, c.Kind, c.Percent, c.Amount, c.Currency, now, validTo, c.UsageLimit,
		)
	}
	results := tx.SendBatch(ctx, batch)
	for _, c := range coupons {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
		logger.Info().Str("code", c.Code).Msg("coupon seeded")
	}
	return results.Close()
}
