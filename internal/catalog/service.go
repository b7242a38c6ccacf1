package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-lms/internal/coupon"
	"github.com/noah-isme/backend-lms/internal/pricing"
	"github.com/noah-isme/backend-lms/internal/resilience"
)

type source interface {
	CoursePrice(ctx context.Context, courseID uuid.UUID) (pricing.CoursePriceSnapshot, error)
	CouponByCode(ctx context.Context, code string) (coupon.Rule, error)
}

// Service resolves course snapshots and coupons, reading through the snapshot cache.
type Service struct {
	source  source
	cache   *Cache
	breaker *resilience.Breaker
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Source  source
	Cache   *Cache
	// Breaker skips the cache while Redis keeps failing. Optional.
	Breaker *resilience.Breaker
	Logger  zerolog.Logger
}

// NewService validates configuration and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Source == nil {
		return nil, errors.New("catalog source is required")
	}
	return &Service{source: cfg.Source, cache: cfg.Cache, breaker: cfg.Breaker, logger: cfg.Logger}, nil
}

// CourseSnapshot returns the price snapshot of a course.
// Cache failures fall back to the database; they never produce a price on their own.
func (s *Service) CourseSnapshot(ctx context.Context, courseID uuid.UUID) (pricing.CoursePriceSnapshot, error) {
	useCache := s.breaker.Allow(ctx)
	if useCache {
		snap, ok, err := s.cache.GetSnapshot(ctx, courseID)
		s.breaker.Report(ctx, err == nil)
		if err != nil {
			s.logger.Warn().Err(err).Str("course_id", courseID.String()).Msg("course price cache read")
			useCache = false
		}
		if ok {
			return snap, nil
		}
	}
	snap, err := s.source.CoursePrice(ctx, courseID)
	if err != nil {
		return pricing.CoursePriceSnapshot{}, err
	}
	if useCache {
		if err := s.cache.SetSnapshot(ctx, courseID, snap); err != nil {
			s.logger.Warn().Err(err).Str("course_id", courseID.String()).Msg("course price cache write")
		}
	}
	return snap, nil
}

// Coupon returns the stored coupon rule. Coupons are not cached so usage counts stay fresh.
func (s *Service) Coupon(ctx context.Context, code string) (coupon.Rule, error) {
	return s.source.CouponByCode(ctx, code)
}

// InvalidateCourse drops a cached snapshot.
func (s *Service) InvalidateCourse(ctx context.Context, courseID uuid.UUID) error {
	return s.cache.Invalidate(ctx, courseID)
}
