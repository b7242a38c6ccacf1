package quote

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-lms/internal/catalog"
	"github.com/noah-isme/backend-lms/internal/common"
	"github.com/noah-isme/backend-lms/internal/coupon"
	"github.com/noah-isme/backend-lms/internal/pricing"
)

// errorCode returns the API code for err, "" on success and INTERNAL for unknown failures.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return toAppError(err).Code
}

// toAppError classifies service errors. Every failure maps to a non-2xx response,
// never to a fallback price.
func toAppError(err error) *common.AppError {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if code := pricing.ErrorCode(err); code != "" {
		return common.NewAppError(code, err.Error(), http.StatusUnprocessableEntity, err)
	}
	switch {
	case coupon.IsIneligible(err):
		return common.NewAppError("COUPON_NOT_ELIGIBLE", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrUnsupportedCountry):
		return common.NewAppError("UNSUPPORTED_COUNTRY", err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, catalog.ErrCourseNotFound):
		return common.NewAppError("COURSE_NOT_FOUND", "course not found", http.StatusNotFound, err)
	case errors.Is(err, catalog.ErrCouponNotFound):
		return common.NewAppError("COUPON_NOT_FOUND", "coupon not found", http.StatusNotFound, err)
	case errors.Is(err, ErrQuoteNotFound):
		return common.NewAppError("QUOTE_NOT_FOUND", "quote not found or expired", http.StatusNotFound, err)
	}
	return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
}
