package quote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-lms/internal/common"
	"github.com/noah-isme/backend-lms/internal/pricing"
)

// Handler exposes price preview endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type coursePreviewRequest struct {
	CouponCode  string `json:"couponCode" validate:"omitempty,max=64"`
	CountryCode string `json:"countryCode" validate:"omitempty,len=2,alpha"`
}

type inlinePreviewRequest struct {
	Course      *inlineCourse `json:"course" validate:"required"`
	Coupon      *inlineCoupon `json:"coupon"`
	Tax         *inlineTax    `json:"tax"`
	EvaluatedAt *time.Time    `json:"evaluatedAt"`
}

type inlineCourse struct {
	ListPriceMinorUnits *int64     `json:"listPriceMinorUnits" validate:"required"`
	SalePriceMinorUnits *int64     `json:"salePriceMinorUnits"`
	SaleEndsAt          *time.Time `json:"saleEndsAt"`
	CurrencyCode        string     `json:"currencyCode" validate:"required,len=3,alpha"`
	TaxIncluded         bool       `json:"taxIncluded"`
}

type inlineCoupon struct {
	Code             string `json:"code" validate:"max=64"`
	DiscountType     string `json:"discountType" validate:"required,oneof=percent fixed"`
	Percent          *int64 `json:"percent"`
	AmountMinorUnits *int64 `json:"amountMinorUnits"`
	CurrencyCode     string `json:"currencyCode" validate:"required,len=3,alpha"`
}

type inlineTax struct {
	RatePercent decimal.Decimal `json:"ratePercent"`
	CountryCode string          `json:"countryCode" validate:"omitempty,len=2,alpha"`
}

// Register mounts the quote routes on r. previewMW wraps only the routes that
// compute prices.
func (h *Handler) Register(r chi.Router, previewMW ...func(http.Handler) http.Handler) {
	r.Group(func(p chi.Router) {
		p.Use(previewMW...)
		p.Post("/courses/{courseID}/price-preview", h.PreviewCourse)
		p.Post("/price-preview", h.PreviewInline)
	})
	r.Get("/quotes/{quoteID}", h.Get)
}

// PreviewCourse prices a catalog course and issues a quote.
func (h *Handler) PreviewCourse(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	courseID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "courseID")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid course id", nil)
		return
	}
	var req coursePreviewRequest
	if err := common.DecodeJSON(r, &req, true); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.Preview(r.Context(), PreviewRequest{
		CourseID:    courseID,
		CouponCode:  req.CouponCode,
		CountryCode: req.CountryCode,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Logger.Debug().Str("quote_id", q.ID).Str("course_id", q.CourseID).
		Int64("final_amount", q.Result.FinalAmountMinorUnits).Msg("quote issued")
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// PreviewInline prices caller-supplied records for back-office previews.
func (h *Handler) PreviewInline(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req inlinePreviewRequest
	if err := common.DecodeJSON(r, &req, false); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Svc.PreviewSnapshot(r.Context(), req.toSnapshotPreview())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

// Get returns an issued quote.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "quoteID")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid quote id", nil)
		return
	}
	q, err := h.Svc.Get(r.Context(), id.String())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": q})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	evt := h.Logger.Info()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		evt = h.Logger.Error()
	}
	evt.Err(err).Str("code", appErr.Code).Str("path", r.URL.Path).Msg("price preview rejected")
	common.WriteError(w, appErr)
}

func (h *Handler) validate(v any) error {
	validate := h.Validate
	if validate == nil {
		validate = validator.New()
	}
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Namespace()] = fmt.Sprintf("failed %s", fe.Tag())
	}
	appErr := common.NewAppError("VALIDATION_FAILED", "invalid payload", http.StatusBadRequest, err)
	appErr.Details = fields
	return appErr
}

func (req inlinePreviewRequest) toSnapshotPreview() SnapshotPreview {
	in := SnapshotPreview{
		Course: pricing.CoursePriceSnapshot{
			ListPriceMinorUnits: *req.Course.ListPriceMinorUnits,
			SalePriceMinorUnits: req.Course.SalePriceMinorUnits,
			SaleEndsAt:          req.Course.SaleEndsAt,
			CurrencyCode:        strings.ToUpper(req.Course.CurrencyCode),
			TaxIncluded:         req.Course.TaxIncluded,
		},
		At: req.EvaluatedAt,
	}
	if c := req.Coupon; c != nil {
		in.Coupon = &pricing.Coupon{
			Code:             strings.ToUpper(strings.TrimSpace(c.Code)),
			DiscountType:     pricing.DiscountType(c.DiscountType),
			Percent:          c.Percent,
			AmountMinorUnits: c.AmountMinorUnits,
			CurrencyCode:     strings.ToUpper(c.CurrencyCode),
		}
	}
	if t := req.Tax; t != nil {
		in.Tax = &pricing.TaxInfo{
			RatePercent: t.RatePercent,
			CountryCode: strings.ToUpper(t.CountryCode),
		}
	}
	return in
}
