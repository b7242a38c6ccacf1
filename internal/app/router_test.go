package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-lms/internal/config"
)

var publishedCourse = uuid.MustParse("6f1d7c2a-0c4e-4f5b-8d4f-1b2a3c4d5e6f")

type courseRow struct{ err error }

func (r courseRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = 100_000
	*dest[1].(*pgtype.Int8) = pgtype.Int8{}
	*dest[2].(*pgtype.Timestamptz) = pgtype.Timestamptz{}
	*dest[3].(*string) = "KRW"
	*dest[4].(*bool) = false
	return nil
}

type fakeDB struct{}

func (fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if strings.Contains(sql, "FROM courses") && args[0] == publishedCourse {
		return courseRow{}
	}
	return courseRow{err: pgx.ErrNoRows}
}

func (fakeDB) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		CurrencyCode:     "KRW",
		TaxRates:         map[string]decimal.Decimal{"KR": decimal.NewFromInt(10)},
		QuoteTTL:         15 * time.Minute,
		CourseCacheTTL:   time.Minute,
		PreviewRateLimit: "3-M",
		BodyLimitBytes:   1 << 10,
		MetricsNamespace: "lms_test",
		MetricsEnabled:   true,
		SecurityHeaders:  true,
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router, err := NewRouter(testConfig(), Dependencies{
		DB:              fakeDB{},
		Redis:           client,
		LimiterStore:    memory.NewStore(),
		MetricsRegistry: prometheus.NewRegistry(),
		Logger:          zerolog.Nop(),
	})
	require.NoError(t, err)
	return router
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req.RemoteAddr = "198.51.100.4:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterServesCoursePreview(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(router, http.MethodPost, "/api/v1/courses/"+publishedCourse.String()+"/price-preview", `{"countryCode":"KR"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))

	var body struct {
		Data struct {
			ID     string `json:"id"`
			Result struct {
				FinalAmountMinorUnits int64 `json:"finalAmountMinorUnits"`
			} `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(110_000), body.Data.Result.FinalAmountMinorUnits)

	rec = serve(router, http.MethodGet, "/api/v1/quotes/"+body.Data.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRouterRateLimitsPreviews(t *testing.T) {
	router := newTestRouter(t)
	path := "/api/v1/courses/" + uuid.NewString() + "/price-preview"
	for i := 0; i < 3; i++ {
		rec := serve(router, http.MethodPost, path, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := serve(router, http.MethodPost, path, "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotContains(t, rec.Body.String(), "finalAmountMinorUnits")
}

func TestRouterRejectsOversizedBody(t *testing.T) {
	router := newTestRouter(t)
	payload := `{"couponCode":"` + strings.Repeat("A", 2<<10) + `"}`
	rec := serve(router, http.MethodPost, "/api/v1/price-preview", payload)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)

	_ = serve(router, http.MethodPost, "/api/v1/courses/"+publishedCourse.String()+"/price-preview", "")
	rec = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `lms_test_pricing_quotes_total{result="ok"} 1`)
	require.Contains(t, rec.Body.String(), "lms_test_http_requests_total")
}

func TestNewRouterRequiresClients(t *testing.T) {
	_, err := NewRouter(testConfig(), Dependencies{})
	require.Error(t, err)
	_, err = NewRouter(nil, Dependencies{})
	require.Error(t, err)
}
