package security

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	limiter := BodyLimit{Max: 32}
	var captured string
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/price-preview", strings.NewReader(`{"couponCode":"A"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `{"couponCode":"A"}`, captured)
}

func TestBodyLimitRejectsOversized(t *testing.T) {
	limiter := BodyLimit{Max: 5}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/price-preview", strings.NewReader("excessive"))
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	limiter.Middleware(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), `"PAYLOAD_TOO_LARGE"`)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestBodyLimitRejectsContentLength(t *testing.T) {
	limiter := BodyLimit{Max: 5}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/price-preview", strings.NewReader("excessive"))
	rr := httptest.NewRecorder()
	limiter.Middleware(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBodyLimitDisabled(t *testing.T) {
	limiter := BodyLimit{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("anything goes"))
	rr := httptest.NewRecorder()
	limiter.Middleware(okHandler()).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
