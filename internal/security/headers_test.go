package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	middleware := Headers{Enable: true, EnableHSTS: true, HSTSMaxAge: 600, HSTSIncludeSubdomains: true, NoStore: true}
	req := httptest.NewRequest(http.MethodGet, "https://lms.example.com/api/v1/quotes/x", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	middleware.Middleware(okHandler()).ServeHTTP(rr, req)

	headers := rr.Result().Header
	require.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	require.Equal(t, "no-store", headers.Get("Cache-Control"))
	require.Equal(t, "max-age=600; includeSubDomains", headers.Get("Strict-Transport-Security"))
}

func TestHeadersMiddlewareSkipsHSTSWithoutTLS(t *testing.T) {
	middleware := Headers{Enable: true, EnableHSTS: true}
	rr := httptest.NewRecorder()
	middleware.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://lms.example.com", nil))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	require.Empty(t, rr.Header().Get("Cache-Control"))
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	middleware := Headers{Enable: false, EnableHSTS: true, NoStore: true}
	rr := httptest.NewRecorder()
	middleware.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://lms.example.com", nil))
	require.Empty(t, rr.Header().Get("X-Content-Type-Options"))
	require.Empty(t, rr.Header().Get("Cache-Control"))
}
