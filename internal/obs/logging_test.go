package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "debug")
	handler := RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("{}"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/price-preview", nil)
	req.Header.Set("User-Agent", "checkout-web")
	req = req.WithContext(WithRoutePattern(req.Context(), "/api/v1/price-preview"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["message"] != "http_request" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["route"] != "/api/v1/price-preview" || entry["status"] != float64(201) || entry["bytes"] != float64(2) {
		t.Fatalf("unexpected request fields %v", entry)
	}
	if entry["user_agent"] != "checkout-web" {
		t.Fatalf("expected user agent, got %v", entry["user_agent"])
	}
}

func TestRequestLoggerServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger{Logger: newLogger(&buf, "json", "info")}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/quotes/x", nil))
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error level, got %s", buf.String())
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %s", buf.String())
	}
}

func TestTruncateSQL(t *testing.T) {
	if got := truncateSQL("SELECT 1\n  FROM courses"); got != "SELECT 1 FROM courses" {
		t.Fatalf("unexpected %q", got)
	}
	long := strings.Repeat("x", 400)
	if got := truncateSQL(long); len(got) != 303 {
		t.Fatalf("expected truncated statement, got %d chars", len(got))
	}
}
