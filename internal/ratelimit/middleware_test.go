package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandlerMiddlewareEnforcesLimit(t *testing.T) {
	l, err := New("1-M", memory.NewStore())
	require.NoError(t, err)

	handler := Handler{Limiter: l, Key: func(*http.Request) string { return "static" }}
	counted := handler.Middleware(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/price-preview", nil)
	rr1 := httptest.NewRecorder()
	counted.ServeHTTP(rr1, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, rr1.Code)
	require.Equal(t, "0", rr1.Header().Get("X-RateLimit-Remaining"))

	rr2 := httptest.NewRecorder()
	counted.ServeHTTP(rr2, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, rr2.Code)
	require.Equal(t, "1", rr2.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, rr2.Header().Get("Retry-After"))
	require.Contains(t, rr2.Body.String(), `"RATE_LIMITED"`)
}

func TestHandlerMiddlewareKeysByClientIP(t *testing.T) {
	l, err := New("1-H", memory.NewStore())
	require.NoError(t, err)
	counted := Handler{Limiter: l, Key: ByClientIP}.Middleware(okHandler())

	for _, addr := range []string{"10.0.0.1:1234", "10.0.0.2:1234"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		counted.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, addr)
	}
}

type failingStore struct{ limiter.Store }

func (failingStore) Get(context.Context, string, limiter.Rate) (limiter.Context, error) {
	return limiter.Context{}, errors.New("store down")
}

func TestHandlerMiddlewareOnError(t *testing.T) {
	l, err := New("1-S", failingStore{})
	require.NoError(t, err)

	called := false
	handler := Handler{
		Limiter: l,
		Key:     func(*http.Request) string { return "err" },
		OnError: func(error) { called = true },
	}
	rr := httptest.NewRecorder()
	handler.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, called)
}

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New("lots", memory.NewStore())
	require.Error(t, err)
}

func TestRedisStoreCountsAcrossRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewRedisStore(client)
	require.NoError(t, err)
	l, err := New("2-M", store)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		lctx, err := l.Get(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.False(t, lctx.Reached)
	}
	lctx, err := l.Get(ctx, "203.0.113.7")
	require.NoError(t, err)
	require.True(t, lctx.Reached)
	require.Greater(t, lctx.Reset, time.Now().Unix()-1)
}
