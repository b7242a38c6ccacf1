package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(minRequests int, openFor time.Duration) (*Breaker, *clock, *prometheus.CounterVec) {
	clk := &clock{t: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "breaker_transition_total"}, []string{"target", "from", "to"})
	b := NewBreaker(minRequests, 0.5, openFor).WithTarget("course_cache").WithTransitions(transitions)
	b.now = clk.now
	return b, clk, transitions
}

func TestBreakerTransitions(t *testing.T) {
	breaker, clk, transitions := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, Open, breaker.State())

	clk.advance(time.Minute)
	require.True(t, breaker.Allow(ctx), "breaker should move to half-open after cool off")
	require.False(t, breaker.Allow(ctx), "only one probe is allowed while half-open")
	breaker.Report(ctx, true)
	require.Equal(t, Closed, breaker.State())
	require.True(t, breaker.Allow(ctx))

	require.Equal(t, float64(1), testutil.ToFloat64(transitions.WithLabelValues("course_cache", "closed", "open")))
	require.Equal(t, float64(1), testutil.ToFloat64(transitions.WithLabelValues("course_cache", "open", "half_open")))
	require.Equal(t, float64(1), testutil.ToFloat64(transitions.WithLabelValues("course_cache", "half_open", "closed")))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	breaker, clk, _ := newTestBreaker(1, time.Second)
	ctx := context.Background()

	breaker.Report(ctx, false)
	require.Equal(t, Open, breaker.State())
	clk.advance(time.Second)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, Open, breaker.State())
	require.False(t, breaker.Allow(ctx))
}

func TestBreakerStaysClosedBelowRatio(t *testing.T) {
	breaker, _, _ := newTestBreaker(4, time.Second)
	ctx := context.Background()
	for _, ok := range []bool{true, true, false, true, true, false, true, true} {
		require.True(t, breaker.Allow(ctx))
		breaker.Report(ctx, ok)
	}
	require.Equal(t, Closed, breaker.State())
}

func TestNilBreakerAllows(t *testing.T) {
	var b *Breaker
	require.True(t, b.Allow(context.Background()))
	b.Report(context.Background(), false)
}
