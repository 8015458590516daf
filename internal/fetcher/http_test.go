package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RateLimit:  1000,
		Burst:      1000,
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("success"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL+"/retry")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "success", string(data))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestRetryExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RateLimit:  1000,
		Burst:      1000,
	})

	_, err := f.Download(context.Background(), srv.URL+"/fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all retries exhausted")
}

func TestDownload_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Download(context.Background(), srv.URL+"/forbidden")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}

func TestDownload_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Download(ctx, srv.URL+"/data")
	require.Error(t, err)
}

func TestNewHTTPFetcher_Defaults(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	assert.Equal(t, "leadcheck/1.0", f.opts.UserAgent)
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
	assert.Equal(t, 3, f.opts.MaxRetries)
}

func TestLimiterFor_ReusedPerHost(t *testing.T) {
	f := newTestFetcher()
	a := f.limiterFor("https://example.com/a")
	b := f.limiterFor("https://example.com/b")
	c := f.limiterFor("https://other.com/a")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestLimiterFor_InvalidURL(t *testing.T) {
	f := newTestFetcher()
	assert.NotNil(t, f.limiterFor("://invalid-url"))
}

func TestDoWithRetry_429_AdaptiveBackoff(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    10 * time.Second,
		MaxRetries: 3,
		RateLimit:  100,
		Burst:      100,
	})

	body, err := f.Download(context.Background(), srv.URL+"/data")
	require.NoError(t, err)
	defer body.Close()

	data, _ := io.ReadAll(body)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), attempts.Load())

	// Two 429s halve the rate twice, one success raises it 20%:
	// 100 -> 50 -> 25 -> 30.
	lim := f.limiterFor(srv.URL + "/data")
	assert.Less(t, float64(lim.Limit()), 100.0)
}

func TestHTTPTransport_PoolingConfig(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{UserAgent: "test"})
	transport, ok := f.client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 10, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 20, transport.MaxConnsPerHost)
}

func TestAdaptiveLimiter_OnSuccess_IncreasesRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnSuccess()
	assert.InDelta(t, 12.0, float64(lim.Limit()), 0.1)

	lim.OnSuccess()
	assert.InDelta(t, 14.4, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_OnRateLimit_DecreasesRate(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)

	lim.OnRateLimit()
	assert.InDelta(t, 5.0, float64(lim.Limit()), 0.1)

	lim.OnRateLimit()
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_OnSuccess_CapsAt2x(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)
	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_OnRateLimit_FloorAtQuarter(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)
	for range 10 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.1)
}

func TestAdaptiveLimiter_Wait_ContextCancelled(t *testing.T) {
	lim := NewAdaptiveLimiter(0.001, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}
