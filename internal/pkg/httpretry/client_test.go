package httpretry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryClient(maxRetries int) *RetryClient {
	return &RetryClient{
		client:     http.DefaultClient,
		maxRetries: maxRetries,
		baseDelay:  time.Millisecond,
		maxDelay:   5 * time.Millisecond,
	}
}

func TestDoRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("campaign,spend\n"))
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := fastRetryClient(3).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := fastRetryClient(3).Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("campaign,spend\nSummer Sale,100\n"))
	}))
	defer srv.Close()

	data, err := fastRetryClient(1).Fetch(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Summer Sale")
}

func TestFetchSizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("campaign,spend\nSummer Sale,100\n"))
	}))
	defer srv.Close()

	_, err := fastRetryClient(1).Fetch(context.Background(), srv.URL, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := fastRetryClient(1).Fetch(context.Background(), srv.URL, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestRetryAfterDelay(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Equal(t, time.Duration(0), retryAfterDelay(resp))

	resp.Header.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, retryAfterDelay(resp))

	// HTTP-date and garbage forms are ignored
	resp.Header.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")
	assert.Equal(t, time.Duration(0), retryAfterDelay(resp))
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests))
	assert.True(t, isRetryableStatus(http.StatusBadGateway))
	assert.False(t, isRetryableStatus(http.StatusOK))
	assert.False(t, isRetryableStatus(http.StatusBadRequest))
	assert.False(t, isRetryableStatus(http.StatusUnauthorized))
}
