package httpfetch

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"context"

	"github.com/stretchr/testify/require"
)

func TestFetcher_Fetch_RetriesOnServerErrorThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", `multipart/form-data; boundary=xyz`)
		w.Header().Set("Etag", "7")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	f := New(WithMaxElapsedTime(5 * time.Second))
	body, boundary, etag, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Equal(t, "body", string(body))
	require.Equal(t, "xyz", boundary)
	require.Equal(t, "7", etag)
	require.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(3))
}

func TestFetcher_Fetch_ClientErrorIsPermanentNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(WithMaxElapsedTime(5 * time.Second))
	_, _, _, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls), "a 4xx must not be retried")
}

func TestFetcher_Fetch_AppliesStaticHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := New(WithHeader("Authorization", "Bearer token123"), WithMaxElapsedTime(2*time.Second))
	_, _, _, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	require.Equal(t, "Bearer token123", gotAuth)
}
