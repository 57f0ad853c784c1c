package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "adds scheme", in: "example.com", want: "https://example.com/"},
		{name: "keeps http", in: "http://example.com/page", want: "http://example.com/page"},
		{name: "trims whitespace", in: "  example.com  ", want: "https://example.com/"},
		{name: "keeps query", in: "https://example.com/search?q=1", want: "https://example.com/search?q=1"},
		{name: "empty", in: "", wantErr: true},
		{name: "no dot in host", in: "localhost", wantErr: true},
		{name: "scheme only", in: "https://", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://example.com", BaseURL("https://example.com/a/b?c=1"))
}

func TestSameDomain(t *testing.T) {
	assert.True(t, SameDomain("https://www.example.com/a", "https://example.com/b"))
	assert.False(t, SameDomain("https://example.com", "https://other.com"))
}

func TestFetch(t *testing.T) {
	t.Run("returns body and sends browser headers", func(t *testing.T) {
		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			_, _ = w.Write([]byte("<html><title>hi</title></html>"))
		}))
		defer srv.Close()

		f := New(Config{UserAgent: "test-agent"}, nil)
		body, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Contains(t, body, "<title>hi</title>")
		assert.Equal(t, "test-agent", gotUA)
	})

	statusCases := []struct {
		status int
		reason Reason
	}{
		{http.StatusForbidden, ReasonForbidden},
		{http.StatusNotFound, ReasonNotFound},
		{http.StatusInternalServerError, ReasonStatus},
	}
	for _, tc := range statusCases {
		t.Run(string(tc.reason), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			f := New(Config{}, nil)
			_, err := f.Fetch(context.Background(), srv.URL)
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tc.reason, fetchErr.Reason)
			assert.Equal(t, tc.status, fetchErr.Status)
		})
	}

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		f := New(Config{Timeout: 20 * time.Millisecond}, nil)
		_, err := f.Fetch(context.Background(), srv.URL)
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, ReasonTimeout, fetchErr.Reason)
	})

	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		f := New(Config{}, nil)
		_, err := f.Fetch(context.Background(), url)
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, ReasonConnection, fetchErr.Reason)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := New(Config{}, nil)
		_, err := f.Fetch(ctx, "https://example.com/")
		var fetchErr *Error
		require.ErrorAs(t, err, &fetchErr)
		assert.True(t, errors.Is(err, context.Canceled) || fetchErr.Reason == ReasonConnection)
	})
}
