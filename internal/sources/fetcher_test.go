package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosscheck/pkg/platform/sentinel"
)

func TestHTTPFetcher_StatusClassification(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		sentinel  error
		transient bool
	}{
		{"not found is permanent", http.StatusNotFound, sentinel.ErrSource, false},
		{"bad request is permanent", http.StatusBadRequest, sentinel.ErrSource, false},
		{"unauthorized is permanent", http.StatusUnauthorized, sentinel.ErrSource, false},
		{"too many requests retries", http.StatusTooManyRequests, sentinel.ErrSourceUnavailable, true},
		{"server error retries", http.StatusServiceUnavailable, sentinel.ErrSourceUnavailable, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			fetcher := NewHTTPFetcher(2 * time.Second)
			_, err := fetcher.Fetch(context.Background(), srv.URL, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.Equal(t, tc.transient, sentinel.Transient(err))
		})
	}
}

func TestHTTPFetcher_Success(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	fetcher := NewHTTPFetcher(2 * time.Second)
	doc, err := fetcher.Fetch(context.Background(), srv.URL, map[string]string{"Accept": "application/json"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doc.Status)
	assert.JSONEq(t, `{"ok":true}`, string(doc.Body))
	assert.Equal(t, 1, requests)
}
