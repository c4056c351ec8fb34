package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"crosscheck/pkg/platform/sentinel"
)

// DefaultFetchTimeout is the maximum time to wait for a source response when
// the source configuration does not say otherwise.
const DefaultFetchTimeout = 10 * time.Second

const maxResponseBytes = 4 << 20

// Document is a fetched response body. Adapters only see bytes; transport
// details stay in the fetcher.
type Document struct {
	Body   []byte
	Status int
}

// Fetcher retrieves a URL. The single-method interface keeps adapters
// testable with canned documents.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (Document, error)
}

// HTTPFetcher fetches over plain HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, headers map[string]string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", sentinel.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Document{}, fmt.Errorf("%w: read body: %v", sentinel.ErrSourceUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 429 and 5xx may clear on retry; any other 4xx means the request
		// itself is bad and retrying would only repeat it.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return Document{}, fmt.Errorf("%w: status %d", sentinel.ErrSourceUnavailable, resp.StatusCode)
		}
		return Document{}, fmt.Errorf("%w: status %d", sentinel.ErrSource, resp.StatusCode)
	}
	return Document{Body: body, Status: resp.StatusCode}, nil
}
