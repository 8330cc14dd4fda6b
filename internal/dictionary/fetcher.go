package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves the dictionary from its remote source. A nil dictionary
// with a nil error means the source answered without a record.
type Fetcher interface {
	Fetch(ctx context.Context) (*Dictionary, error)
}

const maxResponseBytes = 5 << 20 // 5 MB

// HTTPFetcher reads a JSON document whose "record" field is the dictionary.
type HTTPFetcher struct {
	url       string
	accessKey string
	client    *http.Client
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTPFetcher creates a fetcher for url, authenticating with accessKey
// through the X-Access-Key header.
func NewHTTPFetcher(url, accessKey string, timeout time.Duration, opts ...FetcherOption) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	f := &HTTPFetcher{
		url:       url,
		accessKey: accessKey,
		client:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type envelope struct {
	Record json.RawMessage `json:"record"`
}

// Fetch performs a single GET. It never retries.
func (f *HTTPFetcher) Fetch(ctx context.Context) (*Dictionary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dictionary: build request: %w", err)
	}
	if f.accessKey != "" {
		req.Header.Set("X-Access-Key", f.accessKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dictionary: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dictionary: fetch: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("dictionary: read body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("dictionary: decode body: %w", err)
	}
	if len(env.Record) == 0 || bytes.Equal(bytes.TrimSpace(env.Record), []byte("null")) {
		return nil, nil
	}

	d := New()
	if err := json.Unmarshal(env.Record, d); err != nil {
		return nil, fmt.Errorf("dictionary: decode record: %w", err)
	}
	return d, nil
}
