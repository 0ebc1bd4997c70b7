package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// HTTP fetches rows from a CSV document published over HTTP, such as a
// Google Sheets "export as CSV" link. The per-fetch deadline comes from
// the context handed in by the knowledge store.
type HTTP struct {
	url    string
	client *http.Client
}

// NewHTTP creates an HTTP fetcher for the given CSV URL. A nil client
// falls back to http.DefaultClient.
func NewHTTP(rawURL string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("source: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source: unsupported scheme %q", u.Scheme)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{url: rawURL, client: client}, nil
}

// FetchRows downloads and parses the CSV document.
func (h *HTTP) FetchRows(ctx context.Context) ([]map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: fetch %s: %w", h.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: fetch %s: unexpected status %s", h.url, resp.Status)
	}
	return parseCSV(resp.Body)
}

// Describe implements knowledge.Fetcher.
func (h *HTTP) Describe() string {
	return "url:" + h.url
}
