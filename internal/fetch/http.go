package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jponter/proxyforge/internal/apperr"
)

const maxResponseBytes = 64 << 20 // 64 MB

// HTTPFetcher implements Fetcher against the remote lookup endpoint. The
// service accepts the card identifier as a query parameter and responds
// with a base64-encoded image body.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher for the given base endpoint URL.
// timeout bounds each individual request.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "?&"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch issues a single GET for the card identifier and returns the decoded
// image bytes. Network failures and non-2xx statuses surface as
// TransientFetchError; a malformed base64 body is ErrCorruptResponse since
// the service will not self-correct on retry.
func (f *HTTPFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty card identifier", apperr.ErrInvalidRequest)
	}

	reqURL, err := f.lookupURL(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidRequest, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &apperr.TransientFetchError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperr.TransientFetchError{
			Cause: fmt.Errorf("fetch: lookup for %q returned %s", id, resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &apperr.TransientFetchError{Cause: fmt.Errorf("fetch: read body: %w", err)}
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorruptResponse, err)
	}
	return data, nil
}

// lookupURL percent-encodes the identifier into the service query string.
func (f *HTTPFetcher) lookupURL(id string) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
