package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrBadSourceURL = errors.New("invalid source url")

	// ErrSourceTooLarge is returned when the remote body exceeds the
	// configured byte cap. The body is read through a limited reader, so
	// an oversized response never lands fully in memory.
	ErrSourceTooLarge = errors.New("remote image exceeds the size limit")

	ErrUpstreamStatus = errors.New("remote server returned an error status")

	// ErrFetchFailed wraps transport-level failures (DNS, connect,
	// timeout) so callers can classify them without inspecting net
	// internals.
	ErrFetchFailed = errors.New("fetch source image")
)

type Config struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Client fetches source images over HTTP. Every fetch is bounded by the
// client timeout and the byte cap; there are no retries.
type Client struct {
	httpClient *http.Client
	maxBytes   int64
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxBytes: maxBytes,
	}
}

// Fetch downloads the raw image bytes from the given URL.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrBadSourceURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrUpstreamStatus, resp.Status)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: content-length %d, limit %d", ErrSourceTooLarge, resp.ContentLength, c.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: body larger than %d bytes", ErrSourceTooLarge, c.maxBytes)
	}
	return data, nil
}
