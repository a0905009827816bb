package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Fetcher defaults.
const (
	DefaultFetchTimeout = 30 * time.Second
	DefaultMaxBodySize  = 50 << 20
	DefaultUserAgent    = "rowfetch/1.0"
)

// HTTPFetcher downloads a URL with a single GET and decodes the body.
// It never retries; a failed row is re-triggered by the operator.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	userAgent   string
	logger      *slog.Logger
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// WithFetchTimeout bounds each request including the body read.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize caps the number of body bytes read.
func WithMaxBodySize(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) { f.userAgent = ua }
}

// WithFetchLogger sets the logger for request outcomes.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewHTTPFetcher returns a fetcher with the package defaults applied.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{},
		timeout:     DefaultFetchTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (res FetchResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = fetchFailed(rawURL, ReasonDecode, fmt.Errorf("panic while decoding: %v", r))
		}
		f.logResult(rawURL, res, time.Since(start))
	}()

	u, err := url.Parse(rawURL)
	if err != nil {
		return fetchFailed(rawURL, ReasonInvalid, fmt.Errorf("invalid URL: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fetchFailed(rawURL, ReasonInvalid, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return fetchFailed(rawURL, ReasonInvalid, errors.New("missing host"))
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fetchFailed(rawURL, ReasonInvalid, fmt.Errorf("create request: %w", err))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fetchFailed(rawURL, transportReason(reqCtx, err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		failed := fetchFailed(rawURL, ReasonStatus, fmt.Errorf("HTTP %s", resp.Status))
		failed.Failure.StatusCode = resp.StatusCode
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return failed
	}

	body, err := io.ReadAll(NewCountingReader(resp.Body, f.maxBodySize))
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			return fetchFailed(rawURL, ReasonTooLarge, fmt.Errorf("%w (%d bytes)", err, f.maxBodySize))
		}
		return fetchFailed(rawURL, transportReason(reqCtx, err), fmt.Errorf("read body: %w", err))
	}

	p, err := Decode(body)
	if err != nil {
		return fetchFailed(rawURL, ReasonDecode, err)
	}
	return FetchResult{Payload: p}
}

func transportReason(ctx context.Context, err error) FailureReason {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonNetwork
}

func (f *HTTPFetcher) logResult(rawURL string, res FetchResult, elapsed time.Duration) {
	if res.Failure != nil {
		f.logger.Warn("fetch failed",
			"url", rawURL,
			"reason", res.Failure.Reason,
			"status", res.Failure.StatusCode,
			"error", res.Failure.Message,
			"duration_ms", elapsed.Milliseconds(),
		)
		return
	}
	f.logger.Debug("fetch ok",
		"url", rawURL,
		"columns", len(res.Payload.Columns),
		"records", len(res.Payload.Records),
		"duration_ms", elapsed.Milliseconds(),
	)
}
