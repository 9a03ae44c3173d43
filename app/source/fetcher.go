package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
	"golang.org/x/time/rate"
)

const maxBodySize = 10 << 20

// HTTPStatusError is returned for non-200 responses.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Temporary reports whether the request is worth retrying.
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Response is a fetched document.
type Response struct {
	Body        []byte
	ContentType string
}

// HostLimiter hands out one rate.Limiter per host.
type HostLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	limit    rate.Limit
}

// NewHostLimiter returns nil when perSecond is not positive, which disables limiting.
func NewHostLimiter(perSecond float64) *HostLimiter {
	if perSecond <= 0 {
		return nil
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
	}
}

func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h == nil {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in URL %q", rawURL)
	}

	h.mu.Lock()
	limiter, ok := h.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(h.limit, 1)
		h.limiters[u.Host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}

type Fetcher struct {
	client     *http.Client
	limiter    *HostLimiter
	logger     *slog.Logger
	userAgent  string
	attempts   uint
	retryDelay time.Duration
}

func NewFetcher(client *http.Client, userAgent string, limiter *HostLimiter, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:     client,
		limiter:    limiter,
		logger:     logger,
		userAgent:  userAgent,
		attempts:   3,
		retryDelay: time.Second,
	}
}

// Fetch performs a GET with retries. Client errors other than 429 are not retried.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	var resp *Response

	err := retry.Do(
		func() error {
			if err := f.limiter.Wait(ctx, rawURL); err != nil {
				return retry.Unrecoverable(err)
			}

			r, err := f.get(ctx, rawURL)
			if err != nil {
				return err
			}
			resp = r
			return nil
		},
		retry.Attempts(f.attempts),
		retry.Delay(f.retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(f.retryDelay/2),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			var statusErr *HTTPStatusError
			if errors.As(err, &statusErr) {
				return statusErr.Temporary()
			}
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("Retrying fetch after error", "attempt", n+1, "url", rawURL, "error", err)
		}),
	)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{Body: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// DecodeHTML converts an HTML body to UTF-8 using the charset declared in
// contentType. Unknown or missing charsets leave the body unchanged.
func DecodeHTML(body []byte, contentType string) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}

	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	if label == "" || label == "utf-8" || label == "utf8" {
		return body
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return body
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(body), enc.NewDecoder()))
	if err != nil {
		return body
	}
	return decoded
}
