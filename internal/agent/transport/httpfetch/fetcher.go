// Package httpfetch implements agent.Fetcher over net/http, retrying
// transient failures with the agent's resilience.WithRetry exponential
// schedule.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/rdkcentral/webconfig-agent/internal/agent/resilience"
)

// Fetcher fetches the multipart config bundle over HTTPS.
type Fetcher struct {
	client  *http.Client
	maxTime time.Duration
	policy  *resilience.RetryPolicy
	headers map[string]string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithHeader adds a static header (e.g. an auth token) to every request.
func WithHeader(key, value string) Option {
	return func(f *Fetcher) { f.headers[key] = value }
}

// WithMaxElapsedTime bounds total time spent retrying a single fetch by
// deriving a context deadline at Fetch time; it no longer shapes the
// retry schedule itself (resilience.RetryPolicy's budget is attempt
// count, not elapsed time).
func WithMaxElapsedTime(d time.Duration) Option {
	return func(f *Fetcher) { f.maxTime = d }
}

// WithRetryPolicy overrides the default retry policy entirely.
func WithRetryPolicy(p *resilience.RetryPolicy) Option {
	return func(f *Fetcher) { f.policy = p }
}

// New returns a Fetcher with sensible defaults: a 10s-timeout client and
// a 30s retry budget.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		maxTime: 30 * time.Second,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.policy == nil {
		f.policy = &resilience.RetryPolicy{
			MaxRetries:    3,
			BaseDelay:     200 * time.Millisecond,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			Jitter:        true,
			ErrorChecker:  &statusErrorChecker{},
			OperationName: "bundle_fetch",
		}
	}
	return f
}

// httpStatusError carries the response status code alongside the error
// text, so statusErrorChecker can classify it without re-parsing the
// message.
type httpStatusError struct {
	statusCode int
	msg        string
}

func (e *httpStatusError) Error() string { return e.msg }

// statusErrorChecker retries server errors (5xx) and transport-level
// failures (DNS, connection refused/reset, timeouts — delegated to
// resilience.DefaultErrorChecker) but never a client error (4xx): those
// are the caller's fault and retrying them would just repeat the same
// rejection. HTTPErrorChecker's string-matching would treat any
// unmatched error as retryable, including our own 4xx errors' "client
// error 404" text never matching its 5xx patterns but still falling
// through to "assume retryable" — too permissive for this use, hence a
// dedicated checker keyed off the typed error instead of its message.
type statusErrorChecker struct{}

func (c *statusErrorChecker) IsRetryable(err error) bool {
	if se, ok := err.(*httpStatusError); ok {
		return se.statusCode >= 500
	}
	return (&resilience.DefaultErrorChecker{}).IsRetryable(err)
}

// Fetch implements agent.Fetcher, retrying transient (5xx, network)
// failures with exponential backoff and returning the response body,
// its multipart boundary, and its ETag.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, string, error) {
	var (
		body     []byte
		boundary string
		etag     string
	)

	if f.maxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.maxTime)
		defer cancel()
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &httpStatusError{statusCode: 0, msg: fmt.Sprintf("httpfetch: build request: %v", err)}
		}
		for k, v := range f.headers {
			req.Header.Set(k, v)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return fmt.Errorf("httpfetch: request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return &httpStatusError{
				statusCode: resp.StatusCode,
				msg:        fmt.Sprintf("httpfetch: server returned status %d", resp.StatusCode),
			}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("httpfetch: read body: %w", err)
		}

		_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		if err == nil {
			boundary = params["boundary"]
		}
		etag = resp.Header.Get("Etag")
		body = data
		return nil
	}

	if err := resilience.WithRetry(ctx, f.policy, op); err != nil {
		return nil, "", "", err
	}
	return body, boundary, etag, nil
}
