// Package fetcher retrieves website HTML over HTTP with browser-like headers
// and classifies transport failures into tagged reasons.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Reason tags why a fetch failed. The presentation layer maps reasons to
// user-facing hints instead of matching on message substrings.
type Reason string

const (
	ReasonTimeout    Reason = "timeout"
	ReasonDNS        Reason = "dns"
	ReasonConnection Reason = "connection"
	ReasonForbidden  Reason = "forbidden"
	ReasonNotFound   Reason = "not_found"
	ReasonStatus     Reason = "status"
)

// Error is a failed page fetch with its classified reason.
type Error struct {
	URL    string
	Reason Reason
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// maxBodySize bounds how much HTML is read from a target site (4MB).
const maxBodySize = 4 << 20

// Config holds fetcher configuration.
type Config struct {
	Timeout       time.Duration
	UserAgent     string
	RatePerSecond float64
	Burst         int
}

// Fetcher retrieves pages with a shared rate limit across all tasks.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *zap.Logger
}

// New creates a fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// Fetch retrieves the HTML body of url. Redirects are followed; any non-200
// final status or transport failure returns an *Error with a tagged reason.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", &Error{URL: url, Reason: ReasonConnection, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &Error{URL: url, Reason: ReasonConnection, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		reason := classifyTransportError(err)
		f.logger.Warn("page fetch failed",
			zap.String("url", url),
			zap.String("reason", string(reason)),
			zap.Error(err))
		return "", &Error{URL: url, Reason: reason, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		reason := ReasonStatus
		switch resp.StatusCode {
		case http.StatusForbidden:
			reason = ReasonForbidden
		case http.StatusNotFound:
			reason = ReasonNotFound
		}
		f.logger.Warn("page fetch rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return "", &Error{URL: url, Reason: reason, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &Error{URL: url, Reason: ReasonConnection, Err: err}
	}

	f.logger.Debug("page fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))

	return string(body), nil
}

// classifyTransportError maps transport-level failures to reasons.
func classifyTransportError(err error) Reason {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonDNS
	}
	return ReasonConnection
}
