package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// HostRates caps requests per second per host. Nil means
	// DefaultHostRates; hosts not listed get unknownHostRate.
	HostRates map[string]rate.Limit
}

// DefaultHostRates paces the known upstreams. The OSM services ask for at
// most one request per second; the government portals tolerate more.
func DefaultHostRates() map[string]rate.Limit {
	return map[string]rate.Limit{
		"nominatim.openstreetmap.org": 1,
		"overpass-api.de":             1,
		"www.inegi.org.mx":            5,
		"datamexico.org":              5,
	}
}

const unknownHostRate rate.Limit = 10

// hostLimiter paces one host and adapts to what it answers: a 429 halves
// the current rate (never below a quarter of the configured rate), a
// success nudges it 20% back up (never above twice the configured rate).
type hostLimiter struct {
	mu      sync.Mutex
	lim     *rate.Limiter
	base    rate.Limit
	current rate.Limit
}

func newHostLimiter(base rate.Limit) *hostLimiter {
	burst := int(base)
	if burst < 1 {
		burst = 1
	}
	return &hostLimiter{lim: rate.NewLimiter(base, burst), base: base, current: base}
}

func (h *hostLimiter) wait(ctx context.Context) error {
	return h.lim.Wait(ctx)
}

func (h *hostLimiter) throttled() {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.current / 2
	if next < h.base/4 {
		next = h.base / 4
	}
	h.current = next
	h.lim.SetLimit(next)
}

func (h *hostLimiter) recovered() {
	h.mu.Lock()
	defer h.mu.Unlock()
	next := h.current * 1.2
	if next > h.base*2 {
		next = h.base * 2
	}
	h.current = next
	h.lim.SetLimit(next)
}

func (h *hostLimiter) rate() rate.Limit {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// HTTPFetcher implements Fetcher over net/http with retries, exponential
// backoff, and adaptive per-host rate limiting.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*hostLimiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options, filling in
// defaults for anything unset.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "valuation-cli/1.0"
	}
	if opts.HostRates == nil {
		opts.HostRates = DefaultHostRates()
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*hostLimiter),
	}
}

// limiter returns the adaptive limiter for the URL's host, creating it on
// first use.
func (f *HTTPFetcher) limiter(rawURL string) *hostLimiter {
	var host string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if lim, ok := f.limiters[host]; ok {
		return lim
	}
	base, ok := f.opts.HostRates[host]
	if !ok {
		base = unknownHostRate
	}
	lim := newHostLimiter(base)
	f.limiters[host] = lim
	return lim
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, path, etag string) (string, bool, error) {
	resp, err := f.get(ctx, rawURL, etag)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusNotModified:
		return etag, false, nil
	case http.StatusOK:
	default:
		return "", false, eris.Errorf("fetch: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	out, err := os.Create(path)
	if err != nil {
		return "", false, eris.Wrapf(err, "fetch: create %s", path)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close() //nolint:errcheck
		return "", false, eris.Wrapf(err, "fetch: write %s", path)
	}
	if err := out.Close(); err != nil {
		return "", false, eris.Wrapf(err, "fetch: close %s", path)
	}
	return resp.Header.Get("ETag"), true, nil
}

// get runs one GET with retries. Transport errors, 429s, and 5xx responses
// are retried with exponential backoff; every other status is the caller's
// to interpret.
func (f *HTTPFetcher) get(ctx context.Context, rawURL, etag string) (*http.Response, error) {
	lim := f.limiter(rawURL)

	var lastErr error
	for attempt := 0; attempt < f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := lim.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetch: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "fetch: build request for %s", rawURL)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("fetch attempt failed",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close() //nolint:errcheck
			lim.throttled()
			lastErr = eris.Errorf("fetch: 429 from %s", rawURL)
			zap.L().Warn("upstream rate limited, slowing down",
				zap.String("url", rawURL),
				zap.Float64("rate", float64(lim.rate())),
			)
		case resp.StatusCode >= 500:
			resp.Body.Close() //nolint:errcheck
			lastErr = eris.Errorf("fetch: %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("upstream server error",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
		default:
			lim.recovered()
			return resp, nil
		}
	}
	return nil, eris.Wrapf(lastErr, "fetch: retries exhausted for %s", rawURL)
}

// backoff sleeps 1s·2^(attempt-1) plus jitter, capped at 30s.
func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(float64(time.Second) * math.Pow(2, float64(attempt-1)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "fetch: backoff interrupted")
	case <-t.C:
		return nil
	}
}
