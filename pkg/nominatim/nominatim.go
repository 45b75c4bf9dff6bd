// Package nominatim geocodes Querétaro locality names against the OSM
// Nominatim API. Requests are rate limited to respect the public usage
// policy, and an unmatched query is a result, not an error.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/inmetrica/valuation-cli/internal/geometry"
)

// DefaultBaseURL is the public Nominatim endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// queryContext anchors every search to the metro area; bare neighborhood
// names are ambiguous nationwide.
const queryContext = "%s, Queretaro, Mexico"

// Result holds the geocoding output for one locality.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Client geocodes locality names.
type Client interface {
	Geocode(ctx context.Context, name string) (*Result, error)
}

// Option configures the client.
type Option func(*client)

// WithBaseURL points the client at a different endpoint (self-hosted
// instance, test server).
func WithBaseURL(u string) Option {
	return func(c *client) { c.baseURL = u }
}

// WithUserAgent sets the User-Agent header. The public instance rejects
// anonymous clients, so production config must set a contactable value.
func WithUserAgent(ua string) Option {
	return func(c *client) { c.userAgent = ua }
}

// WithRateLimit overrides the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

type client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client. The default rate limit is 1 request per
// second, the public instance's absolute maximum.
func NewClient(opts ...Option) Client {
	c := &client{
		baseURL:    DefaultBaseURL,
		userAgent:  "valuation-cli",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResult is the subset of the Nominatim response we read.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves one locality name. Results outside the Querétaro
// bounding box are treated as unmatched: the public index happily returns a
// same-named town in another state.
func (c *client) Geocode(ctx context.Context, name string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit wait")
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf(queryContext, name))
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: search %q", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Errorf("nominatim: search %q: status %d: %s", name, resp.StatusCode, body)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, eris.Wrapf(err, "nominatim: decode response for %q", name)
	}
	if len(results) == 0 {
		return &Result{Matched: false}, nil
	}

	lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, eris.Errorf("nominatim: unparseable coordinates for %q", name)
	}

	if !geometry.InQueretaroBBox(lat, lon) {
		zap.L().Debug("nominatim: match outside metro bbox",
			zap.String("name", name),
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
		)
		return &Result{Matched: false}, nil
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: results[0].DisplayName,
		Matched:     true,
	}, nil
}
