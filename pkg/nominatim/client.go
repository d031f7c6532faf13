// Package nominatim provides a rate-limited client for the OpenStreetMap
// Nominatim search API.
//
// Nominatim's usage policy allows at most one request per second per client
// and requires an identifying User-Agent. The client enforces the pacing
// itself so callers can simply loop over addresses.
package nominatim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Config holds the provider settings. All fields have working defaults; pass
// a custom BaseURL and a fast Interval in tests.
type Config struct {
	BaseURL   string
	UserAgent string
	Language  string        // accept-language hint, e.g. "en" or "de"
	Interval  time.Duration // minimum spacing between requests
	Timeout   time.Duration
}

// Address holds the structured components of a match. Nominatim does not
// guarantee which subset is present; all fields are best-effort.
type Address struct {
	HouseNumber  string `json:"house_number"`
	Road         string `json:"road"`
	Suburb       string `json:"suburb"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	County       string `json:"county"`
	State        string `json:"state"`
	Postcode     string `json:"postcode"`
	Country      string `json:"country"`
}

// Result is the parsed first match for an address query.
type Result struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

// searchItem is one element of the provider's response array. Coordinates
// come back as strings.
type searchItem struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     Address `json:"address"`
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, used by tests to inject fakes.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client issues single-address queries against a Nominatim instance.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Client from cfg, filling unset fields with defaults
// (public endpoint, 1 s interval, 15 s timeout, English results).
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "geocsv/1.0 (github.com/mappoint/geocsv)"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(cfg.Interval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves a free-text address to its best match. A nil result with a
// nil error means "not found": zero matches, a non-success status, and
// network or parse failures all collapse into it, since the caller has no
// finer recovery path than marking the row failed. An empty address returns
// nil immediately with no request and no rate-limit wait. The only errors
// returned are context cancellations, during the rate-limit wait or the
// request itself.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit wait")
	}

	params := url.Values{
		"q":               {address},
		"format":          {"jsonv2"},
		"addressdetails":  {"1"},
		"limit":           {"1"},
		"accept-language": {c.cfg.Language},
	}

	reqURL := c.cfg.BaseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		zap.L().Debug("nominatim: build request", zap.Error(err))
		return nil, nil
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "nominatim: request aborted")
		}
		zap.L().Debug("nominatim: request failed", zap.String("address", address), zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("nominatim: non-OK status",
			zap.String("address", address),
			zap.Int("status", resp.StatusCode),
		)
		return nil, nil
	}

	var items []searchItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		zap.L().Debug("nominatim: parse response", zap.String("address", address), zap.Error(err))
		return nil, nil
	}
	if len(items) == 0 {
		return nil, nil
	}

	return parseItem(items[0])
}

// parseItem converts a wire item to a Result. Unparseable coordinates
// collapse to "not found".
func parseItem(item searchItem) (*Result, error) {
	lat, err := strconv.ParseFloat(item.Lat, 64)
	if err != nil {
		zap.L().Debug("nominatim: parse lat", zap.String("lat", item.Lat), zap.Error(err))
		return nil, nil
	}
	lon, err := strconv.ParseFloat(item.Lon, 64)
	if err != nil {
		zap.L().Debug("nominatim: parse lon", zap.String("lon", item.Lon), zap.Error(err))
		return nil, nil
	}
	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: item.DisplayName,
		Address:     item.Address,
	}, nil
}
