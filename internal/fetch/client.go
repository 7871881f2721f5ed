// Package fetch downloads raw airport and flight data from the AeroDataBox
// API on RapidAPI into the ETL data directory.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"flight_explorer/internal/logging"
)

const (
	defaultInterval = time.Second
	requestTimeout  = 30 * time.Second
	maxBodyBytes    = 16 << 20
)

// Flight list kinds requested per airport.
const (
	KindDepartures = "departures"
	KindArrivals   = "arrivals"
)

// DefaultAirports are fetched when no codes are configured.
var DefaultAirports = []string{
	"DEL", "BOM", "BLR", "HYD", "MAA",
	"DXB", "LHR", "JFK", "SIN", "CDG",
	"FRA", "HKG",
}

// StatusError reports a non-2xx API response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	APIKey  string
	APIHost string
	// BaseURL overrides https://{APIHost}.
	BaseURL string
	// Interval is the minimum spacing between requests. Zero means one second;
	// a negative value disables limiting.
	Interval   time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is a rate-limited AeroDataBox client. Requests are never retried.
type Client struct {
	baseURL string
	apiKey  string
	apiHost string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = "https://" + opts.APIHost
	}

	limit := rate.Inf
	switch {
	case opts.Interval == 0:
		limit = rate.Every(defaultInterval)
	case opts.Interval > 0:
		limit = rate.Every(opts.Interval)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		baseURL: strings.TrimSuffix(base, "/"),
		apiKey:  opts.APIKey,
		apiHost: opts.APIHost,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
		log:     logging.OrNop(opts.Logger),
	}
}

// Airport fetches one airport by IATA code.
func (c *Client) Airport(ctx context.Context, code string) (json.RawMessage, error) {
	return c.get(ctx, "/airports/iata/"+url.PathEscape(code), nil)
}

// Flights fetches the recent departures or arrivals of one airport.
func (c *Client) Flights(ctx context.Context, code, kind string) (json.RawMessage, error) {
	if kind != KindDepartures && kind != KindArrivals {
		return nil, fmt.Errorf("unknown flight list kind %q", kind)
	}
	params := url.Values{
		"withDelays": {"true"},
		"limit":      {"100"},
	}
	return c.get(ctx, "/flights/airports/iata/"+url.PathEscape(code)+"/"+kind, params)
}

// FetchAirports fetches every airport in order.
func (c *Client) FetchAirports(ctx context.Context, codes []string) ([]json.RawMessage, error) {
	airports := make([]json.RawMessage, 0, len(codes))
	for _, code := range codes {
		c.log.Info("fetching airport", zap.String("iata", code))
		a, err := c.Airport(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("airport %s: %w", code, err)
		}
		airports = append(airports, a)
	}
	return airports, nil
}

// FlightBatch is one airport's departures or arrivals response.
type FlightBatch struct {
	Airport string          `json:"airport"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// FetchFlights fetches departures then arrivals for every airport.
func (c *Client) FetchFlights(ctx context.Context, codes []string) ([]FlightBatch, error) {
	batches := make([]FlightBatch, 0, 2*len(codes))
	for _, code := range codes {
		for _, kind := range []string{KindDepartures, KindArrivals} {
			c.log.Info("fetching flights", zap.String("iata", code), zap.String("type", kind))
			data, err := c.Flights(ctx, code, kind)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", code, kind, err)
			}
			batches = append(batches, FlightBatch{Airport: code, Type: kind, Data: data})
		}
	}
	return batches, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: snippet}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: response is not JSON", u)
	}
	return json.RawMessage(body), nil
}
