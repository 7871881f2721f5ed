package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	failPath string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r)
	f.mu.Unlock()

	if f.failPath != "" && strings.HasPrefix(r.URL.Path, f.failPath) {
		http.Error(w, `{"message":"quota exceeded"}`, http.StatusTooManyRequests)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasPrefix(r.URL.Path, "/airports/iata/"):
		code := strings.TrimPrefix(r.URL.Path, "/airports/iata/")
		_ = json.NewEncoder(w).Encode(map[string]any{"iata": code, "icao": "X" + code})
	case strings.HasPrefix(r.URL.Path, "/flights/airports/iata/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"departures": []any{}, "arrivals": []any{}})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		APIKey:   "secret",
		APIHost:  "aerodatabox.p.rapidapi.com",
		BaseURL:  srv.URL,
		Interval: -1,
	})
}

func TestClientHeaders(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.Airport(context.Background(), "DEL")
	require.NoError(t, err)

	require.Len(t, api.requests, 1)
	r := api.requests[0]
	assert.Equal(t, "secret", r.Header.Get("x-rapidapi-key"))
	assert.Equal(t, "aerodatabox.p.rapidapi.com", r.Header.Get("x-rapidapi-host"))
	assert.Equal(t, "/airports/iata/DEL", r.URL.Path)
}

func TestClientFlightsQuery(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	_, err := c.Flights(context.Background(), "BOM", KindArrivals)
	require.NoError(t, err)

	r := api.requests[0]
	assert.Equal(t, "/flights/airports/iata/BOM/arrivals", r.URL.Path)
	assert.Equal(t, "true", r.URL.Query().Get("withDelays"))
	assert.Equal(t, "100", r.URL.Query().Get("limit"))

	_, err = c.Flights(context.Background(), "BOM", "overflights")
	assert.Error(t, err)
}

func TestClientStatusError(t *testing.T) {
	api := &fakeAPI{failPath: "/airports/"}
	c := newTestClient(t, api)

	_, err := c.Airport(context.Background(), "DEL")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Body, "quota")
	assert.Len(t, api.requests, 1, "no retries")
}

func TestClientRateLimit(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL, Interval: 50 * time.Millisecond})
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Airport(context.Background(), "DEL")
		require.NoError(t, err)
	}
	// The first request uses the burst token; two more wait one interval each.
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1", Interval: time.Hour})
	c.limiter.Allow() // spend the burst token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Airport(ctx, "DEL")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)
	dir := filepath.Join(t.TempDir(), "raw")

	res, err := Run(context.Background(), c, dir, []string{"DEL", "BOM"})
	require.NoError(t, err)
	assert.Equal(t, Result{Airports: 2, FlightBatches: 4}, res)

	var airports []map[string]any
	data, err := os.ReadFile(filepath.Join(dir, AirportsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &airports))
	require.Len(t, airports, 2)
	assert.Equal(t, "DEL", airports[0]["iata"])

	var batches []FlightBatch
	data, err = os.ReadFile(filepath.Join(dir, FlightsRawFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &batches))
	require.Len(t, batches, 4)
	assert.Equal(t, FlightBatch{Airport: "DEL", Type: KindDepartures, Data: batches[0].Data}, batches[0])
	assert.Equal(t, "BOM", batches[3].Airport)
	assert.Equal(t, KindArrivals, batches[3].Type)
}

func TestRunKeepsAirportsWhenFlightsFail(t *testing.T) {
	api := &fakeAPI{failPath: "/flights/"}
	c := newTestClient(t, api)
	dir := t.TempDir()

	res, err := Run(context.Background(), c, dir, []string{"DEL"})
	require.Error(t, err)
	assert.Equal(t, 1, res.Airports)
	assert.FileExists(t, filepath.Join(dir, AirportsFile))
	assert.NoFileExists(t, filepath.Join(dir, FlightsRawFile))
}
