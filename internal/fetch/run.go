package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Output files written by Run.
const (
	AirportsFile   = "airports.json"
	FlightsRawFile = "flights_raw.json"
)

// Result counts what Run wrote.
type Result struct {
	Airports      int
	FlightBatches int
}

// Run fetches every airport and its flight lists and writes them to dir.
// Airports are written before flights are requested, so a failed flight
// fetch still leaves a usable airports.json.
func Run(ctx context.Context, c *Client, dir string, codes []string) (Result, error) {
	if len(codes) == 0 {
		codes = DefaultAirports
	}

	airports, err := c.FetchAirports(ctx, codes)
	if err != nil {
		return Result{}, err
	}
	if err := SaveJSON(filepath.Join(dir, AirportsFile), airports); err != nil {
		return Result{}, err
	}

	batches, err := c.FetchFlights(ctx, codes)
	if err != nil {
		return Result{Airports: len(airports)}, err
	}
	if err := SaveJSON(filepath.Join(dir, FlightsRawFile), batches); err != nil {
		return Result{Airports: len(airports)}, err
	}

	return Result{Airports: len(airports), FlightBatches: len(batches)}, nil
}

// SaveJSON writes v as indented JSON, creating parent directories.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
