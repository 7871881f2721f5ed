package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Files read and written by Generate.
const (
	AirportsFile = "airports.json"
	AircraftFile = "aircraft.json"
	FlightsFile  = "flights.json"
	DelaysFile   = "airport_delays.json"
)

// Summary counts the records Generate wrote.
type Summary struct {
	Airports int
	Aircraft int
	Flights  int
	Delays   int
}

// Generate reads dir/airports.json and writes aircraft.json, flights.json
// and airport_delays.json next to it.
func Generate(dir string, opts Options) (Summary, error) {
	airports, err := ReadIATACodes(filepath.Join(dir, AirportsFile))
	if err != nil {
		return Summary{}, err
	}

	g := NewGenerator(opts)
	aircraft := g.Aircraft()
	flights := g.Flights(airports, aircraft)
	delays := g.Delays(airports)

	outputs := []struct {
		name string
		v    any
	}{
		{AircraftFile, aircraft},
		{FlightsFile, flights},
		{DelaysFile, delays},
	}
	for _, out := range outputs {
		if err := writeJSON(filepath.Join(dir, out.name), out.v); err != nil {
			return Summary{}, err
		}
	}

	return Summary{
		Airports: len(airports),
		Aircraft: len(aircraft),
		Flights:  len(flights),
		Delays:   len(delays),
	}, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
