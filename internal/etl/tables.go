package etl

import (
	"fmt"
	"path/filepath"
	"strings"

	"flight_explorer/internal/normalize"
)

// Table binds a target table to its source file and row normalizer.
type Table struct {
	Entity    string
	Name      string
	File      string
	Columns   []string
	State     State
	Normalize func(normalize.Record) ([]any, error)
}

// InsertSQL renders the parameterised INSERT for the table.
func (t Table) InsertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(t.Columns, ", "), marks)
}

var (
	Airports = Table{
		Entity:    "Airport",
		Name:      "airport",
		File:      "airports.json",
		Columns:   normalize.AirportColumns,
		State:     StateLoadingAirport,
		Normalize: normalize.Airport,
	}
	Aircraft = Table{
		Entity:    "Aircraft",
		Name:      "aircraft",
		File:      "aircraft.json",
		Columns:   normalize.AircraftColumns,
		State:     StateLoadingAircraft,
		Normalize: normalize.Aircraft,
	}
	Flights = Table{
		Entity:    "Flight",
		Name:      "flights",
		File:      "flights.json",
		Columns:   normalize.FlightColumns,
		State:     StateLoadingFlight,
		Normalize: normalize.Flight,
	}
	Delays = Table{
		Entity:    "DelayStat",
		Name:      "airport_delays",
		File:      "airport_delays.json",
		Columns:   normalize.DelayStatColumns,
		State:     StateLoadingDelayStat,
		Normalize: normalize.DelayStat,
	}
)

// LoadOrder is the order tables are filled: referenced tables first.
var LoadOrder = []Table{Airports, Aircraft, Flights, Delays}

// ClearOrder is the order tables are emptied: referencing tables first.
var ClearOrder = []string{Flights.Name, Aircraft.Name, Delays.Name, Airports.Name}

// Sources locates the raw provider files.
type Sources struct {
	Dir string
}

// Path returns the source file path for a table.
func (s Sources) Path(t Table) string {
	return filepath.Join(s.Dir, t.File)
}
