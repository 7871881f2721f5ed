package synth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_explorer/internal/normalize"
)

var testNow = time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

var testAirports = []string{"BOM", "DEL", "DXB"}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(Options{Seed: 42, Now: testNow})
	b := NewGenerator(Options{Seed: 42, Now: testNow})

	aa, ba := a.Aircraft(), b.Aircraft()
	assert.Equal(t, aa, ba)
	assert.Equal(t, a.Flights(testAirports, aa), b.Flights(testAirports, ba))
	assert.Equal(t, a.Delays(testAirports), b.Delays(testAirports))

	c := NewGenerator(Options{Seed: 43, Now: testNow})
	assert.NotEqual(t, aa, c.Aircraft())
}

func TestAircraftUniqueRegistrations(t *testing.T) {
	aircraft := NewGenerator(Options{Seed: 1, Now: testNow}).Aircraft()
	require.Len(t, aircraft, 25)

	seen := map[string]bool{}
	for _, a := range aircraft {
		assert.False(t, seen[a.Registration], "duplicate %s", a.Registration)
		seen[a.Registration] = true
		assert.Regexp(t, `^VT-\d{4}$`, a.Registration)
		assert.Contains(t, models[a.Manufacturer], a.Model)
		assert.NotContains(t, a.ICAOTypeCode, "-")
	}
}

func TestFlights(t *testing.T) {
	g := NewGenerator(Options{Seed: 7, Now: testNow})
	aircraft := g.Aircraft()
	flights := g.Flights(testAirports, aircraft)
	require.Len(t, flights, 400)

	regs := map[string]bool{}
	for _, a := range aircraft {
		regs[a.Registration] = true
	}

	statuses := map[string]int{}
	earliest := testNow.Add(-5 * 24 * time.Hour)
	for i, f := range flights {
		statuses[f.Status]++
		assert.NotEqual(t, f.OriginIATA, f.DestinationIATA)
		assert.True(t, regs[f.AircraftRegistration])
		assert.True(t, strings.HasPrefix(f.FlightNumber, f.AirlineCode), f.FlightNumber)
		if i == 0 {
			assert.Equal(t, "FL00001", f.FlightID)
		}

		dep, err := time.Parse(timestampLayout, f.ScheduledDeparture)
		require.NoError(t, err)
		arr, err := time.Parse(timestampLayout, f.ScheduledArrival)
		require.NoError(t, err)
		assert.False(t, dep.Before(earliest))
		assert.False(t, dep.After(testNow))
		assert.True(t, arr.After(dep))

		switch f.Status {
		case normalize.StatusCancelled:
			assert.Nil(t, f.ActualDeparture)
			assert.Nil(t, f.ActualArrival)
		case normalize.StatusOnTime:
			require.NotNil(t, f.ActualDeparture)
			assert.Equal(t, f.ScheduledDeparture, *f.ActualDeparture)
		case normalize.StatusDelayed:
			require.NotNil(t, f.ActualDeparture)
			act, err := time.Parse(timestampLayout, *f.ActualDeparture)
			require.NoError(t, err)
			late := act.Sub(dep)
			assert.GreaterOrEqual(t, late, 5*time.Minute)
			assert.LessOrEqual(t, late, 90*time.Minute)
		default:
			t.Fatalf("unexpected status %q", f.Status)
		}
	}

	// Loose bounds around the 65/25/10 weights.
	assert.InDelta(t, 260, statuses[normalize.StatusOnTime], 60)
	assert.InDelta(t, 100, statuses[normalize.StatusDelayed], 50)
	assert.InDelta(t, 40, statuses[normalize.StatusCancelled], 30)
}

func TestDelays(t *testing.T) {
	delays := NewGenerator(Options{Seed: 3, Now: testNow}).Delays(testAirports)
	require.Len(t, delays, len(testAirports)*5)

	assert.Equal(t, "2024-05-06", delays[0].DelayDate)
	assert.Equal(t, "2024-05-02", delays[4].DelayDate)

	for _, d := range delays {
		assert.GreaterOrEqual(t, d.TotalFlights, 40)
		assert.LessOrEqual(t, d.TotalFlights, 120)
		assert.GreaterOrEqual(t, d.DelayedFlights, 5)
		assert.LessOrEqual(t, d.DelayedFlights, d.TotalFlights)
		assert.LessOrEqual(t, d.DelayedFlights, d.TotalFlights/2)
		assert.GreaterOrEqual(t, d.AvgDelayMin, 10)
		assert.LessOrEqual(t, d.AvgDelayMin, 60)
		assert.GreaterOrEqual(t, d.MedianDelayMin, 5)
		assert.LessOrEqual(t, d.MedianDelayMin, 45)
		assert.GreaterOrEqual(t, d.CanceledFlights, 0)
		assert.LessOrEqual(t, d.CanceledFlights, 10)
	}
}

func TestIATACodes(t *testing.T) {
	records := []normalize.Record{
		{"iata": "DEL"},
		{"iata": "DEL"},
		{"codes": map[string]any{"iata": "BOM"}},
		{"iata": "", "codes": map[string]any{"iata": "DXB"}},
		{"iataCode": "LHR"},
		{"codes": "JFK"},
	}
	codes, err := IATACodes(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"BOM", "DEL", "DXB"}, codes)

	_, err = IATACodes([]normalize.Record{{"iata": "DEL"}, {"iata": "DEL"}})
	assert.ErrorIs(t, err, ErrTooFewAirports)
}

func TestGenerateWritesLoadableFiles(t *testing.T) {
	dir := t.TempDir()
	airports := `[{"iata":"DEL","icao":"VIDP"},{"codes":{"iata":"BOM"},"icao":"VABB"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, AirportsFile), []byte(airports), 0o644))

	sum, err := Generate(dir, Options{Seed: 9, Now: testNow})
	require.NoError(t, err)
	assert.Equal(t, Summary{Airports: 2, Aircraft: 25, Flights: 400, Delays: 10}, sum)

	check := func(name string, fn func(normalize.Record) ([]any, error), want int) {
		f, err := os.Open(filepath.Join(dir, name))
		require.NoError(t, err)
		defer f.Close()
		records, err := normalize.DecodeArray(f)
		require.NoError(t, err)
		require.Len(t, records, want)
		for i, r := range records {
			_, err := fn(r)
			require.NoError(t, err, "%s record %d", name, i)
		}
	}
	check(AircraftFile, normalize.Aircraft, 25)
	check(FlightsFile, normalize.Flight, 400)
	check(DelaysFile, normalize.DelayStat, 10)
}

func TestGenerateTooFewAirports(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AirportsFile), []byte(`[{"iata":"DEL"}]`), 0o644))

	_, err := Generate(dir, Options{Seed: 1})
	assert.ErrorIs(t, err, ErrTooFewAirports)
	assert.NoFileExists(t, filepath.Join(dir, FlightsFile))
}
