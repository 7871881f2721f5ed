// Package synth generates dummy aircraft, flights and airport delay
// statistics for the airports in airports.json, in the exact JSON shapes the
// reload pipeline reads.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"time"

	"flight_explorer/internal/normalize"
)

// ErrTooFewAirports is returned when airports.json yields fewer than two
// distinct IATA codes.
var ErrTooFewAirports = errors.New("not enough airport IATA codes")

const timestampLayout = "2006-01-02T15:04:05"

// maxAircraft is the number of distinct VT-#### registrations.
const maxAircraft = 9000

var (
	models = map[string][]string{
		"Airbus": {"A320", "A321", "A330"},
		"Boeing": {"737-800", "737 MAX", "787"},
	}
	manufacturers = []string{"Airbus", "Boeing"}
	owners        = []string{"IndiGo", "Air India", "Emirates", "Lufthansa"}
	airlines      = []string{"AI", "6E", "EK", "LH", "AF"}
)

// Aircraft is one generated aircraft.
type Aircraft struct {
	Registration string `json:"registration"`
	Model        string `json:"model"`
	Manufacturer string `json:"manufacturer"`
	ICAOTypeCode string `json:"icao_type_code"`
	Owner        string `json:"owner"`
}

// Flight is one generated flight. Cancelled flights have null actuals.
type Flight struct {
	FlightID             string  `json:"flight_id"`
	FlightNumber         string  `json:"flight_number"`
	AircraftRegistration string  `json:"aircraft_registration"`
	OriginIATA           string  `json:"origin_iata"`
	DestinationIATA      string  `json:"destination_iata"`
	ScheduledDeparture   string  `json:"scheduled_departure"`
	ActualDeparture      *string `json:"actual_departure"`
	ScheduledArrival     string  `json:"scheduled_arrival"`
	ActualArrival        *string `json:"actual_arrival"`
	Status               string  `json:"status"`
	AirlineCode          string  `json:"airline_code"`
}

// DelayStat is one airport's generated delay summary for one day.
type DelayStat struct {
	AirportIATA     string `json:"airport_iata"`
	DelayDate       string `json:"delay_date"`
	TotalFlights    int    `json:"total_flights"`
	DelayedFlights  int    `json:"delayed_flights"`
	AvgDelayMin     int    `json:"avg_delay_min"`
	MedianDelayMin  int    `json:"median_delay_min"`
	CanceledFlights int    `json:"canceled_flights"`
}

// Options sizes the generated data set.
type Options struct {
	Seed     uint64
	Now      time.Time // Defaults to time.Now().UTC().
	Aircraft int       // Defaults to 25, at most 9000.
	Flights  int       // Defaults to 400.
	Days     int       // Defaults to 5.
}

func (o Options) withDefaults() Options {
	if o.Now.IsZero() {
		o.Now = time.Now().UTC()
	}
	if o.Aircraft <= 0 {
		o.Aircraft = 25
	}
	if o.Aircraft > maxAircraft {
		o.Aircraft = maxAircraft
	}
	if o.Flights <= 0 {
		o.Flights = 400
	}
	if o.Days <= 0 {
		o.Days = 5
	}
	return o
}

// Generator produces deterministic data for a seed and clock.
type Generator struct {
	rng  *rand.Rand
	opts Options
}

// NewGenerator creates a Generator.
func NewGenerator(opts Options) *Generator {
	opts = opts.withDefaults()
	return &Generator{
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		opts: opts,
	}
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func pick[T any](g *Generator, from []T) T {
	return from[g.rng.IntN(len(from))]
}

// Aircraft generates aircraft with unique VT-#### registrations.
func (g *Generator) Aircraft() []Aircraft {
	seen := make(map[string]bool, g.opts.Aircraft)
	out := make([]Aircraft, 0, g.opts.Aircraft)
	for len(out) < g.opts.Aircraft {
		reg := fmt.Sprintf("VT-%d", g.between(1000, 9999))
		if seen[reg] {
			continue
		}
		seen[reg] = true

		manufacturer := pick(g, manufacturers)
		model := pick(g, models[manufacturer])
		out = append(out, Aircraft{
			Registration: reg,
			Model:        model,
			Manufacturer: manufacturer,
			ICAOTypeCode: strings.ReplaceAll(model, "-", ""),
			Owner:        pick(g, owners),
		})
	}
	return out
}

// Flights generates flights between distinct airports, scheduled within the
// last Days days. Status weights are 65% on time, 25% delayed and 10%
// cancelled.
func (g *Generator) Flights(airports []string, aircraft []Aircraft) []Flight {
	end := g.opts.Now.Truncate(time.Second)
	span := int(time.Duration(g.opts.Days) * 24 * time.Hour / time.Second)

	out := make([]Flight, 0, g.opts.Flights)
	for i := range g.opts.Flights {
		oi := g.rng.IntN(len(airports))
		di := g.rng.IntN(len(airports) - 1)
		if di >= oi {
			di++
		}

		schedDep := end.Add(-time.Duration(g.between(0, span)) * time.Second)
		schedArr := schedDep.Add(time.Duration(g.between(1, 10)) * time.Hour)

		status := normalize.StatusOnTime
		switch n := g.rng.IntN(100); {
		case n >= 90:
			status = normalize.StatusCancelled
		case n >= 65:
			status = normalize.StatusDelayed
		}

		var actDep, actArr *string
		switch status {
		case normalize.StatusOnTime:
			actDep, actArr = stamp(schedDep), stamp(schedArr)
		case normalize.StatusDelayed:
			actDep = stamp(schedDep.Add(time.Duration(g.between(5, 90)) * time.Minute))
			actArr = stamp(schedArr.Add(time.Duration(g.between(5, 90)) * time.Minute))
		}

		airline := pick(g, airlines)
		out = append(out, Flight{
			FlightID:             fmt.Sprintf("FL%05d", i+1),
			FlightNumber:         fmt.Sprintf("%s%d", airline, g.between(100, 9999)),
			AircraftRegistration: pick(g, aircraft).Registration,
			OriginIATA:           airports[oi],
			DestinationIATA:      airports[di],
			ScheduledDeparture:   schedDep.Format(timestampLayout),
			ActualDeparture:      actDep,
			ScheduledArrival:     schedArr.Format(timestampLayout),
			ActualArrival:        actArr,
			Status:               status,
			AirlineCode:          airline,
		})
	}
	return out
}

// Delays generates one delay summary per airport per day, today first.
func (g *Generator) Delays(airports []string) []DelayStat {
	today := g.opts.Now.UTC()
	out := make([]DelayStat, 0, len(airports)*g.opts.Days)
	for _, airport := range airports {
		for d := range g.opts.Days {
			total := g.between(40, 120)
			out = append(out, DelayStat{
				AirportIATA:     airport,
				DelayDate:       today.AddDate(0, 0, -d).Format("2006-01-02"),
				TotalFlights:    total,
				DelayedFlights:  g.between(5, total/2),
				AvgDelayMin:     g.between(10, 60),
				MedianDelayMin:  g.between(5, 45),
				CanceledFlights: g.between(0, 10),
			})
		}
	}
	return out
}

func stamp(t time.Time) *string {
	s := t.Format(timestampLayout)
	return &s
}

// IATACodes collects the distinct IATA codes of raw airport records: "iata"
// when set, else "codes.iata". The result is sorted.
func IATACodes(records []normalize.Record) ([]string, error) {
	seen := make(map[string]bool)
	for _, r := range records {
		code, _ := r["iata"].(string)
		if code == "" {
			if codes, ok := r["codes"].(map[string]any); ok {
				code, _ = codes["iata"].(string)
			}
		}
		if code != "" {
			seen[code] = true
		}
	}

	if len(seen) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrTooFewAirports, len(seen))
	}

	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}

// ReadIATACodes reads airports.json and returns its distinct IATA codes.
func ReadIATACodes(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open airports: %w", err)
	}
	defer f.Close()

	records, err := normalize.DecodeArray(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return IATACodes(records)
}
