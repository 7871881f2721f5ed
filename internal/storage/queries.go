package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"flight_explorer/internal/normalize"
)

// Limits for RecentFlights.
const (
	DefaultFlightLimit = 20
	MaxFlightLimit     = 100
)

// Summary holds the dashboard headline numbers.
type Summary struct {
	Airports    int64    `json:"total_airports"`
	Flights     int64    `json:"total_flights"`
	AvgDelayMin *float64 `json:"avg_delay_min"` // nil when there are no delay rows
}

// FlightRow is one flight as listed by the dashboard.
type FlightRow struct {
	FlightID           string     `json:"flight_id"`
	FlightNumber       string     `json:"flight_number"`
	AircraftReg        string     `json:"aircraft_registration"`
	Origin             string     `json:"origin_iata"`
	Destination        string     `json:"destination_iata"`
	ScheduledDeparture *time.Time `json:"scheduled_departure"`
	ActualDeparture    *time.Time `json:"actual_departure"`
	ScheduledArrival   *time.Time `json:"scheduled_arrival"`
	ActualArrival      *time.Time `json:"actual_arrival"`
	Status             string     `json:"status"`
	AirlineCode        string     `json:"airline_code"`
}

// FlightFilter narrows RecentFlights. Empty fields or "All" match everything.
type FlightFilter struct {
	Airline string
	Status  string
	Limit   int
}

// DelayPercentage is the share of delayed flights at one airport.
type DelayPercentage struct {
	AirportIATA string  `json:"airport_iata"`
	Percentage  float64 `json:"delay_percentage"`
}

// Dashboard runs the read-only aggregate queries behind the dashboard API.
type Dashboard struct {
	q Querier
}

// NewDashboard creates a Dashboard over any store.
func NewDashboard(q Querier) *Dashboard {
	return &Dashboard{q: q}
}

// Summary returns airport and flight counts and the mean delay.
func (d *Dashboard) Summary(ctx context.Context) (*Summary, error) {
	rows, err := d.q.Query(ctx, `
		SELECT
			(SELECT COUNT(*) FROM airport),
			(SELECT COUNT(*) FROM flights),
			(SELECT AVG(avg_delay_min) FROM airport_delays)`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var s Summary
	var avg sql.NullFloat64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query summary: %w", err)
		}
		return &s, nil
	}
	if err := rows.Scan(&s.Airports, &s.Flights, &avg); err != nil {
		return nil, fmt.Errorf("scan summary: %w", err)
	}
	if avg.Valid {
		v := round2(avg.Float64)
		s.AvgDelayMin = &v
	}
	return &s, rows.Err()
}

// Airlines returns the distinct airline codes, sorted.
func (d *Dashboard) Airlines(ctx context.Context) ([]string, error) {
	rows, err := d.q.Query(ctx, `SELECT DISTINCT airline_code FROM flights ORDER BY airline_code`)
	if err != nil {
		return nil, fmt.Errorf("query airlines: %w", err)
	}
	defer rows.Close()

	airlines := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan airline: %w", err)
		}
		airlines = append(airlines, code)
	}
	return airlines, rows.Err()
}

// ClampLimit applies the default and maximum RecentFlights limits.
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultFlightLimit
	case n > MaxFlightLimit:
		return MaxFlightLimit
	default:
		return n
	}
}

// RecentFlights returns flights ordered by scheduled departure, newest first.
func (d *Dashboard) RecentFlights(ctx context.Context, f FlightFilter) ([]FlightRow, error) {
	var (
		conds []string
		args  []any
	)
	if f.Airline != "" && f.Airline != "All" {
		conds = append(conds, "airline_code = ?")
		args = append(args, f.Airline)
	}
	if f.Status != "" && f.Status != "All" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}

	query := `SELECT flight_id, flight_number, aircraft_registration, origin_iata, destination_iata,
		scheduled_departure, actual_departure, scheduled_arrival, actual_arrival, status, airline_code
		FROM flights`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY scheduled_departure DESC, flight_id LIMIT %d", ClampLimit(f.Limit))

	rows, err := d.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	flights := []FlightRow{}
	for rows.Next() {
		var (
			fr         FlightRow
			timestamps [4]any
		)
		err := rows.Scan(&fr.FlightID, &fr.FlightNumber, &fr.AircraftReg, &fr.Origin, &fr.Destination,
			&timestamps[0], &timestamps[1], &timestamps[2], &timestamps[3], &fr.Status, &fr.AirlineCode)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		targets := []**time.Time{&fr.ScheduledDeparture, &fr.ActualDeparture, &fr.ScheduledArrival, &fr.ActualArrival}
		for i, v := range timestamps {
			if *targets[i], err = columnTime(v); err != nil {
				return nil, fmt.Errorf("flight %s: %w", fr.FlightID, err)
			}
		}
		flights = append(flights, fr)
	}
	return flights, rows.Err()
}

// DelayPercentages returns SUM(delayed)/SUM(total)*100 per airport, highest
// first. Airports with no flights are left out.
func (d *Dashboard) DelayPercentages(ctx context.Context) ([]DelayPercentage, error) {
	rows, err := d.q.Query(ctx, `
		SELECT airport_iata, SUM(delayed_flights), SUM(total_flights)
		FROM airport_delays
		GROUP BY airport_iata`)
	if err != nil {
		return nil, fmt.Errorf("query delays: %w", err)
	}
	defer rows.Close()

	out := []DelayPercentage{}
	for rows.Next() {
		var (
			iata           string
			delayed, total int64
		)
		if err := rows.Scan(&iata, &delayed, &total); err != nil {
			return nil, fmt.Errorf("scan delays: %w", err)
		}
		if total == 0 {
			continue
		}
		out = append(out, DelayPercentage{
			AirportIATA: iata,
			Percentage:  round2(float64(delayed) * 100 / float64(total)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].AirportIATA < out[j].AirportIATA
	})
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// columnTime converts a scanned timestamp column to a time. Drivers return
// time.Time, or text for SQLite columns they do not parse.
func columnTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case []byte:
		return normalize.ParseTimestamp(string(t))
	case string:
		return normalize.ParseTimestamp(t)
	default:
		return nil, fmt.Errorf("unexpected timestamp column type %T", v)
	}
}
