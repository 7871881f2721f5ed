package normalize

import (
	"encoding/json"
	"math"
)

// Column orders of the tables fed by the trusted generator files.
var (
	AircraftColumns = []string{
		"registration", "model", "manufacturer", "icao_type_code", "owner",
	}
	FlightColumns = []string{
		"flight_id", "flight_number", "aircraft_registration",
		"origin_iata", "destination_iata",
		"scheduled_departure", "actual_departure",
		"scheduled_arrival", "actual_arrival",
		"status", "airline_code",
	}
	DelayStatColumns = []string{
		"airport_iata", "delay_date", "total_flights",
		"delayed_flights", "avg_delay_min",
		"median_delay_min", "canceled_flights",
	}
)

// Flight statuses emitted by the provider and the synthetic generator.
const (
	StatusOnTime    = "On Time"
	StatusDelayed   = "Delayed"
	StatusCancelled = "Cancelled"
)

// Statuses lists the known flight statuses in display order.
var Statuses = []string{StatusOnTime, StatusDelayed, StatusCancelled}

// Aircraft normalizes one aircraft object. All fields are required.
func Aircraft(r Record) ([]any, error) {
	return requiredScalars(r, "aircraft", AircraftColumns)
}

// Flight normalizes one flight object. All keys are required; the four
// timestamp values may be null.
func Flight(r Record) ([]any, error) {
	const entity = "flight"

	ids, err := requiredScalars(r, entity, FlightColumns[:5])
	if err != nil {
		return nil, err
	}

	row := make([]any, 0, len(FlightColumns))
	row = append(row, ids...)
	for _, field := range FlightColumns[5:9] {
		v, ok := r[field]
		if !ok {
			return nil, &MissingFieldError{Entity: entity, Field: field}
		}
		ts, err := ParseTimestamp(v)
		if err != nil {
			return nil, &MalformedTimestampError{Field: entity + "." + field, Value: v}
		}
		row = append(row, timeValue(ts))
	}

	tail, err := requiredScalars(r, entity, FlightColumns[9:])
	if err != nil {
		return nil, err
	}
	return append(row, tail...), nil
}

// DelayStat normalizes one per-airport, per-day delay object.
func DelayStat(r Record) ([]any, error) {
	const entity = "airport_delay"

	keys, err := requiredScalars(r, entity, DelayStatColumns[:2])
	if err != nil {
		return nil, err
	}
	total, err := requiredCount(r, entity, "total_flights")
	if err != nil {
		return nil, err
	}
	delayed, err := requiredCount(r, entity, "delayed_flights")
	if err != nil {
		return nil, err
	}
	avg, err := requiredNumber(r, entity, "avg_delay_min")
	if err != nil {
		return nil, err
	}
	median, err := requiredNumber(r, entity, "median_delay_min")
	if err != nil {
		return nil, err
	}
	canceled, err := requiredCount(r, entity, "canceled_flights")
	if err != nil {
		return nil, err
	}

	return []any{keys[0], keys[1], total, delayed, avg, median, canceled}, nil
}

func required(r Record, entity, field string) (any, error) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, &MissingFieldError{Entity: entity, Field: field}
	}
	return v, nil
}

func requiredScalars(r Record, entity string, fields []string) ([]any, error) {
	out := make([]any, 0, len(fields))
	for _, field := range fields {
		v, err := required(r, entity, field)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case map[string]any, []any:
			return nil, &InvalidFieldError{Entity: entity, Field: field, Value: v, Want: "scalar"}
		}
		out = append(out, scalar(v))
	}
	return out, nil
}

// requiredCount reads a non-negative integral number.
func requiredCount(r Record, entity, field string) (int64, error) {
	v, err := required(r, entity, field)
	if err != nil {
		return 0, err
	}
	invalid := &InvalidFieldError{Entity: entity, Field: field, Value: v, Want: "non-negative integer"}

	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			if i < 0 {
				return 0, invalid
			}
			return i, nil
		}
		if f, err := t.Float64(); err == nil {
			if n, ok := countFromFloat(f); ok {
				return n, nil
			}
		}
	case float64:
		if n, ok := countFromFloat(t); ok {
			return n, nil
		}
	}
	return 0, invalid
}

// countFromFloat converts an integral float in [0, 2^63) to int64. The range
// check must come first: out-of-range float to int conversion is
// platform-dependent.
func countFromFloat(f float64) (int64, bool) {
	if f < 0 || f >= math.MaxInt64 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func requiredNumber(r Record, entity, field string) (float64, error) {
	v, err := required(r, entity, field)
	if err != nil {
		return 0, err
	}
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f, nil
		}
	case float64:
		return t, nil
	}
	return 0, &InvalidFieldError{Entity: entity, Field: field, Value: v, Want: "number"}
}
