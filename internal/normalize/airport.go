package normalize

import "encoding/json"

// AirportColumns is the column order of the airport table.
var AirportColumns = []string{
	"icao_code", "iata_code", "name", "city", "country",
	"continent", "latitude", "longitude", "timezone",
}

// iataPaths is the IATA fallback chain; the first non-empty string wins.
var iataPaths = []string{
	"iata",
	"iataCode",
	"codes.iata",
}

// Airport normalizes one provider airport object. Every airport field is
// optional: the provider's airport payloads vary between endpoints, so absent
// values become NULL instead of failing the record.
func Airport(r Record) ([]any, error) {
	var iata any
	if s, ok := firstString(r, iataPaths...); ok {
		iata = s
	}

	lat, err := coordinate(r, "location.lat")
	if err != nil {
		return nil, err
	}
	lon, err := coordinate(r, "location.lon")
	if err != nil {
		return nil, err
	}

	return []any{
		scalar(r["icao"]),
		iata,
		scalar(r["name"]),
		nameOrValue(r, "city"),
		nameOrValue(r, "country"),
		nameOrValue(r, "continent"),
		lat,
		lon,
		nameOrValue(r, "timezone"),
	}, nil
}

// coordinate reads an optional numeric value at a dotted path.
func coordinate(r Record, path string) (any, error) {
	v, ok := deepGet(r, path)
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, &InvalidFieldError{Entity: "airport", Field: path, Value: v, Want: "number"}
		}
		return f, nil
	case float64:
		return t, nil
	default:
		return nil, &InvalidFieldError{Entity: "airport", Field: path, Value: v, Want: "number"}
	}
}
