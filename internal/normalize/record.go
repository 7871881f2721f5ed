// Package normalize maps raw provider JSON records onto the positional rows
// of the airport, aircraft, flights and airport_delays tables.
//
// Every normalizer returns a []any whose order matches the column list of the
// target table exactly. A nil element is written as SQL NULL.
package normalize

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Record is one decoded JSON object from a provider file.
type Record map[string]any

// DecodeArray decodes a JSON array of objects. Numbers are kept as
// json.Number so integer counts survive without float rounding.
func DecodeArray(r io.Reader) ([]Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	return records, nil
}

// deepGet walks a Record using a dotted path: "a.b.c".
func deepGet(root Record, dotted string) (any, bool) {
	parts := strings.Split(dotted, ".")
	var cur any = map[string]any(root)
	for _, part := range parts {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// firstString returns the first non-empty string found at any of the paths,
// tried in order.
func firstString(root Record, paths ...string) (string, bool) {
	for _, p := range paths {
		if v, ok := deepGet(root, p); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	}
	return "", false
}

// valueShape classifies a field that may arrive either as a plain value or
// as an object carrying a "name".
type valueShape int

const (
	shapeAbsent valueShape = iota // missing key or JSON null
	shapeString
	shapeNamed  // object with a "name" key
	shapeObject // object without a "name" key
	shapeScalar // number or bool
)

func classify(v any, present bool) valueShape {
	if !present || v == nil {
		return shapeAbsent
	}
	switch t := v.(type) {
	case string:
		return shapeString
	case map[string]any:
		if _, ok := t["name"]; ok {
			return shapeNamed
		}
		return shapeObject
	case []any:
		return shapeObject
	default:
		return shapeScalar
	}
}

// nameOrValue resolves a string-or-{"name": ...} field to a column value.
func nameOrValue(r Record, key string) any {
	v, present := r[key]
	switch classify(v, present) {
	case shapeString:
		return v
	case shapeNamed:
		return scalar(v.(map[string]any)["name"])
	case shapeScalar:
		return scalar(v)
	default:
		return nil
	}
}

// scalar converts json.Number into a driver-friendly numeric type and drops
// composite values.
func scalar(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any, []any:
		return nil
	default:
		return v
	}
}
