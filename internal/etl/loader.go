package etl

import (
	"context"
	"fmt"
	"os"

	"flight_explorer/internal/normalize"
)

// LoadTable reads the JSON array at path, normalizes every record and
// inserts it through ins. It returns the number of rows inserted. The first
// failing record stops the load.
func LoadTable(ctx context.Context, ins Inserter, t Table, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &SourceError{Path: path, Err: err}
	}
	defer f.Close()

	records, err := normalize.DecodeArray(f)
	if err != nil {
		return 0, &SourceError{Path: path, Err: err}
	}

	query := t.InsertSQL()
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		row, err := t.Normalize(rec)
		if err != nil {
			return i, fmt.Errorf("%s record %d: %w", t.Entity, i, err)
		}
		if err := ins.Insert(ctx, query, row...); err != nil {
			return i, &StoreError{Op: "insert", Table: t.Name, Err: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return len(records), nil
}
