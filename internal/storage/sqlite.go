package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var sqliteDialect = sqlDialect{
	name:     DriverSQLite,
	suspend:  "PRAGMA defer_foreign_keys = ON",
	restore:  "PRAGMA defer_foreign_keys = OFF",
	truncate: "DELETE FROM %s",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS airport (
			icao_code   TEXT UNIQUE,
			iata_code   TEXT,
			name        TEXT,
			city        TEXT,
			country     TEXT,
			continent   TEXT,
			latitude    REAL,
			longitude   REAL,
			timezone    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_airport_iata ON airport(iata_code)`,

		`CREATE TABLE IF NOT EXISTS aircraft (
			registration    TEXT PRIMARY KEY,
			model           TEXT NOT NULL,
			manufacturer    TEXT NOT NULL,
			icao_type_code  TEXT NOT NULL,
			owner           TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS flights (
			flight_id               TEXT PRIMARY KEY,
			flight_number           TEXT NOT NULL,
			aircraft_registration   TEXT NOT NULL,
			origin_iata             TEXT NOT NULL,
			destination_iata        TEXT NOT NULL,
			scheduled_departure     DATETIME,
			actual_departure        DATETIME,
			scheduled_arrival       DATETIME,
			actual_arrival          DATETIME,
			status                  TEXT NOT NULL,
			airline_code            TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_scheduled ON flights(scheduled_departure)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_airline ON flights(airline_code)`,

		`CREATE TABLE IF NOT EXISTS airport_delays (
			airport_iata        TEXT NOT NULL,
			delay_date          DATE NOT NULL,
			total_flights       INTEGER NOT NULL,
			delayed_flights     INTEGER NOT NULL,
			avg_delay_min       REAL NOT NULL,
			median_delay_min    REAL NOT NULL,
			canceled_flights    INTEGER NOT NULL,
			UNIQUE(airport_iata, delay_date)
		)`,
	},
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(ctx context.Context, path string) (*SQLDB, error) {
	// _time_format=sqlite writes timestamps as ISO-8601 text with an offset.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps PRAGMAs and the reload transaction on the
	// same session.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent access.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	return &SQLDB{db: db, dialect: sqliteDialect}, nil
}
