// Package storage provides the relational stores the flight explorer tables
// live in, the read-only dashboard queries over them and the optional
// ClickHouse analytics mirror.
package storage

import (
	"context"
	"fmt"

	"flight_explorer/internal/etl"
)

// Supported relational drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds relational database connection settings. Path is only used
// by the SQLite driver.
type Config struct {
	Driver   string
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Path     string
}

// Rows is the cursor returned by Query. Both *sql.Rows (wrapped) and
// pgx.Rows satisfy it.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier runs read-only queries. Queries use '?' placeholders.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Store is a relational backend for the reload pipeline and the dashboard.
type Store interface {
	etl.Store
	Querier

	// CreateSchema creates the four tables if they do not exist.
	CreateSchema(ctx context.Context) error
	// Dialect names the backend: one of the Driver constants.
	Dialect() string
	Close() error
}

// Open opens the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return OpenMySQL(ctx, cfg)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
