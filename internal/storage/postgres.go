package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flight_explorer/internal/etl"
)

// PostgresDB wraps a PostgreSQL connection pool.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL.
func OpenPostgres(ctx context.Context, cfg Config) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	// Test the connection.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresDB{pool: pool}, nil
}

// Dialect returns DriverPostgres.
func (d *PostgresDB) Dialect() string {
	return DriverPostgres
}

// Close closes the PostgreSQL connection pool.
func (d *PostgresDB) Close() error {
	d.pool.Close()
	return nil
}

// CreateSchema creates the PostgreSQL tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS airport (
		icao_code   TEXT UNIQUE,
		iata_code   TEXT,
		name        TEXT,
		city        TEXT,
		country     TEXT,
		continent   TEXT,
		latitude    DOUBLE PRECISION,
		longitude   DOUBLE PRECISION,
		timezone    TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_airport_iata ON airport(iata_code);

	CREATE TABLE IF NOT EXISTS aircraft (
		registration    TEXT PRIMARY KEY,
		model           TEXT NOT NULL,
		manufacturer    TEXT NOT NULL,
		icao_type_code  TEXT NOT NULL,
		owner           TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS flights (
		flight_id               TEXT PRIMARY KEY,
		flight_number           TEXT NOT NULL,
		aircraft_registration   TEXT NOT NULL,
		origin_iata             TEXT NOT NULL,
		destination_iata        TEXT NOT NULL,
		scheduled_departure     TIMESTAMPTZ,
		actual_departure        TIMESTAMPTZ,
		scheduled_arrival       TIMESTAMPTZ,
		actual_arrival          TIMESTAMPTZ,
		status                  TEXT NOT NULL,
		airline_code            TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_flights_scheduled ON flights(scheduled_departure);
	CREATE INDEX IF NOT EXISTS idx_flights_airline ON flights(airline_code);

	CREATE TABLE IF NOT EXISTS airport_delays (
		airport_iata        TEXT NOT NULL,
		delay_date          DATE NOT NULL,
		total_flights       INTEGER NOT NULL,
		delayed_flights     INTEGER NOT NULL,
		avg_delay_min       DOUBLE PRECISION NOT NULL,
		median_delay_min    DOUBLE PRECISION NOT NULL,
		canceled_flights    INTEGER NOT NULL,
		UNIQUE(airport_iata, delay_date)
	);
	`

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Query runs a read-only query written with '?' placeholders.
func (d *PostgresDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return d.pool.Query(ctx, rebind(query), args...)
}

// Begin starts a reload transaction.
func (d *PostgresDB) Begin(ctx context.Context) (etl.Tx, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx, rebound: make(map[string]string)}, nil
}

// pgTx clears with TRUNCATE, which PostgreSQL runs transactionally.
type pgTx struct {
	tx      pgx.Tx
	rebound map[string]string
}

func (t *pgTx) Insert(ctx context.Context, query string, args ...any) error {
	q, ok := t.rebound[query]
	if !ok {
		q = rebind(query)
		t.rebound[query] = q
	}
	_, err := t.tx.Exec(ctx, q, args...)
	return err
}

func (t *pgTx) SuspendConstraints(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED")
	return err
}

func (t *pgTx) RestoreConstraints(ctx context.Context) error {
	_, err := t.tx.Exec(ctx, "SET CONSTRAINTS ALL IMMEDIATE")
	return err
}

func (t *pgTx) Truncate(ctx context.Context, table string) error {
	_, err := t.tx.Exec(ctx, "TRUNCATE TABLE "+pgx.Identifier{table}.Sanitize())
	return err
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// rebind rewrites '?' placeholders to PostgreSQL's $1, $2, ... form. Question
// marks inside single-quoted literals are left alone.
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
