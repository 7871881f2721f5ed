package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ClickHouseDB wraps a ClickHouse connection used as an analytics mirror of
// the flights and airport_delays tables.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	// Test the connection.
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the ClickHouse mirror tables.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS flights (
			flight_id               String,
			flight_number           LowCardinality(String),
			aircraft_registration   LowCardinality(String),
			origin_iata             LowCardinality(String),
			destination_iata        LowCardinality(String),
			scheduled_departure     Nullable(DateTime64(3)),
			actual_departure        Nullable(DateTime64(3)),
			scheduled_arrival       Nullable(DateTime64(3)),
			actual_arrival          Nullable(DateTime64(3)),
			status                  LowCardinality(String),
			airline_code            LowCardinality(String),
			mirrored_at             DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		ORDER BY (airline_code, flight_id)`,

		`CREATE TABLE IF NOT EXISTS airport_delays (
			airport_iata        LowCardinality(String),
			delay_date          Date,
			total_flights       Int64,
			delayed_flights     Int64,
			avg_delay_min       Float64,
			median_delay_min    Float64,
			canceled_flights    Int64,
			mirrored_at         DateTime64(3) DEFAULT now64(3)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(delay_date)
		ORDER BY (airport_iata, delay_date)`,
	}

	for _, q := range queries {
		if err := d.conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// MirrorStats counts the rows copied by Mirror.
type MirrorStats struct {
	Flights int `json:"flights"`
	Delays  int `json:"airport_delays"`
}

// Mirror replaces the ClickHouse copies of flights and airport_delays with
// the current contents of src.
func (d *ClickHouseDB) Mirror(ctx context.Context, src Querier) (MirrorStats, error) {
	var stats MirrorStats
	var err error

	if stats.Flights, err = d.mirrorFlights(ctx, src); err != nil {
		return stats, err
	}
	if stats.Delays, err = d.mirrorDelays(ctx, src); err != nil {
		return stats, err
	}
	return stats, nil
}

func (d *ClickHouseDB) mirrorFlights(ctx context.Context, src Querier) (int, error) {
	rows, err := src.Query(ctx, `SELECT flight_id, flight_number, aircraft_registration, origin_iata, destination_iata,
		scheduled_departure, actual_departure, scheduled_arrival, actual_arrival, status, airline_code
		FROM flights ORDER BY flight_id`)
	if err != nil {
		return 0, fmt.Errorf("read flights: %w", err)
	}
	defer rows.Close()

	if err := d.conn.Exec(ctx, "TRUNCATE TABLE IF EXISTS flights"); err != nil {
		return 0, fmt.Errorf("truncate flights: %w", err)
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO flights (flight_id, flight_number, aircraft_registration, origin_iata, destination_iata,
			scheduled_departure, actual_departure, scheduled_arrival, actual_arrival, status, airline_code)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	n := 0
	for rows.Next() {
		var (
			id, number, reg, origin, dest, status, airline string
			raw                                            [4]any
		)
		if err := rows.Scan(&id, &number, &reg, &origin, &dest,
			&raw[0], &raw[1], &raw[2], &raw[3], &status, &airline); err != nil {
			return 0, fmt.Errorf("scan flight: %w", err)
		}

		var ts [4]*time.Time
		for i, v := range raw {
			if ts[i], err = columnTime(v); err != nil {
				return 0, fmt.Errorf("flight %s: %w", id, err)
			}
		}

		if err := batch.Append(id, number, reg, origin, dest, ts[0], ts[1], ts[2], ts[3], status, airline); err != nil {
			return 0, fmt.Errorf("append flight: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read flights: %w", err)
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}
	return n, nil
}

func (d *ClickHouseDB) mirrorDelays(ctx context.Context, src Querier) (int, error) {
	rows, err := src.Query(ctx, `SELECT airport_iata, delay_date, total_flights, delayed_flights,
		avg_delay_min, median_delay_min, canceled_flights
		FROM airport_delays ORDER BY airport_iata, delay_date`)
	if err != nil {
		return 0, fmt.Errorf("read airport_delays: %w", err)
	}
	defer rows.Close()

	if err := d.conn.Exec(ctx, "TRUNCATE TABLE IF EXISTS airport_delays"); err != nil {
		return 0, fmt.Errorf("truncate airport_delays: %w", err)
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO airport_delays (airport_iata, delay_date, total_flights, delayed_flights,
			avg_delay_min, median_delay_min, canceled_flights)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	n := 0
	for rows.Next() {
		var (
			iata                     string
			rawDate                  any
			total, delayed, canceled int64
			avg, median              float64
		)
		if err := rows.Scan(&iata, &rawDate, &total, &delayed, &avg, &median, &canceled); err != nil {
			return 0, fmt.Errorf("scan airport_delays: %w", err)
		}
		day, err := columnTime(rawDate)
		if err != nil || day == nil {
			return 0, fmt.Errorf("airport_delays %s: bad delay_date %v", iata, rawDate)
		}

		if err := batch.Append(iata, *day, total, delayed, avg, median, canceled); err != nil {
			return 0, fmt.Errorf("append airport_delays: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("read airport_delays: %w", err)
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}
	return n, nil
}
