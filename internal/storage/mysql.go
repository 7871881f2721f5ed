package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// TRUNCATE commits implicitly in MySQL, so tables are cleared with DELETE to
// keep the clear inside the reload transaction.
var mysqlDialect = sqlDialect{
	name:     DriverMySQL,
	suspend:  "SET FOREIGN_KEY_CHECKS = 0",
	restore:  "SET FOREIGN_KEY_CHECKS = 1",
	truncate: "DELETE FROM %s",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS airport (
			icao_code   VARCHAR(8) NULL,
			iata_code   VARCHAR(8) NULL,
			name        VARCHAR(255) NULL,
			city        VARCHAR(128) NULL,
			country     VARCHAR(128) NULL,
			continent   VARCHAR(64) NULL,
			latitude    DOUBLE NULL,
			longitude   DOUBLE NULL,
			timezone    VARCHAR(64) NULL,
			UNIQUE KEY uq_airport_icao (icao_code),
			KEY idx_airport_iata (iata_code)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS aircraft (
			registration    VARCHAR(16) NOT NULL PRIMARY KEY,
			model           VARCHAR(64) NOT NULL,
			manufacturer    VARCHAR(64) NOT NULL,
			icao_type_code  VARCHAR(8) NOT NULL,
			owner           VARCHAR(128) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS flights (
			flight_id               VARCHAR(32) NOT NULL PRIMARY KEY,
			flight_number           VARCHAR(16) NOT NULL,
			aircraft_registration   VARCHAR(16) NOT NULL,
			origin_iata             VARCHAR(8) NOT NULL,
			destination_iata        VARCHAR(8) NOT NULL,
			scheduled_departure     DATETIME NULL,
			actual_departure        DATETIME NULL,
			scheduled_arrival       DATETIME NULL,
			actual_arrival          DATETIME NULL,
			status                  VARCHAR(16) NOT NULL,
			airline_code            VARCHAR(8) NOT NULL,
			KEY idx_flights_scheduled (scheduled_departure),
			KEY idx_flights_airline (airline_code)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

		`CREATE TABLE IF NOT EXISTS airport_delays (
			airport_iata        VARCHAR(8) NOT NULL,
			delay_date          DATE NOT NULL,
			total_flights       INT NOT NULL,
			delayed_flights     INT NOT NULL,
			avg_delay_min       DOUBLE NOT NULL,
			median_delay_min    DOUBLE NOT NULL,
			canceled_flights    INT NOT NULL,
			UNIQUE KEY uq_airport_delays_day (airport_iata, delay_date)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
}

// OpenMySQL opens a connection pool to MySQL.
func OpenMySQL(ctx context.Context, cfg Config) (*SQLDB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Loc = time.UTC

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("parse mysql config: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// Test the connection.
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	return &SQLDB{db: db, dialect: mysqlDialect}, nil
}
