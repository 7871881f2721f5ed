package storage

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight_explorer/internal/etl"
)

// setupTestPostgres creates a test database connection.
// Returns nil if no PostgreSQL connection is available.
func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()

	// Check for environment variable or use defaults.
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	port := 5432
	if p, err := strconv.Atoi(os.Getenv("POSTGRES_PORT")); err == nil {
		port = p
	}
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "flight"
	}
	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "flight"
	}
	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		database = "flight_explorer_test"
	}

	ctx := context.Background()
	pg, err := OpenPostgres(ctx, Config{
		Driver:   DriverPostgres,
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		Database: database,
	})
	if err != nil {
		return nil
	}

	// Ensure schema exists.
	if err := pg.CreateSchema(ctx); err != nil {
		_ = pg.Close()
		return nil
	}

	return pg
}

func TestPostgresReloadTransaction(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("No PostgreSQL connection available")
	}
	defer pg.Close()

	ctx := context.Background()
	wipe := func() {
		tx, err := pg.Begin(ctx)
		require.NoError(t, err)
		for _, table := range etl.ClearOrder {
			require.NoError(t, tx.Truncate(ctx, table))
		}
		require.NoError(t, tx.Commit(ctx))
	}
	wipe()
	defer wipe()

	seed(t, pg)
	assert.Equal(t, 3, countRows(t, pg, "flights"))

	// A truncate inside a rolled back transaction leaves the rows in place.
	tx, err := pg.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SuspendConstraints(ctx))
	require.NoError(t, tx.Truncate(ctx, "flights"))
	require.NoError(t, tx.RestoreConstraints(ctx))
	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, 3, countRows(t, pg, "flights"))

	got, err := NewDashboard(pg).DelayPercentages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DelayPercentage{
		{AirportIATA: "BOM", Percentage: 50},
		{AirportIATA: "DEL", Percentage: 20},
	}, got)
}
