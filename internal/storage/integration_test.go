//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDBName     = "flight_explorer"
	testDBUser     = "flight"
	testDBPassword = "flight"
)

func startMySQL(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx,
		"mysql:8.0",
		tcmysql.WithDatabase(testDBName),
		tcmysql.WithUsername(testDBUser),
		tcmysql.WithPassword(testDBPassword),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	return Config{
		Driver: DriverMySQL, Host: host, Port: port.Int(),
		Database: testDBName, User: testDBUser, Password: testDBPassword,
	}
}

func startPostgres(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx,
		"postgres:17-alpine",
		tcpostgres.WithDatabase(testDBName),
		tcpostgres.WithUsername(testDBUser),
		tcpostgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return Config{
		Driver: DriverPostgres, Host: host, Port: port.Int(),
		Database: testDBName, User: testDBUser, Password: testDBPassword,
	}
}

func TestStoreBackends(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	backends := []struct {
		name  string
		start func(*testing.T) Config
	}{
		{"mysql", startMySQL},
		{"postgres", startPostgres},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(ctx, b.start(t))
			require.NoError(t, err)
			defer store.Close()

			require.NoError(t, store.CreateSchema(ctx))
			require.NoError(t, store.CreateSchema(ctx))
			seed(t, store)

			// Clearing inside a transaction that is rolled back keeps every row.
			tx, err := store.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.SuspendConstraints(ctx))
			for _, table := range []string{"flights", "aircraft", "airport_delays", "airport"} {
				require.NoError(t, tx.Truncate(ctx, table))
			}
			require.NoError(t, tx.RestoreConstraints(ctx))
			require.NoError(t, tx.Rollback(ctx))

			d := NewDashboard(store)
			s, err := d.Summary(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), s.Airports)
			assert.Equal(t, int64(3), s.Flights)

			flights, err := d.RecentFlights(ctx, FlightFilter{Status: "Cancelled"})
			require.NoError(t, err)
			require.Len(t, flights, 1)
			assert.Nil(t, flights[0].ActualDeparture)
			require.NotNil(t, flights[0].ScheduledDeparture)
			assert.True(t, flights[0].ScheduledDeparture.Equal(ts("2024-05-02T08:00:00Z")))

			pct, err := d.DelayPercentages(ctx)
			require.NoError(t, err)
			assert.Equal(t, []DelayPercentage{
				{AirportIATA: "BOM", Percentage: 50},
				{AirportIATA: "DEL", Percentage: 20},
			}, pct)
		})
	}
}
