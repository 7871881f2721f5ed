package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flight_explorer/internal/etl"
	"flight_explorer/internal/storage"
)

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	return root.ExecuteContext(context.Background())
}

func sqliteEnv(t *testing.T) (dataDir, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "raw")
	dbPath = filepath.Join(dir, "flights.db")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	t.Setenv("DB_DRIVER", storage.DriverSQLite)
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("NATS_URL", "")
	t.Setenv("CLICKHOUSE_HOST", "")
	return dataDir, dbPath
}

func TestGenerateThenLoad(t *testing.T) {
	dataDir, dbPath := sqliteEnv(t)
	airports := `[{"iata":"DEL","icao":"VIDP","name":"Indira Gandhi"},{"codes":{"iata":"BOM"},"icao":"VABB"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "airports.json"), []byte(airports), 0o644))

	require.NoError(t, runCLI(t, "generate", "--seed", "11"))
	for _, name := range []string{"aircraft.json", "flights.json", "airport_delays.json"} {
		assert.FileExists(t, filepath.Join(dataDir, name))
	}

	require.NoError(t, runCLI(t, "load", "--create-schema"))

	store, err := storage.OpenSQLite(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()

	summary, err := storage.NewDashboard(store).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Airports)
	assert.Equal(t, int64(400), summary.Flights)
}

func TestLoadMissingInputFails(t *testing.T) {
	sqliteEnv(t)
	assert.Error(t, runCLI(t, "load", "--create-schema"))
}

func TestDataDirFlagOverridesEnv(t *testing.T) {
	sqliteEnv(t)
	other := t.TempDir()

	a := &app{}
	root := newRootCmd(a)
	root.SetArgs([]string{"--env-file", "", "--data-dir", other, "schema"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, other, a.cfg.DataDir)
}

func TestUnknownDriverFails(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("DB_DRIVER", "oracle")
	assert.Error(t, runCLI(t, "schema"))
}

func TestListenRequiresNATS(t *testing.T) {
	sqliteEnv(t)
	assert.ErrorContains(t, runCLI(t, "listen"), "NATS_URL")
}

func TestMirrorRequiresClickHouse(t *testing.T) {
	sqliteEnv(t)
	assert.ErrorContains(t, runCLI(t, "mirror"), "CLICKHOUSE_HOST")
}

func TestRunReload(t *testing.T) {
	hookErr := errors.New("publish reload.completed: nats: timeout")
	loadErr := errors.New("flights.json: missing field")

	tests := []struct {
		name    string
		state   etl.State
		err     error
		wantErr error
	}{
		{name: "committed", state: etl.StateCommitted},
		{name: "committed with failed hook", state: etl.StateCommitted, err: hookErr},
		{name: "aborted", state: etl.StateAborted, err: loadErr, wantErr: loadErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reload := func(context.Context) (etl.Report, error) {
				return etl.Report{State: tt.state}, tt.err
			}
			err := runReload(context.Background(), reload, zap.NewNop())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
