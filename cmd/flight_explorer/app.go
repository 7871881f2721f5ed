package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flight_explorer/internal/config"
	"flight_explorer/internal/etl"
	"flight_explorer/internal/events"
	"flight_explorer/internal/logging"
	"flight_explorer/internal/storage"
)

// app carries the settings and resources shared by every command.
type app struct {
	envFile  string
	dataDir  string
	logLevel string

	cfg *config.Config
	log *zap.Logger
}

// setup loads configuration and builds the logger. Flags override the
// environment.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// openStore validates the database settings and opens the store.
func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, a.cfg.StoreConfig())
	if err != nil {
		return nil, err
	}
	a.log.Debug("store opened",
		zap.String("driver", store.Dialect()),
		zap.String("data_dir", a.cfg.DataDir))
	return store, nil
}

// openClickHouse opens the analytics mirror and makes sure its tables exist.
func (a *app) openClickHouse(ctx context.Context) (*storage.ClickHouseDB, error) {
	ch, err := storage.OpenClickHouse(ctx, a.cfg.ClickHouseStoreConfig())
	if err != nil {
		return nil, err
	}
	if err := ch.CreateSchema(ctx); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return ch, nil
}

// connectNATS opens the event bus connection.
func (a *app) connectNATS() (*nats.Conn, error) {
	return events.Connect(a.cfg.NATS.URL, "flight_explorer")
}

// pipeline is a Reloader plus the optional connections its hooks use.
type pipeline struct {
	*etl.Reloader

	store storage.Store
	nc    *nats.Conn
	ch    *storage.ClickHouseDB
}

// Close releases every connection the pipeline opened.
func (p *pipeline) Close() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
	}
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	errs = append(errs, p.store.Close())
	return errors.Join(errs...)
}

// newPipeline opens the store and wires the ClickHouse mirror and NATS event
// hooks when they are configured.
func (a *app) newPipeline(ctx context.Context) (*pipeline, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	p := &pipeline{store: store}

	var hooks []etl.Hook
	if a.cfg.ClickHouseEnabled() {
		ch, err := a.openClickHouse(ctx)
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.ch = ch
		hooks = append(hooks, etl.AfterCommit(func(ctx context.Context, rep etl.Report) error {
			stats, err := ch.Mirror(ctx, store)
			if err != nil {
				return fmt.Errorf("mirror to clickhouse: %w", err)
			}
			a.log.Info("mirrored to clickhouse",
				zap.String("run_id", rep.RunID.String()),
				zap.Int("flights", stats.Flights),
				zap.Int("airport_delays", stats.Delays))
			return nil
		}))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if a.cfg.NATS.URL != "" {
		nc, err := a.connectNATS()
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		p.nc = nc
		publisher = events.NewNATSPublisher(nc, a.cfg.NATS.CompletedSubject)
	}
	hooks = append(hooks, events.Hook(publisher))

	p.Reloader = etl.NewReloader(store, etl.Sources{Dir: a.cfg.DataDir},
		etl.WithLogger(a.log),
		etl.WithBanner(os.Stdout),
		etl.WithHooks(hooks...),
	)
	return p, nil
}
