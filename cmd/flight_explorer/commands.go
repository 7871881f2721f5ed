package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"flight_explorer/internal/events"
	"flight_explorer/internal/fetch"
	"flight_explorer/internal/synth"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "flight_explorer",
		Short: "Load flight, aircraft, airport and delay data into a relational store",
		Long: `flight_explorer keeps a relational store in step with the JSON files in the
data directory. Every load clears the four tables and reloads them inside one
transaction: either all data is replaced, or nothing changes.

Exit Codes:
  0  - Success
  1  - Any error (configuration, connection, input data or store failure)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Env file to read before the environment")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Directory holding the JSON input files (env: DATA_DIR)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (env: LOG_LEVEL)")

	root.AddCommand(
		newLoadCmd(a),
		newSchemaCmd(a),
		newGenerateCmd(a),
		newFetchCmd(a),
		newScheduleCmd(a),
		newListenCmd(a),
		newMirrorCmd(a),
	)
	return root
}

func newLoadCmd(a *app) *cobra.Command {
	var createSchema bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Clear all tables and reload them from the data directory",
		Long: `Clear all tables and reload them from the data directory in one transaction.

Once the transaction has committed the load succeeds. A failure of the
follow-up steps (the NATS completion event or the ClickHouse mirror) is
logged as a warning and does not change the exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			if createSchema {
				if err := p.store.CreateSchema(ctx); err != nil {
					return err
				}
			}

			return runReload(ctx, p.Reload, a.log)
		},
	}
	cmd.Flags().BoolVar(&createSchema, "create-schema", false, "Create missing tables before loading")
	return cmd
}

// runReload runs one reload. Follow-up hook failures after a commit are logged,
// not returned.
func runReload(ctx context.Context, reload events.ReloadFunc, log *zap.Logger) error {
	rep, err := reload(ctx)
	if err != nil && rep.Committed() {
		log.Warn("reload committed but a follow-up step failed",
			zap.String("run_id", rep.RunID.String()),
			zap.Error(err))
		return nil
	}
	return err
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.CreateSchema(ctx); err != nil {
				return err
			}
			a.log.Info("schema ready", zap.String("driver", store.Dialect()))
			return nil
		},
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		seed     uint64
		aircraft int
		flights  int
		days     int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic aircraft, flights and delay files for the airports in airports.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			sum, err := synth.Generate(a.cfg.DataDir, synth.Options{
				Seed:     seed,
				Aircraft: aircraft,
				Flights:  flights,
				Days:     days,
			})
			if err != nil {
				return err
			}

			a.log.Info("synthetic data written",
				zap.String("dir", a.cfg.DataDir),
				zap.Uint64("seed", seed),
				zap.Int("airports", sum.Airports),
				zap.Int("aircraft", sum.Aircraft),
				zap.Int("flights", sum.Flights),
				zap.Int("airport_delays", sum.Delays))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default: current time)")
	cmd.Flags().IntVar(&aircraft, "aircraft", 25, "Number of aircraft")
	cmd.Flags().IntVar(&flights, "flights", 400, "Number of flights")
	cmd.Flags().IntVar(&days, "days", 5, "Days of history")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download airports and flight lists from AeroDataBox into the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateFetch(); err != nil {
				return err
			}

			client := fetch.NewClient(fetch.Options{
				APIKey:   a.cfg.Fetch.APIKey,
				APIHost:  a.cfg.Fetch.APIHost,
				Interval: a.cfg.Fetch.Interval,
				Logger:   a.log,
			})

			res, err := fetch.Run(cmd.Context(), client, a.cfg.DataDir, a.cfg.Fetch.Airports)
			a.log.Info("fetch finished",
				zap.String("dir", a.cfg.DataDir),
				zap.Int("airports", res.Airports),
				zap.Int("flight_batches", res.FlightBatches))
			return err
		},
	}
}

func newScheduleCmd(a *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Reload on a fixed interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.ReloadInterval
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			p, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			scheduler := gocron.NewScheduler(time.UTC)
			scheduler.SingletonModeAll()

			_, err = scheduler.Every(interval).Do(func() {
				if err := runReload(ctx, p.Reload, a.log); err != nil {
					a.log.Error("scheduled reload failed", zap.Error(err))
				}
			})
			if err != nil {
				return fmt.Errorf("schedule reload: %w", err)
			}

			a.log.Info("reload scheduler started", zap.Duration("interval", interval))
			scheduler.StartAsync()

			<-ctx.Done()

			scheduler.Stop()
			a.log.Info("reload scheduler stopped")
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 0, "Time between reloads (env: RELOAD_INTERVAL)")
	return cmd
}

func newListenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Reload whenever a message arrives on the NATS request subject",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if a.cfg.NATS.URL == "" {
				return errors.New("NATS_URL is required for listen")
			}

			p, err := a.newPipeline(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			return events.Listen(ctx, p.nc, a.cfg.NATS.RequestSubject, p.Reload, a.log)
		},
	}
}

func newMirrorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mirror",
		Short: "Copy the committed flights and delays into ClickHouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !a.cfg.ClickHouseEnabled() {
				return errors.New("CLICKHOUSE_HOST is required for mirror")
			}

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ch, err := a.openClickHouse(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = ch.Close() }()

			stats, err := ch.Mirror(ctx, store)
			if err != nil {
				return err
			}
			a.log.Info("mirrored to clickhouse",
				zap.Int("flights", stats.Flights),
				zap.Int("airport_delays", stats.Delays))
			return nil
		},
	}
}
