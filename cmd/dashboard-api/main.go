// Package main provides the dashboard-api server for the loaded flight data.
//
// This is a standalone, read-only REST API over the relational store that
// flight_explorer loads. It backs the flight dashboard: headline counts,
// airline filters, recent flights and airport delay percentages.
//
// Usage:
//
//	dashboard-api [options]
//
// Options:
//
//	-env-file FILE      Env file read before the environment (default: .env)
//	-port N             HTTP port (default: 8081, env: API_PORT)
//	-auth               Enable API key authentication (env: API_AUTH)
//	-api-keys KEYS      Comma-separated list of valid API keys (env: API_KEYS)
//	-log-level LEVEL    debug, info, warn or error (env: LOG_LEVEL)
//
// The store is selected with DB_DRIVER (mysql, postgres or sqlite) and the
// DB_* variables described in internal/config.
//
// API Endpoints:
//
//	GET /api/v1/health
//	    Health check endpoint.
//
//	GET /api/v1/summary
//	    Total airports, total flights and the average delay in minutes.
//
//	GET /api/v1/airlines
//	    Distinct airline codes, sorted.
//
//	GET /api/v1/flights?airline=AI&status=Delayed&limit=20
//	    Most recent flights by scheduled departure. "All" disables a filter.
//
//	GET /api/v1/delays
//	    Delayed share of flights per airport, highest first.
//
// Authentication:
//
//	When -auth is enabled, requests must include an API key via:
//	  - X-API-Key header
//	  - Authorization: Bearer <key> header
//	  - ?api_key=<key> query parameter
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"flight_explorer/internal/api"
	"flight_explorer/internal/config"
	"flight_explorer/internal/logging"
	"flight_explorer/internal/storage"
)

func main() {
	envFile := flag.String("env-file", ".env", "Env file read before the environment")
	port := flag.Int("port", 0, "HTTP port for API server (default: API_PORT)")
	authEnabled := flag.Bool("auth", false, "Enable API key authentication")
	apiKeys := flag.String("api-keys", "", "Comma-separated list of valid API keys (when auth enabled)")
	logLevel := flag.String("log-level", "", "Log level (default: LOG_LEVEL)")

	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Flags win over the environment.
	if *port != 0 {
		cfg.API.Port = *port
	}
	if *authEnabled {
		cfg.API.RequireAuth = true
	}
	if *apiKeys != "" {
		cfg.API.Keys = strings.Split(*apiKeys, ",")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("dashboard API failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if cfg.API.RequireAuth && len(cfg.API.Keys) == 0 {
		log.Warn("authentication enabled without API keys; every request will be rejected")
	}

	server := api.NewDashboardServer(storage.NewDashboard(store), api.Config{
		Port:        cfg.API.Port,
		AuthEnabled: cfg.API.RequireAuth,
		APIKeys:     cfg.API.Keys,
		Logger:      log,
	})
	return server.Run(ctx)
}
