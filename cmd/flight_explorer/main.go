// Package main provides the flight_explorer command line tool.
//
// flight_explorer fetches airport data, generates synthetic flights and
// reloads the relational store from the JSON files in the data directory.
//
// Usage:
//
//	flight_explorer [--env-file .env] [--data-dir DIR] [--log-level LEVEL] <command>
//
// Commands:
//
//	load        clear all tables and reload them from the data directory
//	schema      create the tables if they do not exist
//	generate    write synthetic aircraft, flights and delay files
//	fetch       download airports and flight lists from AeroDataBox
//	schedule    reload on a fixed interval until interrupted
//	listen      reload whenever a NATS request arrives
//	mirror      copy flights and delays into ClickHouse
//
// Settings come from the environment and the optional env file; see
// internal/config for the variable names.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		if a.log != nil {
			a.log.Error("command failed", zap.Error(err))
			_ = a.log.Sync()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
