// Package etl clears and reloads the flight explorer tables from the raw
// provider files in a single transaction.
package etl

import "context"

// Inserter executes one parameterised INSERT. Queries use '?' placeholders;
// backends that number their parameters rebind them.
type Inserter interface {
	Insert(ctx context.Context, query string, args ...any) error
}

// Tx is the unit of work a reload runs in. Nothing it writes is visible to
// readers until Commit returns nil.
type Tx interface {
	Inserter

	// SuspendConstraints turns off foreign key enforcement for the session.
	SuspendConstraints(ctx context.Context) error
	// RestoreConstraints turns it back on.
	RestoreConstraints(ctx context.Context) error
	// Truncate removes every row of a table inside the transaction.
	Truncate(ctx context.Context, table string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store opens reload transactions.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}
