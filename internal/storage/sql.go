package storage

import (
	"context"
	"database/sql"
	"fmt"

	"flight_explorer/internal/etl"
)

// sqlDialect holds the statements that differ between database/sql backends.
type sqlDialect struct {
	name     string
	suspend  string
	restore  string
	truncate string // fmt pattern taking the table name
	schema   []string
}

// SQLDB is a database/sql backed Store, used for MySQL and SQLite.
type SQLDB struct {
	db      *sql.DB
	dialect sqlDialect
}

// DB returns the underlying database handle.
func (d *SQLDB) DB() *sql.DB {
	return d.db
}

// Dialect returns the driver name.
func (d *SQLDB) Dialect() string {
	return d.dialect.name
}

// Close closes the database connection.
func (d *SQLDB) Close() error {
	return d.db.Close()
}

// CreateSchema creates the flight explorer tables.
func (d *SQLDB) CreateSchema(ctx context.Context) error {
	for _, q := range d.dialect.schema {
		if _, err := d.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Query runs a read-only query.
func (d *SQLDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

// Begin starts a reload transaction.
func (d *SQLDB) Begin(ctx context.Context) (etl.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, dialect: d.dialect, stmts: make(map[string]*sql.Stmt)}, nil
}

type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() {
	_ = r.Rows.Close()
}

// sqlTx prepares each distinct INSERT once per transaction. The statements
// are closed by Commit or Rollback.
type sqlTx struct {
	tx      *sql.Tx
	dialect sqlDialect
	stmts   map[string]*sql.Stmt
}

func (t *sqlTx) Insert(ctx context.Context, query string, args ...any) error {
	stmt, ok := t.stmts[query]
	if !ok {
		var err error
		stmt, err = t.tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		t.stmts[query] = stmt
	}
	_, err := stmt.ExecContext(ctx, args...)
	return err
}

func (t *sqlTx) SuspendConstraints(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.suspend)
	return err
}

func (t *sqlTx) RestoreConstraints(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.restore)
	return err
}

func (t *sqlTx) Truncate(ctx context.Context, table string) error {
	_, err := t.tx.ExecContext(ctx, fmt.Sprintf(t.dialect.truncate, table))
	return err
}

func (t *sqlTx) Commit(context.Context) error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback(context.Context) error {
	return t.tx.Rollback()
}
