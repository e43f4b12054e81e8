// Package dialect provides the database abstraction used by strata.
//
// The package defines the Driver, Tx and ExecQuerier interfaces that the
// mapping layer is written against, together with the dialect name
// constants for the supported databases.
package dialect

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Dialect names for the supported databases.
const (
	// MySQL is the dialect name of MySQL/MariaDB.
	MySQL = "mysql"
	// SQLite is the dialect name of SQLite.
	SQLite = "sqlite"
	// Postgres is the dialect name of PostgreSQL.
	Postgres = "postgres"
)

// ExecQuerier wraps the two basic Exec and Query methods.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all database operations.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// NopTx returns a Tx with a no-op Commit / Rollback.
func NopTx(d Driver) Tx {
	return nopTx{d}
}

// DebugDriver is a driver that logs all driver operations.
type DebugDriver struct {
	Driver               // underlying driver.
	log func(...any)     // log function.
	now func() time.Time // clock, swappable in tests.
}

// Debug gets a driver and an optional logging function, and returns
// a new debugged-driver that prints all outgoing operations.
func Debug(d Driver, logger ...func(...any)) Driver {
	logf := log.Println
	if len(logger) == 1 {
		logf = logger[0]
	}
	return &DebugDriver{Driver: d, log: logf, now: time.Now}
}

// Exec logs its params and calls the underlying driver Exec method.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := d.now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.log(fmt.Sprintf("driver.Exec: query=%v args=%v time=%v err=%v", query, args, d.now().Sub(start), err))
	return err
}

// Query logs its params and calls the underlying driver Query method.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	start := d.now()
	err := d.Driver.Query(ctx, query, args, v)
	d.log(fmt.Sprintf("driver.Query: query=%v args=%v time=%v err=%v", query, args, d.now().Sub(start), err))
	return err
}

// Tx adds a log-id for the transaction and calls the underlying driver Tx command.
func (d *DebugDriver) Tx(ctx context.Context) (Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	d.log("driver.Tx: started")
	return &DebugTx{tx: tx, log: d.log, now: d.now}, nil
}

// DebugTx is a transaction implementation that logs all transaction operations.
type DebugTx struct {
	tx  Tx
	log func(...any)
	now func() time.Time
}

// Exec logs its params and calls the underlying transaction Exec method.
func (d *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	start := d.now()
	err := d.tx.Exec(ctx, query, args, v)
	d.log(fmt.Sprintf("tx.Exec: query=%v args=%v time=%v err=%v", query, args, d.now().Sub(start), err))
	return err
}

// Query logs its params and calls the underlying transaction Query method.
func (d *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	start := d.now()
	err := d.tx.Query(ctx, query, args, v)
	d.log(fmt.Sprintf("tx.Query: query=%v args=%v time=%v err=%v", query, args, d.now().Sub(start), err))
	return err
}

// Commit logs and commits the underlying transaction.
func (d *DebugTx) Commit() error {
	err := d.tx.Commit()
	d.log(fmt.Sprintf("tx.Commit: err=%v", err))
	return err
}

// Rollback logs and rolls back the underlying transaction.
func (d *DebugTx) Rollback() error {
	err := d.tx.Rollback()
	d.log(fmt.Sprintf("tx.Rollback: err=%v", err))
	return err
}
