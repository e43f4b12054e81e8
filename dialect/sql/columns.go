package sql

import (
	"context"
	"fmt"

	"github.com/syssam/strata/dialect"
)

// ColumnLister lists the column names of a table. It is the schema
// introspection surface consumed by the mapping layer for configuration
// validation.
type ColumnLister interface {
	Columns(ctx context.Context, table string) ([]string, error)
}

// TableColumns returns the column names of the given table using the
// dialect-specific catalog query.
func TableColumns(ctx context.Context, drv dialect.Driver, table string) ([]string, error) {
	var query string
	args := []any{table}
	switch drv.Dialect() {
	case dialect.SQLite:
		query = "SELECT name FROM pragma_table_info(?) ORDER BY cid"
	case dialect.MySQL:
		query = "SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ordinal_position"
	case dialect.Postgres:
		query = "SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position"
	default:
		return nil, fmt.Errorf("dialect/sql: unsupported dialect %q for column introspection", drv.Dialect())
	}
	rows := &Rows{}
	if err := drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// columnLister adapts a dialect.Driver to the ColumnLister interface.
type columnLister struct {
	drv dialect.Driver
}

// NewColumnLister returns a ColumnLister backed by the given driver.
func NewColumnLister(drv dialect.Driver) ColumnLister {
	return columnLister{drv: drv}
}

// Columns implements ColumnLister.
func (l columnLister) Columns(ctx context.Context, table string) ([]string, error) {
	return TableColumns(ctx, l.drv, table)
}
