package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/strata/dialect"
)

// stmt is the low-level statement writer shared by all builders. It tracks
// the dialect for identifier quoting and placeholder generation.
type stmt struct {
	sb      strings.Builder
	dialect string
	args    []any
}

// arg appends a query argument and writes its placeholder.
func (s *stmt) arg(v any) {
	s.args = append(s.args, v)
	if s.dialect == dialect.Postgres {
		s.sb.WriteString("$")
		s.sb.WriteString(strconv.Itoa(len(s.args)))
		return
	}
	s.sb.WriteString("?")
}

// ident writes a possibly-qualified identifier with dialect quoting.
// Expressions (anything containing parentheses, spaces or "*") are
// written as-is.
func (s *stmt) ident(name string) {
	if name == "*" || strings.ContainsAny(name, "( ") || strings.HasSuffix(name, ".*") {
		s.sb.WriteString(name)
		return
	}
	quote := `"`
	if s.dialect == dialect.MySQL {
		quote = "`"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if i > 0 {
			s.sb.WriteString(".")
		}
		s.sb.WriteString(quote)
		s.sb.WriteString(p)
		s.sb.WriteString(quote)
	}
}

// Predicate is a where-clause fragment applied to a statement.
type Predicate struct {
	build func(*stmt)
}

// P wraps a raw build function as a Predicate.
func P(build func(*stmt)) *Predicate {
	return &Predicate{build: build}
}

func compare(col, op string, v any) *Predicate {
	return P(func(s *stmt) {
		s.ident(col)
		s.sb.WriteString(" " + op + " ")
		s.arg(v)
	})
}

// EQ returns a "=" predicate.
func EQ(col string, v any) *Predicate { return compare(col, "=", v) }

// NEQ returns a "<>" predicate.
func NEQ(col string, v any) *Predicate { return compare(col, "<>", v) }

// GT returns a ">" predicate.
func GT(col string, v any) *Predicate { return compare(col, ">", v) }

// GTE returns a ">=" predicate.
func GTE(col string, v any) *Predicate { return compare(col, ">=", v) }

// LT returns a "<" predicate.
func LT(col string, v any) *Predicate { return compare(col, "<", v) }

// LTE returns a "<=" predicate.
func LTE(col string, v any) *Predicate { return compare(col, "<=", v) }

// In returns an "IN" predicate. An empty value list yields FALSE.
func In(col string, vs ...any) *Predicate {
	return P(func(s *stmt) {
		if len(vs) == 0 {
			s.sb.WriteString("FALSE")
			return
		}
		s.ident(col)
		s.sb.WriteString(" IN (")
		for i, v := range vs {
			if i > 0 {
				s.sb.WriteString(", ")
			}
			s.arg(v)
		}
		s.sb.WriteString(")")
	})
}

// NotIn returns a "NOT IN" predicate. An empty value list yields TRUE.
func NotIn(col string, vs ...any) *Predicate {
	return P(func(s *stmt) {
		if len(vs) == 0 {
			s.sb.WriteString("TRUE")
			return
		}
		s.ident(col)
		s.sb.WriteString(" NOT IN (")
		for i, v := range vs {
			if i > 0 {
				s.sb.WriteString(", ")
			}
			s.arg(v)
		}
		s.sb.WriteString(")")
	})
}

// IsNull returns an "IS NULL" predicate.
func IsNull(col string) *Predicate {
	return P(func(s *stmt) {
		s.ident(col)
		s.sb.WriteString(" IS NULL")
	})
}

// NotNull returns an "IS NOT NULL" predicate.
func NotNull(col string) *Predicate {
	return P(func(s *stmt) {
		s.ident(col)
		s.sb.WriteString(" IS NOT NULL")
	})
}

// Between returns a "BETWEEN" predicate.
func Between(col string, from, to any) *Predicate {
	return P(func(s *stmt) {
		s.ident(col)
		s.sb.WriteString(" BETWEEN ")
		s.arg(from)
		s.sb.WriteString(" AND ")
		s.arg(to)
	})
}

func columns(c1, op, c2 string) *Predicate {
	return P(func(s *stmt) {
		s.ident(c1)
		s.sb.WriteString(" " + op + " ")
		s.ident(c2)
	})
}

// ColumnsEQ returns a column-to-column "=" predicate.
func ColumnsEQ(c1, c2 string) *Predicate { return columns(c1, "=", c2) }

// ColumnsNEQ returns a column-to-column "<>" predicate.
func ColumnsNEQ(c1, c2 string) *Predicate { return columns(c1, "<>", c2) }

// ColumnsGT returns a column-to-column ">" predicate.
func ColumnsGT(c1, c2 string) *Predicate { return columns(c1, ">", c2) }

// ColumnsLT returns a column-to-column "<" predicate.
func ColumnsLT(c1, c2 string) *Predicate { return columns(c1, "<", c2) }

// Like returns a "LIKE" predicate.
func Like(col, pattern string) *Predicate { return compare(col, "LIKE", pattern) }

// Contains returns a LIKE predicate matching the substring anywhere.
func Contains(col, sub string) *Predicate { return Like(col, "%"+sub+"%") }

// HasPrefix returns a LIKE predicate matching the prefix.
func HasPrefix(col, prefix string) *Predicate { return Like(col, prefix+"%") }

// HasSuffix returns a LIKE predicate matching the suffix.
func HasSuffix(col, suffix string) *Predicate { return Like(col, "%"+suffix) }

func nest(op string, ps []*Predicate) *Predicate {
	return P(func(s *stmt) {
		if len(ps) == 1 {
			ps[0].build(s)
			return
		}
		s.sb.WriteString("(")
		for i, p := range ps {
			if i > 0 {
				s.sb.WriteString(" " + op + " ")
			}
			p.build(s)
		}
		s.sb.WriteString(")")
	})
}

// And combines the predicates with AND.
func And(ps ...*Predicate) *Predicate { return nest("AND", ps) }

// Or combines the predicates with OR.
func Or(ps ...*Predicate) *Predicate { return nest("OR", ps) }

// Not negates the predicate.
func Not(p *Predicate) *Predicate {
	return P(func(s *stmt) {
		s.sb.WriteString("NOT (")
		p.build(s)
		s.sb.WriteString(")")
	})
}

// Aggregate expression helpers. The returned expressions are written to the
// statement verbatim; callers qualify column names themselves.

// Count returns a COUNT expression.
func Count(col string) string { return fmt.Sprintf("COUNT(%s)", col) }

// Sum returns a SUM expression.
func Sum(col string) string { return fmt.Sprintf("SUM(%s)", col) }

// Avg returns an AVG expression.
func Avg(col string) string { return fmt.Sprintf("AVG(%s)", col) }

// Min returns a MIN expression.
func Min(col string) string { return fmt.Sprintf("MIN(%s)", col) }

// Max returns a MAX expression.
func Max(col string) string { return fmt.Sprintf("MAX(%s)", col) }

// Desc marks an order column as descending.
func Desc(col string) string { return col + " DESC" }

// Asc marks an order column as ascending.
func Asc(col string) string { return col + " ASC" }

type joinClause struct {
	kind  string // JOIN, LEFT JOIN
	table string
	left  string
	right string
}

// Selector builds SELECT statements.
type Selector struct {
	dialect  string
	columns  []string
	table    string
	joins    []joinClause
	preds    []*Predicate
	order    []string
	group    []string
	having   *Predicate
	limit    *int
	offset   *int
	distinct bool
}

// Select returns a Selector with the given columns. An empty column list
// selects "*".
func Select(cols ...string) *Selector {
	return &Selector{columns: cols}
}

// SetDialect sets the dialect used for quoting and placeholders.
func (s *Selector) SetDialect(name string) *Selector {
	s.dialect = name
	return s
}

// Dialect returns the selector dialect.
func (s *Selector) Dialect() string { return s.dialect }

// Select replaces the selected columns.
func (s *Selector) Select(cols ...string) *Selector {
	s.columns = cols
	return s
}

// SelectedColumns returns the currently selected columns.
func (s *Selector) SelectedColumns() []string {
	return append([]string(nil), s.columns...)
}

// AppendSelect appends columns to the selection.
func (s *Selector) AppendSelect(cols ...string) *Selector {
	s.columns = append(s.columns, cols...)
	return s
}

// Distinct marks the selection as DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// From sets the table of the selection.
func (s *Selector) From(table string) *Selector {
	s.table = table
	return s
}

// Table returns the FROM table of the selection.
func (s *Selector) Table() string { return s.table }

// Where appends the predicate to the selection. Multiple calls are
// combined with AND.
func (s *Selector) Where(p *Predicate) *Selector {
	s.preds = append(s.preds, p)
	return s
}

// Join adds an inner JOIN to the given table. The returned selector is the
// receiver; complete the clause with On.
func (s *Selector) Join(table string) *Selector {
	s.joins = append(s.joins, joinClause{kind: "JOIN", table: table})
	return s
}

// LeftJoin adds a LEFT JOIN to the given table.
func (s *Selector) LeftJoin(table string) *Selector {
	s.joins = append(s.joins, joinClause{kind: "LEFT JOIN", table: table})
	return s
}

// On completes the most recent join clause with its join condition.
func (s *Selector) On(left, right string) *Selector {
	if n := len(s.joins); n > 0 {
		s.joins[n-1].left, s.joins[n-1].right = left, right
	}
	return s
}

// JoinedTable reports whether the given table already participates in a
// join clause of this selection.
func (s *Selector) JoinedTable(table string) bool {
	for _, j := range s.joins {
		if j.table == table {
			return true
		}
	}
	return false
}

// OrderBy appends order columns. Use Desc or Asc to set direction.
func (s *Selector) OrderBy(cols ...string) *Selector {
	s.order = append(s.order, cols...)
	return s
}

// GroupBy appends group-by columns.
func (s *Selector) GroupBy(cols ...string) *Selector {
	s.group = append(s.group, cols...)
	return s
}

// Having sets the HAVING predicate.
func (s *Selector) Having(p *Predicate) *Selector {
	s.having = p
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Query returns query representation of the selection and its arguments.
func (s *Selector) Query() (string, []any) {
	st := &stmt{dialect: s.dialect}
	st.sb.WriteString("SELECT ")
	if s.distinct {
		st.sb.WriteString("DISTINCT ")
	}
	cols := s.columns
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	for i, c := range cols {
		if i > 0 {
			st.sb.WriteString(", ")
		}
		st.ident(c)
	}
	st.sb.WriteString(" FROM ")
	st.ident(s.table)
	for _, j := range s.joins {
		st.sb.WriteString(" " + j.kind + " ")
		st.ident(j.table)
		st.sb.WriteString(" ON ")
		st.ident(j.left)
		st.sb.WriteString(" = ")
		st.ident(j.right)
	}
	if len(s.preds) > 0 {
		st.sb.WriteString(" WHERE ")
		And(s.preds...).build(st)
	}
	if len(s.group) > 0 {
		st.sb.WriteString(" GROUP BY ")
		for i, c := range s.group {
			if i > 0 {
				st.sb.WriteString(", ")
			}
			st.ident(c)
		}
	}
	if s.having != nil {
		st.sb.WriteString(" HAVING ")
		s.having.build(st)
	}
	if len(s.order) > 0 {
		st.sb.WriteString(" ORDER BY ")
		for i, c := range s.order {
			if i > 0 {
				st.sb.WriteString(", ")
			}
			switch {
			case strings.HasSuffix(c, " DESC"):
				st.ident(strings.TrimSuffix(c, " DESC"))
				st.sb.WriteString(" DESC")
			case strings.HasSuffix(c, " ASC"):
				st.ident(strings.TrimSuffix(c, " ASC"))
				st.sb.WriteString(" ASC")
			default:
				st.ident(c)
			}
		}
	}
	if s.limit != nil {
		st.sb.WriteString(" LIMIT ")
		st.sb.WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		st.sb.WriteString(" OFFSET ")
		st.sb.WriteString(strconv.Itoa(*s.offset))
	}
	return st.sb.String(), st.args
}

// InsertBuilder builds INSERT statements.
type InsertBuilder struct {
	dialect   string
	table     string
	columns   []string
	values    [][]any
	returning []string
}

// Insert returns an InsertBuilder for the given table.
func Insert(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// SetDialect sets the dialect used for quoting and placeholders.
func (i *InsertBuilder) SetDialect(name string) *InsertBuilder {
	i.dialect = name
	return i
}

// Columns sets the insert columns.
func (i *InsertBuilder) Columns(cols ...string) *InsertBuilder {
	i.columns = cols
	return i
}

// Values appends a row of values. May be called multiple times for
// multi-row inserts.
func (i *InsertBuilder) Values(vs ...any) *InsertBuilder {
	i.values = append(i.values, vs)
	return i
}

// Returning adds a RETURNING clause (PostgreSQL).
func (i *InsertBuilder) Returning(cols ...string) *InsertBuilder {
	i.returning = cols
	return i
}

// Query returns query representation of the insert and its arguments.
func (i *InsertBuilder) Query() (string, []any) {
	st := &stmt{dialect: i.dialect}
	st.sb.WriteString("INSERT INTO ")
	st.ident(i.table)
	st.sb.WriteString(" (")
	for j, c := range i.columns {
		if j > 0 {
			st.sb.WriteString(", ")
		}
		st.ident(c)
	}
	st.sb.WriteString(") VALUES ")
	for r, row := range i.values {
		if r > 0 {
			st.sb.WriteString(", ")
		}
		st.sb.WriteString("(")
		for j, v := range row {
			if j > 0 {
				st.sb.WriteString(", ")
			}
			st.arg(v)
		}
		st.sb.WriteString(")")
	}
	if len(i.returning) > 0 {
		st.sb.WriteString(" RETURNING ")
		for j, c := range i.returning {
			if j > 0 {
				st.sb.WriteString(", ")
			}
			st.ident(c)
		}
	}
	return st.sb.String(), st.args
}

// UpdateBuilder builds UPDATE statements.
type UpdateBuilder struct {
	dialect string
	table   string
	columns []string
	values  []any
	preds   []*Predicate
}

// Update returns an UpdateBuilder for the given table.
func Update(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// SetDialect sets the dialect used for quoting and placeholders.
func (u *UpdateBuilder) SetDialect(name string) *UpdateBuilder {
	u.dialect = name
	return u
}

// Set adds a column assignment.
func (u *UpdateBuilder) Set(col string, v any) *UpdateBuilder {
	u.columns = append(u.columns, col)
	u.values = append(u.values, v)
	return u
}

// Where appends a predicate. Multiple calls are combined with AND.
func (u *UpdateBuilder) Where(p *Predicate) *UpdateBuilder {
	u.preds = append(u.preds, p)
	return u
}

// Empty reports whether the update has no assignments.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Query returns query representation of the update and its arguments.
func (u *UpdateBuilder) Query() (string, []any) {
	st := &stmt{dialect: u.dialect}
	st.sb.WriteString("UPDATE ")
	st.ident(u.table)
	st.sb.WriteString(" SET ")
	for i, c := range u.columns {
		if i > 0 {
			st.sb.WriteString(", ")
		}
		st.ident(c)
		st.sb.WriteString(" = ")
		st.arg(u.values[i])
	}
	if len(u.preds) > 0 {
		st.sb.WriteString(" WHERE ")
		And(u.preds...).build(st)
	}
	return st.sb.String(), st.args
}

// DeleteBuilder builds DELETE statements.
type DeleteBuilder struct {
	dialect string
	table   string
	preds   []*Predicate
}

// Delete returns a DeleteBuilder for the given table.
func Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// SetDialect sets the dialect used for quoting and placeholders.
func (d *DeleteBuilder) SetDialect(name string) *DeleteBuilder {
	d.dialect = name
	return d
}

// Where appends a predicate. Multiple calls are combined with AND.
func (d *DeleteBuilder) Where(p *Predicate) *DeleteBuilder {
	d.preds = append(d.preds, p)
	return d
}

// Query returns query representation of the delete and its arguments.
func (d *DeleteBuilder) Query() (string, []any) {
	st := &stmt{dialect: d.dialect}
	st.sb.WriteString("DELETE FROM ")
	st.ident(d.table)
	if len(d.preds) > 0 {
		st.sb.WriteString(" WHERE ")
		And(d.preds...).build(st)
	}
	return st.sb.String(), st.args
}
