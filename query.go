package strata

import (
	"context"
	"strings"

	"github.com/syssam/strata/dialect/sql"
)

// Query is a subtype-aware query over the parent entity type. Every
// operation that references a column checks whether the bare column name is
// a subtype attribute of the queried subtype; if so, an inner join from the
// parent table to the subtype table is injected exactly once for the life
// of the query, and the column is qualified with the subtype table. The
// join is reused by every later column reference in the same query.
//
// Queries rooted at a subtype (Client.QueryLabel) are additionally scoped
// to that subtype's discriminator at execution time.
type Query struct {
	client       *Client
	def          *SubtypeDef // nil for base queries
	sel          *sql.Selector
	withSubtypes bool
	scoped       bool
}

// Query returns a query over the parent table. Rows are morphed into their
// concrete subtypes per the discriminator; subtype columns cannot be
// referenced since a base query spans all subtype tables.
func (c *Client) Query() *Query {
	return c.newQuery(nil)
}

// QueryLabel returns a query rooted at the subtype mapped to the label,
// scoped to its discriminator and with its subtype columns routable.
func (c *Client) QueryLabel(label string) (*Query, error) {
	def := c.schema.DefForLabel(label)
	if def == nil {
		return nil, NewTypeResolutionError(label)
	}
	return c.newQuery(def), nil
}

// QueryDef returns a query rooted at the given subtype definition.
func (c *Client) QueryDef(def *SubtypeDef) *Query {
	return c.newQuery(def)
}

func (c *Client) newQuery(def *SubtypeDef) *Query {
	return &Query{
		client: c,
		def:    def,
		sel: sql.Select(c.schema.Table + ".*").
			From(c.schema.Table).
			SetDialect(c.drv.Dialect()),
	}
}

// WithSubtypes makes the single-row paths (First, Find) eagerly load the
// subtype attributes. List results are always batch-loaded.
func (q *Query) WithSubtypes() *Query {
	q.withSubtypes = true
	return q
}

// Selector exposes the underlying selector for callers needing builder
// operations the router does not wrap. Columns passed to it bypass routing.
func (q *Query) Selector() *sql.Selector { return q.sel }

// route qualifies a column with the table it lives in, injecting the
// subtype join on first use of a subtype column.
func (q *Query) route(col string) string {
	bare := col
	if i := strings.LastIndex(col, "."); i >= 0 {
		bare = col[i+1:]
	}
	if q.def != nil && q.def.HasAttribute(bare) {
		q.ensureJoin()
		return q.def.Table + "." + bare
	}
	return q.client.schema.Table + "." + bare
}

// ensureJoin adds the parent-to-subtype inner join unless the subtype table
// already participates in the query.
func (q *Query) ensureJoin() {
	if q.sel.JoinedTable(q.def.Table) {
		return
	}
	schema := q.client.schema
	q.sel.Join(q.def.Table).
		On(schema.Table+"."+schema.keyColumn(), q.def.Table+"."+q.def.KeyColumn)
}

// WhereEQ adds an equality filter.
func (q *Query) WhereEQ(col string, v any) *Query {
	q.sel.Where(sql.EQ(q.route(col), v))
	return q
}

// WhereNEQ adds an inequality filter.
func (q *Query) WhereNEQ(col string, v any) *Query {
	q.sel.Where(sql.NEQ(q.route(col), v))
	return q
}

// WhereGT adds a ">" filter.
func (q *Query) WhereGT(col string, v any) *Query {
	q.sel.Where(sql.GT(q.route(col), v))
	return q
}

// WhereGTE adds a ">=" filter.
func (q *Query) WhereGTE(col string, v any) *Query {
	q.sel.Where(sql.GTE(q.route(col), v))
	return q
}

// WhereLT adds a "<" filter.
func (q *Query) WhereLT(col string, v any) *Query {
	q.sel.Where(sql.LT(q.route(col), v))
	return q
}

// WhereLTE adds a "<=" filter.
func (q *Query) WhereLTE(col string, v any) *Query {
	q.sel.Where(sql.LTE(q.route(col), v))
	return q
}

// WhereIn adds a set-membership filter.
func (q *Query) WhereIn(col string, vs ...any) *Query {
	q.sel.Where(sql.In(q.route(col), vs...))
	return q
}

// WhereNotIn adds a negated set-membership filter.
func (q *Query) WhereNotIn(col string, vs ...any) *Query {
	q.sel.Where(sql.NotIn(q.route(col), vs...))
	return q
}

// WhereNull adds an IS NULL filter.
func (q *Query) WhereNull(col string) *Query {
	q.sel.Where(sql.IsNull(q.route(col)))
	return q
}

// WhereNotNull adds an IS NOT NULL filter.
func (q *Query) WhereNotNull(col string) *Query {
	q.sel.Where(sql.NotNull(q.route(col)))
	return q
}

// WhereBetween adds a range filter.
func (q *Query) WhereBetween(col string, from, to any) *Query {
	q.sel.Where(sql.Between(q.route(col), from, to))
	return q
}

// WhereColumnsEQ adds a column-to-column comparison. Each side is routed
// independently and either may trigger the subtype join.
func (q *Query) WhereColumnsEQ(c1, c2 string) *Query {
	q.sel.Where(sql.ColumnsEQ(q.route(c1), q.route(c2)))
	return q
}

// OrderBy appends ascending order columns.
func (q *Query) OrderBy(cols ...string) *Query {
	for _, col := range cols {
		q.sel.OrderBy(q.route(col))
	}
	return q
}

// OrderByDesc appends a descending order column.
func (q *Query) OrderByDesc(col string) *Query {
	q.sel.OrderBy(sql.Desc(q.route(col)))
	return q
}

// GroupBy appends group-by columns, routing each independently.
func (q *Query) GroupBy(cols ...string) *Query {
	for _, col := range cols {
		q.sel.GroupBy(q.route(col))
	}
	return q
}

func (q *Query) having(col, op string, v any) *Query {
	col = q.route(col)
	switch op {
	case ">":
		q.sel.Having(sql.GT(col, v))
	case ">=":
		q.sel.Having(sql.GTE(col, v))
	case "<":
		q.sel.Having(sql.LT(col, v))
	case "<=":
		q.sel.Having(sql.LTE(col, v))
	case "<>":
		q.sel.Having(sql.NEQ(col, v))
	default:
		q.sel.Having(sql.EQ(col, v))
	}
	return q
}

// HavingEQ sets an equality HAVING condition.
func (q *Query) HavingEQ(col string, v any) *Query { return q.having(col, "=", v) }

// HavingNEQ sets an inequality HAVING condition.
func (q *Query) HavingNEQ(col string, v any) *Query { return q.having(col, "<>", v) }

// HavingGT sets a ">" HAVING condition.
func (q *Query) HavingGT(col string, v any) *Query { return q.having(col, ">", v) }

// HavingGTE sets a ">=" HAVING condition.
func (q *Query) HavingGTE(col string, v any) *Query { return q.having(col, ">=", v) }

// HavingLT sets a "<" HAVING condition.
func (q *Query) HavingLT(col string, v any) *Query { return q.having(col, "<", v) }

// HavingLTE sets a "<=" HAVING condition.
func (q *Query) HavingLTE(col string, v any) *Query { return q.having(col, "<=", v) }

// Select replaces the selected columns, routing each independently.
func (q *Query) Select(cols ...string) *Query {
	routed := make([]string, len(cols))
	for i, col := range cols {
		routed[i] = q.route(col)
	}
	q.sel.Select(routed...)
	return q
}

// Limit limits the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.sel.Limit(n)
	return q
}

// Offset skips the first n rows.
func (q *Query) Offset(n int) *Query {
	q.sel.Offset(n)
	return q
}

// scope applies the discriminator filter of a subtype-rooted query exactly
// once, resolving the label to its id through the lookup table.
func (q *Query) scope(ctx context.Context) error {
	if q.scoped || q.def == nil {
		return nil
	}
	schema := q.client.schema
	if schema.DiscriminatorColumn == "" || schema.Lookup == nil {
		q.scoped = true
		return nil
	}
	typeID, err := q.client.resolver.ResolveTypeID(ctx, q.def.Label)
	if err != nil {
		return err
	}
	q.sel.Where(sql.EQ(schema.Table+"."+schema.DiscriminatorColumn, typeID))
	q.scoped = true
	return nil
}

// rows executes the selection and scans all rows into maps.
func (q *Query) rows(ctx context.Context) ([]map[string]any, error) {
	if err := q.scope(ctx); err != nil {
		return nil, err
	}
	query, args := q.sel.Query()
	rows := &sql.Rows{}
	if err := q.client.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return sql.ScanMaps(rows)
}

// All executes the query and returns all rows morphed into their concrete
// subtypes, with subtype attributes batch-loaded in one query per distinct
// subtype definition.
func (q *Query) All(ctx context.Context) ([]*Model, error) {
	maps, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	models := make([]*Model, 0, len(maps))
	for _, raw := range maps {
		m, err := q.morphRow(ctx, raw)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	if err := q.client.LoadSubtypes(ctx, models); err != nil {
		return nil, err
	}
	return models, nil
}

// First executes the query limited to one row. Returns NotFoundError when
// no row matches. Subtype attributes stay unloaded unless WithSubtypes was
// requested.
func (q *Query) First(ctx context.Context) (*Model, error) {
	q.sel.Limit(1)
	maps, err := q.rows(ctx)
	if err != nil {
		return nil, err
	}
	if len(maps) == 0 {
		return nil, NewNotFoundError(q.label(), nil)
	}
	m, err := q.morphRow(ctx, maps[0])
	if err != nil {
		return nil, err
	}
	if q.withSubtypes {
		if err := m.LoadSubtypeData(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Find returns the row with the given primary key. Returns NotFoundError
// when it does not exist.
func (q *Query) Find(ctx context.Context, id any) (*Model, error) {
	q.sel.Where(sql.EQ(q.client.schema.Table+"."+q.client.schema.keyColumn(), normalizeKey(id)))
	m, err := q.First(ctx)
	if IsNotFound(err) {
		return nil, NewNotFoundError(q.label(), id)
	}
	return m, err
}

// Count returns the number of matching rows.
func (q *Query) Count(ctx context.Context) (int64, error) {
	if err := q.scope(ctx); err != nil {
		return 0, err
	}
	q.sel.Select(sql.Count("*"))
	query, args := q.sel.Query()
	rows := &sql.Rows{}
	if err := q.client.drv.Query(ctx, query, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// Sum returns the sum of the column over the matching rows.
func (q *Query) Sum(ctx context.Context, col string) (float64, error) {
	return q.aggregate(ctx, sql.Sum(q.route(col)))
}

// Avg returns the average of the column over the matching rows.
func (q *Query) Avg(ctx context.Context, col string) (float64, error) {
	return q.aggregate(ctx, sql.Avg(q.route(col)))
}

// MinOf returns the minimum of the column over the matching rows.
func (q *Query) MinOf(ctx context.Context, col string) (float64, error) {
	return q.aggregate(ctx, sql.Min(q.route(col)))
}

// MaxOf returns the maximum of the column over the matching rows.
func (q *Query) MaxOf(ctx context.Context, col string) (float64, error) {
	return q.aggregate(ctx, sql.Max(q.route(col)))
}

func (q *Query) aggregate(ctx context.Context, expr string) (float64, error) {
	if err := q.scope(ctx); err != nil {
		return 0, err
	}
	q.sel.Select(expr)
	query, args := q.sel.Query()
	rows := &sql.Rows{}
	if err := q.client.drv.Query(ctx, query, args, rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	var v sql.NullFloat64
	if rows.Next() {
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
	}
	return v.Float64, rows.Err()
}

// morphRow converts a raw row into its model. Subtype-rooted queries skip
// discriminator resolution since the scope already fixes the subtype.
func (q *Query) morphRow(ctx context.Context, raw map[string]any) (*Model, error) {
	if q.def != nil {
		m := newModel(q.client, q.def)
		m.forceFill(raw)
		m.exists = true
		m.syncOriginal()
		return m, nil
	}
	return q.client.Morph(ctx, raw)
}

func (q *Query) label() string {
	if q.def != nil {
		return q.def.Label
	}
	return q.client.schema.Table
}
