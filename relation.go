package strata

import (
	"sort"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/strata/dialect/sql"
)

// Relationship helpers rooted at the subtype. Each returns a configured
// selector for the related table, with the foreign key defaulting to this
// entity's shared subtype key. Subtypes share these helpers by explicit
// delegation; there is no dynamic fallback to a parent instance.

// relationName is the snake-case name the foreign key defaults derive from:
// the subtype label, or the singular parent table for base models.
func (m *Model) relationName() string {
	if m.def != nil {
		return inflect.Underscore(m.def.Label)
	}
	return inflect.Singularize(m.schema.Table)
}

// foreignKey returns the default foreign key column referencing this
// entity: "<name>_<key>", e.g. "quiz_id".
func (m *Model) foreignKey() string {
	return m.relationName() + "_" + m.schema.keyColumn()
}

// HasMany returns a selector over the related table's rows referencing this
// entity. The foreign key defaults to "<label>_<key>" on the related table.
func (m *Model) HasMany(related string, foreignKey ...string) *sql.Selector {
	fk := m.foreignKey()
	if len(foreignKey) > 0 {
		fk = foreignKey[0]
	}
	return sql.Select(related + ".*").
		From(related).
		Where(sql.EQ(related+"."+fk, normalizeKey(m.Key()))).
		SetDialect(m.client.drv.Dialect())
}

// HasOne is HasMany limited to a single row.
func (m *Model) HasOne(related string, foreignKey ...string) *sql.Selector {
	return m.HasMany(related, foreignKey...).Limit(1)
}

// BelongsTo returns a selector for the owning row referenced by this
// entity's foreign key attribute, which defaults to
// "<singular related>_<key>".
func (m *Model) BelongsTo(related string, foreignKey ...string) *sql.Selector {
	fk := inflect.Underscore(inflect.Singularize(related)) + "_" + m.schema.keyColumn()
	if len(foreignKey) > 0 {
		fk = foreignKey[0]
	}
	return sql.Select(related+".*").
		From(related).
		Where(sql.EQ(related+"."+m.schema.keyColumn(), normalizeKey(m.Get(fk)))).
		Limit(1).
		SetDialect(m.client.drv.Dialect())
}

// ManyToMany returns a selector over the related table joined through a
// pivot table. The pivot name defaults to the two singular names sorted and
// joined with "_"; the pivot columns default to "<name>_<key>" for each
// side.
func (m *Model) ManyToMany(related string, pivot ...string) *sql.Selector {
	this := m.relationName()
	that := inflect.Underscore(inflect.Singularize(related))
	pivotTable := defaultPivot(this, that)
	if len(pivot) > 0 {
		pivotTable = pivot[0]
	}
	key := m.schema.keyColumn()
	return sql.Select(related+".*").
		From(related).
		Join(pivotTable).
		On(related+"."+key, pivotTable+"."+that+"_"+key).
		Where(sql.EQ(pivotTable+"."+this+"_"+key, normalizeKey(m.Key()))).
		SetDialect(m.client.drv.Dialect())
}

// defaultPivot joins the two singular names alphabetically.
func defaultPivot(a, b string) string {
	names := []string{a, b}
	sort.Strings(names)
	return strings.Join(names, "_")
}
