// Package strata implements Class Table Inheritance (CTI) as a data-mapping
// layer: one logical entity is split across a parent table holding shared
// columns and per-subtype tables holding type-specific columns, joined by a
// shared primary key. A discriminator column on the parent row selects the
// subtype; the runtime resolves it, merges the two rows into one in-memory
// model, and keeps the pair consistent through save, delete and query.
package strata

import (
	"github.com/go-openapi/inflect"
)

// DefaultKeyColumn is the primary key column used when a schema does not
// override it.
const DefaultKeyColumn = "id"

// Timestamp column names managed by the runtime when a schema enables
// timestamps.
const (
	CreatedAtColumn = "created_at"
	UpdatedAtColumn = "updated_at"
)

// LookupTable describes the reference table mapping discriminator ids to
// human-readable labels.
type LookupTable struct {
	// Table is the lookup table name.
	Table string
	// KeyColumn is the id column. Defaults to "id".
	KeyColumn string
	// LabelColumn is the unique label column. Defaults to "label".
	LabelColumn string
}

// SubtypeDef describes one concrete subtype of a parent entity: its label in
// the subtype map, its table, and the attribute columns that live there.
// Defs are registered on a ParentSchema at startup; the registry replaces
// runtime class lookup with explicit tagged variants.
type SubtypeDef struct {
	// Label is the discriminator label this subtype is mapped to.
	Label string
	// Table is the subtype table. Derived from Label when empty
	// (underscored and pluralized).
	Table string
	// Attributes are the columns stored in the subtype table. Must be
	// disjoint from the parent table columns.
	Attributes []string
	// KeyColumn is the shared-key column in the subtype table. Defaults to
	// the parent schema key column.
	KeyColumn string
	// Casts are cast rules applied to subtype attributes on load. Merged
	// with the parent casts on morphed instances.
	Casts map[string]Cast

	attrs map[string]struct{} // attribute set, built on registration
}

// HasAttribute reports whether the column is declared as a subtype attribute.
func (d *SubtypeDef) HasAttribute(column string) bool {
	_, ok := d.attrs[column]
	return ok
}

// ParentSchema is the static configuration of a CTI parent entity type: the
// parent table, its discriminator column, the lookup table, and the subtype
// registry.
type ParentSchema struct {
	// Table is the parent table name.
	Table string
	// KeyColumn is the parent primary key column. Defaults to "id".
	KeyColumn string
	// DiscriminatorColumn holds the lookup-table id on parent rows.
	// Required for subtype resolution.
	DiscriminatorColumn string
	// Lookup configures the discriminator lookup table. Required for
	// subtype resolution.
	Lookup *LookupTable
	// Timestamps enables created_at/updated_at maintenance on save.
	Timestamps bool
	// Casts are cast rules applied to parent attributes on load.
	Casts map[string]Cast

	defs   map[string]*SubtypeDef
	events Events
}

// NewSchema returns a ParentSchema for the given parent table with defaults
// applied.
func NewSchema(table string) *ParentSchema {
	return &ParentSchema{
		Table:     table,
		KeyColumn: DefaultKeyColumn,
		defs:      make(map[string]*SubtypeDef),
	}
}

// Register adds a subtype definition to the schema's label-to-subtype map,
// deriving the defaults its declaration omits. Registering an empty label or
// no attributes is a configuration error.
func (s *ParentSchema) Register(def *SubtypeDef) error {
	if def.Label == "" {
		return NewMissingRequiredPropertyError("subtype", "Label")
	}
	if len(def.Attributes) == 0 {
		return NewMissingRequiredPropertyError("subtype "+def.Label, "Attributes")
	}
	if def.Table == "" {
		def.Table = inflect.Pluralize(inflect.Underscore(def.Label))
	}
	if def.KeyColumn == "" {
		def.KeyColumn = s.keyColumn()
	}
	def.attrs = make(map[string]struct{}, len(def.Attributes))
	for _, a := range def.Attributes {
		def.attrs[a] = struct{}{}
	}
	s.defs[def.Label] = def
	return nil
}

// MustRegister is like Register but panics on configuration errors. Intended
// for static startup registration.
func (s *ParentSchema) MustRegister(def *SubtypeDef) *ParentSchema {
	if err := s.Register(def); err != nil {
		panic(err)
	}
	return s
}

// DefForLabel returns the subtype definition mapped to the label, or nil if
// the label is unmapped. Pure map lookup, no I/O.
func (s *ParentSchema) DefForLabel(label string) *SubtypeDef {
	return s.defs[label]
}

// Defs returns all registered subtype definitions.
func (s *ParentSchema) Defs() []*SubtypeDef {
	out := make([]*SubtypeDef, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	return out
}

// Events returns the event registry of this entity type.
func (s *ParentSchema) Events() *Events {
	return &s.events
}

// keyColumn returns the configured key column or the default.
func (s *ParentSchema) keyColumn() string {
	if s.KeyColumn == "" {
		return DefaultKeyColumn
	}
	return s.KeyColumn
}

// lookup validates and returns the lookup table configuration with defaults
// applied.
func (s *ParentSchema) lookup() (*LookupTable, error) {
	if s.Lookup == nil || s.Lookup.Table == "" {
		return nil, NewMissingLookupTableError(s.Table)
	}
	if s.DiscriminatorColumn == "" {
		return nil, NewMissingRequiredPropertyError("parent "+s.Table, "DiscriminatorColumn")
	}
	lt := *s.Lookup
	if lt.KeyColumn == "" {
		lt.KeyColumn = DefaultKeyColumn
	}
	if lt.LabelColumn == "" {
		lt.LabelColumn = "label"
	}
	return &lt, nil
}
