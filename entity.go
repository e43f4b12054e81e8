package strata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

// Cast converts raw database values into their in-memory representation.
// Cast rules declared on the parent schema compose onto morphed subtype
// instances, together with the subtype's own rules.
type Cast int

// Supported cast rules.
const (
	CastString Cast = iota
	CastInt
	CastFloat
	CastBool
	CastTime
	CastJSON
)

// applyCast converts v according to the cast rule. Values that cannot be
// converted are returned unchanged; casting is best-effort on read.
func applyCast(c Cast, v any) any {
	if v == nil {
		return nil
	}
	switch c {
	case CastString:
		switch t := v.(type) {
		case string:
			return t
		case []byte:
			return string(t)
		default:
			return fmt.Sprint(v)
		}
	case CastInt:
		switch t := v.(type) {
		case int64:
			return t
		case int:
			return int64(t)
		case float64:
			return int64(t)
		case string:
			if n, err := strconv.ParseInt(t, 10, 64); err == nil {
				return n
			}
		case []byte:
			if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
				return n
			}
		}
	case CastFloat:
		switch t := v.(type) {
		case float64:
			return t
		case int64:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return f
			}
		case []byte:
			if f, err := strconv.ParseFloat(string(t), 64); err == nil {
				return f
			}
		}
	case CastBool:
		switch t := v.(type) {
		case bool:
			return t
		case int64:
			return t != 0
		case string:
			if b, err := strconv.ParseBool(t); err == nil {
				return b
			}
		}
	case CastTime:
		switch t := v.(type) {
		case time.Time:
			return t
		case string:
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if ts, err := time.Parse(layout, t); err == nil {
					return ts
				}
			}
		}
	case CastJSON:
		var s []byte
		switch t := v.(type) {
		case string:
			s = []byte(t)
		case []byte:
			s = t
		default:
			return v
		}
		var out any
		if err := json.Unmarshal(s, &out); err == nil {
			return out
		}
	}
	return v
}

// Model is one logical row spanning the parent table and, for subtype
// instances, a subtype table. It holds the union of both attribute sets, a
// dirty baseline, and the persistence state flags.
type Model struct {
	client *Client
	schema *ParentSchema
	def    *SubtypeDef // nil for base (non-subtype) instances
	casts  map[string]Cast

	attrs    map[string]any
	original map[string]any

	exists        bool
	subtypeLoaded bool // subtype attributes fetched from storage
	subtypeExists bool // a subtype row is known to exist
}

// newModel constructs an empty model bound to the client and schema. def may
// be nil for base instances.
func newModel(c *Client, def *SubtypeDef) *Model {
	m := &Model{
		client:   c,
		schema:   c.schema,
		def:      def,
		attrs:    make(map[string]any),
		original: make(map[string]any),
		casts:    make(map[string]Cast),
	}
	for k, v := range c.schema.Casts {
		m.casts[k] = v
	}
	if def != nil {
		for k, v := range def.Casts {
			m.casts[k] = v
		}
	}
	return m
}

// Def returns the subtype definition of the model, or nil for base
// instances.
func (m *Model) Def() *SubtypeDef { return m.def }

// Label returns the subtype label, or the parent table name for base
// instances.
func (m *Model) Label() string {
	if m.def != nil {
		return m.def.Label
	}
	return m.schema.Table
}

// Exists reports whether the row is persisted.
func (m *Model) Exists() bool { return m.exists }

// SubtypeLoaded reports whether the subtype attributes were fetched from
// storage.
func (m *Model) SubtypeLoaded() bool { return m.subtypeLoaded }

// Get returns the attribute value, or nil when unset.
func (m *Model) Get(name string) any { return m.attrs[name] }

// GetString returns the attribute as a string, or "" when unset.
func (m *Model) GetString(name string) string {
	v, _ := m.attrs[name].(string)
	return v
}

// GetInt returns the attribute as an int64, converting numeric kinds.
func (m *Model) GetInt(name string) int64 {
	switch t := m.attrs[name].(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}

// Set assigns an attribute, marking it dirty when it differs from the
// loaded baseline.
func (m *Model) Set(name string, v any) *Model {
	m.attrs[name] = v
	return m
}

// Fill assigns multiple attributes through Set.
func (m *Model) Fill(attrs map[string]any) *Model {
	for k, v := range attrs {
		m.Set(k, v)
	}
	return m
}

// forceFill assigns attributes applying cast rules and without any
// assignment restrictions. Used by the load paths; loaded data is trusted.
func (m *Model) forceFill(attrs map[string]any) {
	for k, v := range attrs {
		if c, ok := m.casts[k]; ok {
			v = applyCast(c, v)
		}
		m.attrs[k] = v
	}
}

// Key returns the primary key value, or nil when the model was never saved
// and no key was assigned.
func (m *Model) Key() any { return m.attrs[m.schema.keyColumn()] }

// Attributes returns a copy of the full attribute map.
func (m *Model) Attributes() map[string]any {
	out := make(map[string]any, len(m.attrs))
	for k, v := range m.attrs {
		out[k] = v
	}
	return out
}

// SubtypeAttributes returns the subtype-table portion of the attributes.
// Empty for base instances.
func (m *Model) SubtypeAttributes() map[string]any {
	out := make(map[string]any)
	if m.def == nil {
		return out
	}
	for _, a := range m.def.Attributes {
		if v, ok := m.attrs[a]; ok {
			out[a] = v
		}
	}
	return out
}

// SubtypeTable returns the subtype table name, or "" for base instances.
func (m *Model) SubtypeTable() string {
	if m.def == nil {
		return ""
	}
	return m.def.Table
}

// SubtypeKeyName returns the shared-key column in the subtype table, or ""
// for base instances.
func (m *Model) SubtypeKeyName() string {
	if m.def == nil {
		return ""
	}
	return m.def.KeyColumn
}

// IsDirty reports whether any of the given attributes (or any attribute at
// all, when none are given) differs from the loaded baseline.
func (m *Model) IsDirty(names ...string) bool {
	if len(names) == 0 {
		return len(m.dirty()) > 0
	}
	for _, n := range names {
		if ov, ok := m.original[n]; !ok || !reflect.DeepEqual(ov, m.attrs[n]) {
			if _, set := m.attrs[n]; set || ok {
				return true
			}
		}
	}
	return false
}

// dirty returns the attributes that differ from the loaded baseline.
func (m *Model) dirty() map[string]any {
	out := make(map[string]any)
	for k, v := range m.attrs {
		if ov, ok := m.original[k]; !ok || !reflect.DeepEqual(ov, v) {
			out[k] = v
		}
	}
	return out
}

// splitDirty partitions the dirty attributes into the parent-table set and
// the subtype-table set by membership in the subtype attribute list.
func (m *Model) splitDirty() (parent, subtype map[string]any) {
	parent = make(map[string]any)
	subtype = make(map[string]any)
	for k, v := range m.dirty() {
		if m.def != nil && m.def.HasAttribute(k) {
			subtype[k] = v
		} else {
			parent[k] = v
		}
	}
	return parent, subtype
}

// syncOriginal resets the dirty baseline to the current attributes.
func (m *Model) syncOriginal() {
	m.original = make(map[string]any, len(m.attrs))
	for k, v := range m.attrs {
		m.original[k] = v
	}
}

// syncOriginalAttrs resets the dirty baseline for the given attributes only.
func (m *Model) syncOriginalAttrs(names ...string) {
	for _, n := range names {
		if v, ok := m.attrs[n]; ok {
			m.original[n] = v
		}
	}
}

// snapshot captures the full in-memory state for restore on failed saves.
type snapshot struct {
	attrs         map[string]any
	original      map[string]any
	exists        bool
	subtypeLoaded bool
	subtypeExists bool
}

func (m *Model) snapshot() snapshot {
	s := snapshot{
		attrs:         make(map[string]any, len(m.attrs)),
		original:      make(map[string]any, len(m.original)),
		exists:        m.exists,
		subtypeLoaded: m.subtypeLoaded,
		subtypeExists: m.subtypeExists,
	}
	for k, v := range m.attrs {
		s.attrs[k] = v
	}
	for k, v := range m.original {
		s.original[k] = v
	}
	return s
}

func (m *Model) restore(s snapshot) {
	m.attrs = s.attrs
	m.original = s.original
	m.exists = s.exists
	m.subtypeLoaded = s.subtypeLoaded
	m.subtypeExists = s.subtypeExists
}

// anySubtypeAttrSet reports whether any subtype attribute is currently
// non-nil. This is the legacy "already loaded" heuristic used only for
// models whose explicit loaded flag is unset; it misfires when every
// subtype attribute is legitimately NULL.
func (m *Model) anySubtypeAttrSet() bool {
	if m.def == nil {
		return false
	}
	for _, a := range m.def.Attributes {
		if v, ok := m.attrs[a]; ok && v != nil {
			return true
		}
	}
	return false
}
