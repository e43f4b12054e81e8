package strata

import (
	"context"

	"github.com/syssam/strata/dialect/sql"
)

// LoadSubtypes fills in the subtype-table attributes for a list of models
// with exactly one query per distinct subtype definition represented in the
// list, regardless of list size. Models without a subtype definition,
// without a primary key, or whose subtype data is already loaded are
// skipped. The operation is idempotent and order-preserving; an empty input
// issues zero queries.
func (c *Client) LoadSubtypes(ctx context.Context, models []*Model) error {
	pending := make([]*Model, 0, len(models))
	for _, m := range models {
		if m == nil || m.def == nil || m.def.Table == "" || m.Key() == nil {
			continue
		}
		// The explicit loaded flag is authoritative. The non-nil-attribute
		// heuristic covers models built outside the load paths; it misfires
		// when every subtype attribute is legitimately NULL.
		if m.subtypeLoaded || m.anySubtypeAttrSet() {
			continue
		}
		pending = append(pending, m)
	}
	if len(pending) == 0 {
		return nil
	}
	defs, groups := groupByDef(pending)
	for _, def := range defs {
		if err := c.loadSubtypeGroup(ctx, def, groups[def]); err != nil {
			return err
		}
	}
	return nil
}

// groupByDef groups models by their concrete subtype definition, not by
// label: two labels sharing a definition share its table and must share the
// query. Definitions are returned in first-seen order so the per-group
// queries run deterministically.
func groupByDef(models []*Model) ([]*SubtypeDef, map[*SubtypeDef][]*Model) {
	var defs []*SubtypeDef
	groups := make(map[*SubtypeDef][]*Model)
	for _, m := range models {
		if _, ok := groups[m.def]; !ok {
			defs = append(defs, m.def)
		}
		groups[m.def] = append(groups[m.def], m)
	}
	return defs, groups
}

// loadSubtypeGroup issues the single IN query for one subtype definition
// and merges the rows into their models by shared key.
func (c *Client) loadSubtypeGroup(ctx context.Context, def *SubtypeDef, group []*Model) error {
	keys := make([]any, 0, len(group))
	seen := make(map[any]struct{}, len(group))
	for _, m := range group {
		k := normalizeKey(m.Key())
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	cols := append([]string{def.KeyColumn}, def.Attributes...)
	query, args := sql.Select(cols...).
		From(def.Table).
		Where(sql.In(def.KeyColumn, keys...)).
		SetDialect(c.drv.Dialect()).
		Query()
	rows := &sql.Rows{}
	if err := c.drv.Query(ctx, query, args, rows); err != nil {
		return err
	}
	maps, err := sql.ScanMaps(rows)
	if err != nil {
		return err
	}
	byKey := make(map[any]map[string]any, len(maps))
	for _, row := range maps {
		byKey[normalizeKey(row[def.KeyColumn])] = row
	}
	for _, m := range group {
		if row, ok := byKey[normalizeKey(m.Key())]; ok {
			merged := make(map[string]any, len(row))
			for k, v := range row {
				if k != def.KeyColumn {
					merged[k] = v
				}
			}
			// Batch-loaded data is trusted: force-fill, then reset the
			// dirty baseline so merged columns don't read as changed.
			m.forceFill(merged)
			m.syncOriginalAttrs(def.Attributes...)
			m.subtypeExists = true
		}
		m.subtypeLoaded = true
	}
	return nil
}
