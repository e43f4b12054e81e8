package strata

import (
	"context"
	"sort"
	"time"

	"github.com/syssam/strata/dialect"
	"github.com/syssam/strata/dialect/sql"
)

// Save persists the model: dirty attributes are split into the parent-table
// and subtype-table sets and written as one unit inside a transaction. On
// first insert the discriminator is assigned from the subtype registry and
// lookup table unless an explicit value was set. Returns false without
// error when a pre-save hook cancels; on write failure the transaction is
// rolled back and the in-memory attributes are restored to their pre-call
// snapshot.
//
// Models without a subtype definition degrade to a plain single-table
// write.
func (m *Model) Save(ctx context.Context) (bool, error) {
	c := m.client
	if m.def != nil && m.def.Table == "" {
		return false, NewMissingSubtypeTableError(m.def.Label)
	}
	if !c.schema.events.fireSaving(ctx, m) {
		return false, nil
	}
	if err := c.validator.validate(ctx, m.def); err != nil {
		return false, err
	}
	if m.exists && !m.IsDirty() {
		// Nothing to write; the operation is a successful no-op.
		c.schema.events.fireSaved(ctx, m)
		return true, nil
	}
	snap := m.snapshot()
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return false, NewSaveError(m.Label(), err)
	}
	if err := m.performSave(ctx, tx); err != nil {
		m.restore(snap)
		if rerr := tx.Rollback(); rerr != nil {
			return false, NewSaveError(m.Label(), rerr)
		}
		return false, err
	}
	if err := tx.Commit(); err != nil {
		m.restore(snap)
		return false, NewSaveError(m.Label(), err)
	}
	m.exists = true
	m.syncOriginal()
	c.schema.events.fireSaved(ctx, m)
	return true, nil
}

// performSave runs the parent-write and subtype-write stages on the given
// transaction. Typed configuration errors propagate as-is; storage errors
// come back wrapped in SaveError.
func (m *Model) performSave(ctx context.Context, tx dialect.Tx) error {
	c := m.client
	firstInsert := !m.exists
	if firstInsert && m.def != nil && c.schema.DiscriminatorColumn != "" {
		if v, ok := m.attrs[c.schema.DiscriminatorColumn]; !ok || v == nil {
			// Explicit user values win; otherwise the registry label is
			// resolved to its lookup-table id. Unresolvable labels are a
			// hard stop, since the row would be unreadable later.
			id, err := c.resolver.ResolveTypeID(ctx, m.def.Label)
			if err != nil {
				return err
			}
			m.attrs[c.schema.DiscriminatorColumn] = id
		}
	}
	if c.schema.Timestamps {
		now := time.Now().UTC().Truncate(time.Second)
		if firstInsert {
			if _, ok := m.attrs[CreatedAtColumn]; !ok {
				m.attrs[CreatedAtColumn] = now
			}
		}
		m.attrs[UpdatedAtColumn] = now
	}
	parentSet, subtypeSet := m.splitDirty()
	if firstInsert {
		if err := m.insertParent(ctx, tx, parentSet); err != nil {
			return err
		}
	} else if len(parentSet) > 0 {
		ub := sql.Update(c.schema.Table).SetDialect(c.drv.Dialect())
		for _, col := range sortedKeys(parentSet) {
			ub.Set(col, parentSet[col])
		}
		ub.Where(sql.EQ(c.schema.keyColumn(), normalizeKey(m.Key())))
		query, args := ub.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return NewSaveError(m.Label(), err)
		}
	}
	if m.def != nil && (firstInsert || len(subtypeSet) > 0) {
		if err := m.writeSubtype(ctx, tx, firstInsert, subtypeSet); err != nil {
			return err
		}
	}
	return nil
}

// insertParent writes the parent-table attribute set and reconciles the
// generated key back onto the model.
func (m *Model) insertParent(ctx context.Context, tx dialect.Tx, parentSet map[string]any) error {
	c := m.client
	cols := sortedKeys(parentSet)
	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = parentSet[col]
	}
	ib := sql.Insert(c.schema.Table).
		SetDialect(c.drv.Dialect()).
		Columns(cols...).
		Values(vals...)
	keyCol := c.schema.keyColumn()
	if _, ok := parentSet[keyCol]; ok {
		// Caller-assigned key (e.g. uuid); nothing to reconcile.
		query, args := ib.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return NewSaveError(m.Label(), err)
		}
		return nil
	}
	if c.drv.Dialect() == dialect.Postgres {
		query, args := ib.Returning(keyCol).Query()
		rows := &sql.Rows{}
		if err := tx.Query(ctx, query, args, rows); err != nil {
			return NewSaveError(m.Label(), err)
		}
		defer rows.Close()
		if rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return NewSaveError(m.Label(), err)
			}
			m.attrs[keyCol] = id
		}
		if err := rows.Err(); err != nil {
			return NewSaveError(m.Label(), err)
		}
		return nil
	}
	query, args := ib.Query()
	var res sql.Result
	if err := tx.Exec(ctx, query, args, &res); err != nil {
		return NewSaveError(m.Label(), err)
	}
	if id, err := res.LastInsertId(); err == nil {
		m.attrs[keyCol] = id
	}
	return nil
}

// writeSubtype writes the subtype-table attribute set keyed by the shared
// key. First inserts carry every set subtype attribute; later saves update
// only the dirty subset. For an existing model whose subtype data was never
// fetched, storage is probed inside the transaction so the insert-or-update
// choice reflects the actual row, not the in-memory flags.
func (m *Model) writeSubtype(ctx context.Context, tx dialect.Tx, firstInsert bool, subtypeSet map[string]any) error {
	c := m.client
	key := m.Key()
	if key == nil {
		return NewMissingDiscriminatorKeyError(m.def.Label)
	}
	if !firstInsert && !m.subtypeLoaded && !m.subtypeExists {
		exists, err := m.subtypeRowExists(ctx, tx, key)
		if err != nil {
			return NewSaveError(m.def.Label, err)
		}
		m.subtypeExists = exists
	}
	if firstInsert || !m.subtypeExists {
		set := m.SubtypeAttributes()
		cols := append([]string{m.def.KeyColumn}, sortedKeys(set)...)
		vals := make([]any, 0, len(cols))
		vals = append(vals, normalizeKey(key))
		for _, col := range cols[1:] {
			vals = append(vals, set[col])
		}
		query, args := sql.Insert(m.def.Table).
			SetDialect(c.drv.Dialect()).
			Columns(cols...).
			Values(vals...).
			Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return NewSaveError(m.def.Label, err)
		}
		// The freshly written row carries exactly the in-memory attribute
		// set, so the model counts as loaded from here on.
		m.subtypeExists = true
		m.subtypeLoaded = true
		return nil
	}
	ub := sql.Update(m.def.Table).SetDialect(c.drv.Dialect())
	for _, col := range sortedKeys(subtypeSet) {
		ub.Set(col, subtypeSet[col])
	}
	ub.Where(sql.EQ(m.def.KeyColumn, normalizeKey(key)))
	query, args := ub.Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return NewSaveError(m.def.Label, err)
	}
	return nil
}

// subtypeRowExists reports whether a subtype row is present for the key.
func (m *Model) subtypeRowExists(ctx context.Context, tx dialect.Tx, key any) (bool, error) {
	query, args := sql.Select(m.def.KeyColumn).
		From(m.def.Table).
		Where(sql.EQ(m.def.KeyColumn, normalizeKey(key))).
		Limit(1).
		SetDialect(m.client.drv.Dialect()).
		Query()
	rows := &sql.Rows{}
	if err := tx.Query(ctx, query, args, rows); err != nil {
		return false, err
	}
	defer rows.Close()
	exists := rows.Next()
	return exists, rows.Err()
}

// Delete removes the model from storage: the subtype row first, then the
// parent row, as one transaction. Returns false without error when a
// pre-delete hook cancels or the model was never persisted. A missing
// subtype row at delete time is not an error.
func (m *Model) Delete(ctx context.Context) (bool, error) {
	c := m.client
	if !m.exists {
		return false, nil
	}
	if !c.schema.events.fireDeleting(ctx, m) {
		return false, nil
	}
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return false, NewDeleteError(m.Label(), err)
	}
	if err := m.performDelete(ctx, tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return false, NewDeleteError(m.Label(), rerr)
		}
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, NewDeleteError(m.Label(), err)
	}
	m.exists = false
	m.subtypeExists = false
	m.subtypeLoaded = false
	return true, nil
}

func (m *Model) performDelete(ctx context.Context, tx dialect.Tx) error {
	c := m.client
	key := m.Key()
	if m.def != nil {
		if key == nil {
			return NewMissingDiscriminatorKeyError(m.def.Label)
		}
		query, args := sql.Delete(m.def.Table).
			SetDialect(c.drv.Dialect()).
			Where(sql.EQ(m.def.KeyColumn, normalizeKey(key))).
			Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return NewDeleteError(m.def.Label, err)
		}
	}
	// Subtype row is gone; referential order requires the parent last.
	c.schema.events.fireDeleted(ctx, m)
	query, args := sql.Delete(c.schema.Table).
		SetDialect(c.drv.Dialect()).
		Where(sql.EQ(c.schema.keyColumn(), normalizeKey(key))).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return NewDeleteError(m.Label(), err)
	}
	return nil
}

// LoadSubtypeData fetches the subtype-table attributes for this single
// model. Callers iterating list results should prefer Client.LoadSubtypes;
// this entry point serves cursor-style paths that bypass batching. A
// missing subtype row leaves the attributes untouched and is not an error.
func (m *Model) LoadSubtypeData(ctx context.Context) error {
	if m.def == nil {
		return nil
	}
	if m.def.Table == "" {
		return NewMissingSubtypeTableError(m.def.Label)
	}
	key := m.Key()
	if key == nil {
		return NewMissingDiscriminatorKeyError(m.def.Label)
	}
	c := m.client
	cols := append([]string{m.def.KeyColumn}, m.def.Attributes...)
	query, args := sql.Select(cols...).
		From(m.def.Table).
		Where(sql.EQ(m.def.KeyColumn, normalizeKey(key))).
		Limit(1).
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
	if len(maps) > 0 {
		row := maps[0]
		delete(row, m.def.KeyColumn)
		m.forceFill(row)
		m.syncOriginalAttrs(m.def.Attributes...)
		m.subtypeExists = true
	}
	m.subtypeLoaded = true
	return nil
}

// sortedKeys returns the map keys in sorted order, for deterministic
// statement generation.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
