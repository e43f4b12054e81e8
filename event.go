package strata

import "context"

// SavingHook runs before a save. Returning false cancels the entire
// operation, including the parent-table write, before any I/O happens.
type SavingHook func(context.Context, *Model) bool

// SavedHook runs after a successful save.
type SavedHook func(context.Context, *Model)

// DeletingHook runs before a delete. Returning false cancels the entire
// operation before any I/O happens.
type DeletingHook func(context.Context, *Model) bool

// DeletedHook runs after the subtype row has been deleted, before the
// parent row is removed.
type DeletedHook func(context.Context, *Model)

// Events is the per-entity-type registry of lifecycle hooks. The saving and
// deleting classes are cancellable; the saved and deleted classes are
// fire-and-forget.
type Events struct {
	saving   []SavingHook
	saved    []SavedHook
	deleting []DeletingHook
	deleted  []DeletedHook
}

// OnSaving registers a cancellable pre-save hook.
func (e *Events) OnSaving(h SavingHook) *Events {
	e.saving = append(e.saving, h)
	return e
}

// OnSaved registers a post-save hook.
func (e *Events) OnSaved(h SavedHook) *Events {
	e.saved = append(e.saved, h)
	return e
}

// OnDeleting registers a cancellable pre-delete hook.
func (e *Events) OnDeleting(h DeletingHook) *Events {
	e.deleting = append(e.deleting, h)
	return e
}

// OnDeleted registers a post-delete hook.
func (e *Events) OnDeleted(h DeletedHook) *Events {
	e.deleted = append(e.deleted, h)
	return e
}

// fireSaving runs the pre-save hooks. The first hook returning false stops
// the chain.
func (e *Events) fireSaving(ctx context.Context, m *Model) bool {
	for _, h := range e.saving {
		if !h(ctx, m) {
			return false
		}
	}
	return true
}

func (e *Events) fireSaved(ctx context.Context, m *Model) {
	for _, h := range e.saved {
		h(ctx, m)
	}
}

// fireDeleting runs the pre-delete hooks. The first hook returning false
// stops the chain.
func (e *Events) fireDeleting(ctx context.Context, m *Model) bool {
	for _, h := range e.deleting {
		if !h(ctx, m) {
			return false
		}
	}
	return true
}

func (e *Events) fireDeleted(ctx context.Context, m *Model) {
	for _, h := range e.deleted {
		h(ctx, m)
	}
}
