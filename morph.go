package strata

import "context"

// Morph converts raw parent-table attributes into a model of the concrete
// subtype indicated by the discriminator column. When the discriminator is
// absent, its label is not registered, or the id has no lookup row, the
// base model is returned with all attributes preserved. Configuration
// failures (missing lookup table, missing required schema members) and I/O
// failures propagate as errors.
//
// Subtype-table attributes are not fetched here. Single rows load them
// lazily through Model.LoadSubtypeData; lists load them in bulk through
// Client.LoadSubtypes.
func (c *Client) Morph(ctx context.Context, raw map[string]any) (*Model, error) {
	var def *SubtypeDef
	if disc, ok := raw[c.schema.DiscriminatorColumn]; ok && disc != nil && c.schema.DiscriminatorColumn != "" {
		label, err := c.resolver.ResolveLabel(ctx, normalizeKey(disc))
		switch {
		case err == nil:
			// Unmapped labels fall back to the base model.
			def = c.schema.DefForLabel(label)
		case IsInvalidDiscriminator(err):
			// An unmatched id at read time is a fallback, not a failure.
		default:
			return nil, err
		}
	}
	m := newModel(c, def)
	m.forceFill(raw)
	m.exists = true
	m.syncOriginal()
	return m, nil
}

// normalizeKey widens machine integers so cache keys and query arguments are
// stable regardless of which numeric type the driver returned.
func normalizeKey(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case []byte:
		return string(t)
	}
	return v
}
