package strata

import (
	"context"
	"sort"

	"github.com/syssam/strata/dialect/sql"
)

// validator checks that a subtype's declared attributes are disjoint from
// the parent table columns. Schema introspection is expensive, so a passing
// result is cached per connection and subtype.
type validator struct {
	client *Client
}

func newValidator(c *Client) *validator {
	return &validator{client: c}
}

func (v *validator) cachePrefix() string {
	return "strata:overlap:" + v.client.connKey + ":" + v.client.schema.Table + ":"
}

// validate raises OverlappingColumnsError when any subtype attribute also
// exists as a parent table column.
func (v *validator) validate(ctx context.Context, def *SubtypeDef) error {
	if def == nil {
		return nil
	}
	key := v.cachePrefix() + def.Label
	var ok bool
	if hit, err := cacheGet(ctx, v.client.cache, key, &ok); err != nil {
		return err
	} else if hit && ok {
		return nil
	}
	columns, err := sql.TableColumns(ctx, v.client.drv, v.client.schema.Table)
	if err != nil {
		return err
	}
	var overlap []string
	for _, c := range columns {
		if def.HasAttribute(c) {
			overlap = append(overlap, c)
		}
	}
	if len(overlap) > 0 {
		sort.Strings(overlap)
		return NewOverlappingColumnsError(def.Label, overlap)
	}
	return cachePut(ctx, v.client.cache, key, true)
}

func (v *validator) clearCache(ctx context.Context) error {
	return v.client.cache.DeletePrefix(ctx, v.cachePrefix())
}

// ValidateSubtype checks the subtype's attribute list against the parent
// table columns. Save calls this implicitly; it is exposed for explicit
// startup validation.
func (c *Client) ValidateSubtype(ctx context.Context, def *SubtypeDef) error {
	return c.validator.validate(ctx, def)
}

// ClearCaches drops the discriminator and validation caches for this
// client. Intended for tests and runtime schema changes.
func (c *Client) ClearCaches(ctx context.Context) error {
	if err := c.resolver.ClearCache(ctx); err != nil {
		return err
	}
	return c.validator.clearCache(ctx)
}
