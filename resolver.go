package strata

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/strata/dialect/sql"
)

// Resolver maps discriminator ids to labels through the lookup table, and
// labels back to ids for insert-time assignment. Resolved pairs are cached
// per connection and parent table; concurrent lookups of the same id are
// collapsed into one query.
type Resolver struct {
	client *Client
	group  singleflight.Group
}

func newResolver(c *Client) *Resolver {
	return &Resolver{client: c}
}

func (r *Resolver) cachePrefix() string {
	return "strata:disc:" + r.client.connKey + ":" + r.client.schema.Table + ":"
}

// ResolveLabel looks up the discriminator id in the lookup table and returns
// its label. Fails with MissingLookupTableError when no lookup table is
// configured, and with InvalidDiscriminatorError when the id has no row.
func (r *Resolver) ResolveLabel(ctx context.Context, typeID any) (string, error) {
	lt, err := r.client.schema.lookup()
	if err != nil {
		return "", err
	}
	key := r.cachePrefix() + "label:" + fmt.Sprint(typeID)
	var label string
	if ok, err := cacheGet(ctx, r.client.cache, key, &label); err != nil {
		return "", err
	} else if ok {
		return label, nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		query, args := sql.Select(lt.LabelColumn).
			From(lt.Table).
			Where(sql.EQ(lt.KeyColumn, typeID)).
			Limit(1).
			SetDialect(r.client.drv.Dialect()).
			Query()
		rows := &sql.Rows{}
		if err := r.client.drv.Query(ctx, query, args, rows); err != nil {
			return "", err
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return "", err
			}
			return "", NewInvalidDiscriminatorError(typeID)
		}
		var label string
		if err := rows.Scan(&label); err != nil {
			return "", err
		}
		if err := cachePut(ctx, r.client.cache, key, label); err != nil {
			return "", err
		}
		return label, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ResolveTypeID performs the inverse lookup: the discriminator id whose
// lookup row carries the given label. Fails with TypeResolutionError when
// the label has no lookup row.
func (r *Resolver) ResolveTypeID(ctx context.Context, label string) (any, error) {
	lt, err := r.client.schema.lookup()
	if err != nil {
		return nil, err
	}
	key := r.cachePrefix() + "id:" + label
	var id int64
	if ok, err := cacheGet(ctx, r.client.cache, key, &id); err != nil {
		return nil, err
	} else if ok {
		return id, nil
	}
	v, err, _ := r.group.Do(key, func() (any, error) {
		query, args := sql.Select(lt.KeyColumn).
			From(lt.Table).
			Where(sql.EQ(lt.LabelColumn, label)).
			Limit(1).
			SetDialect(r.client.drv.Dialect()).
			Query()
		rows := &sql.Rows{}
		if err := r.client.drv.Query(ctx, query, args, rows); err != nil {
			return nil, err
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return nil, err
			}
			return nil, NewTypeResolutionError(label)
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if err := cachePut(ctx, r.client.cache, key, id); err != nil {
			return nil, err
		}
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DefForLabel returns the subtype definition mapped to the label, or nil.
// Pure registry lookup, no I/O.
func (r *Resolver) DefForLabel(label string) *SubtypeDef {
	return r.client.schema.DefForLabel(label)
}

// ClearCache drops all cached discriminator resolutions for this client's
// connection and parent table.
func (r *Resolver) ClearCache(ctx context.Context) error {
	return r.client.cache.DeletePrefix(ctx, r.cachePrefix())
}
