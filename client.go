package strata

import (
	"fmt"

	"github.com/syssam/strata/dialect"
)

// Client binds a ParentSchema to a database connection and exposes the
// mapping-layer operations: constructing and morphing models, querying,
// and batch subtype loading. Persistence runs through the models it hands
// out.
type Client struct {
	drv       dialect.Driver
	schema    *ParentSchema
	cache     Cache
	resolver  *Resolver
	validator *validator
	connKey   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCache replaces the default in-memory cache backing the resolver and
// validation caches.
func WithCache(c Cache) ClientOption {
	return func(cl *Client) { cl.cache = c }
}

// NewClient returns a Client for the schema over the given driver.
func NewClient(drv dialect.Driver, schema *ParentSchema, opts ...ClientOption) *Client {
	c := &Client{
		drv:    drv,
		schema: schema,
		// Labels are connection-scoped, so cache keys embed the
		// connection identity.
		connKey: fmt.Sprintf("%p", drv),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewMemCache()
	}
	c.resolver = newResolver(c)
	c.validator = newValidator(c)
	return c
}

// Driver returns the underlying driver.
func (c *Client) Driver() dialect.Driver { return c.drv }

// Schema returns the parent schema the client is bound to.
func (c *Client) Schema() *ParentSchema { return c.schema }

// Resolver returns the discriminator resolver.
func (c *Client) Resolver() *Resolver { return c.resolver }

// NewModel constructs a fresh, unsaved model. A nil def yields a base
// (plain, single-table) instance.
func (c *Client) NewModel(def *SubtypeDef) *Model {
	return newModel(c, def)
}

// New constructs a fresh model of the subtype mapped to the label.
func (c *Client) New(label string) (*Model, error) {
	def := c.schema.DefForLabel(label)
	if def == nil {
		return nil, fmt.Errorf("strata: label %q is not registered on parent %q", label, c.schema.Table)
	}
	return newModel(c, def), nil
}
