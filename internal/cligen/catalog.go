package cligen

import (
	"sync"

	"github.com/tarrence/clify/internal/openapi"
)

// Catalog loads the document and builds the command tree on first access and
// caches the result.
type Catalog struct {
	load func() (*openapi.Document, error)
	opts []BuildOption

	once sync.Once
	doc  *openapi.Document
	tree *Tree
	err  error
}

func NewCatalog(load func() (*openapi.Document, error), opts ...BuildOption) *Catalog {
	return &Catalog{load: load, opts: opts}
}

func (c *Catalog) init() {
	c.once.Do(func() {
		if c.load == nil {
			c.tree = &Tree{}
			return
		}
		doc, err := c.load()
		if err != nil {
			c.err = err
			c.tree = &Tree{}
			return
		}
		c.doc = doc
		tree, err := Build(doc, c.opts...)
		if err != nil {
			c.err = err
			c.tree = &Tree{}
			return
		}
		c.tree = tree
	})
}

// Err reports why the command set is empty, if it failed to load.
func (c *Catalog) Err() error {
	c.init()
	return c.err
}

// Document is nil when loading failed.
func (c *Catalog) Document() *openapi.Document {
	c.init()
	return c.doc
}

// Tree never returns nil; on failure it is empty.
func (c *Catalog) Tree() *Tree {
	c.init()
	return c.tree
}

// ListCommands returns command names in sorted order.
func (c *Catalog) ListCommands() []string {
	return c.Tree().Names()
}

func (c *Catalog) GetCommand(name string) (*Command, bool) {
	return c.Tree().Command(name)
}
