package catalog

import "github.com/puzpuzpuz/xsync/v3"

// Cache is the read-side table-schema cache of §5: "the catalog cache is
// guarded by the same writer discipline as the datastore; readers see a
// consistent snapshot." Mutation only ever happens from inside the
// single-writer transaction path in internal/datastore, so the cache
// itself only needs to give lock-free concurrent reads; xsync.MapOf
// supplies that (grounded on sdks/go, the sibling module in the teacher's
// monorepo, which already depends on it for concurrent client state —
// see DESIGN.md).
type Cache struct {
	byID   *xsync.MapOf[TableID, *TableSchema]
	byName *xsync.MapOf[string, TableID]
}

func NewCache() *Cache {
	return &Cache{
		byID:   xsync.NewMapOf[TableID, *TableSchema](),
		byName: xsync.NewMapOf[string, TableID](),
	}
}

// Put installs (or replaces) the schema for its table ID, indexing it by
// name as well. Callers must pass a schema they will not mutate further;
// Get returns Clone()s so readers never observe a later in-place edit.
func (c *Cache) Put(schema *TableSchema) {
	c.byID.Store(schema.TableID, schema)
	c.byName.Store(schema.Name, schema.TableID)
}

func (c *Cache) Get(id TableID) (*TableSchema, bool) {
	s, ok := c.byID.Load(id)
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (c *Cache) GetByName(name string) (*TableSchema, bool) {
	id, ok := c.byName.Load(name)
	if !ok {
		return nil, false
	}
	return c.Get(id)
}

func (c *Cache) Delete(id TableID) {
	if s, ok := c.byID.Load(id); ok {
		c.byName.Delete(s.Name)
	}
	c.byID.Delete(id)
}

// Snapshot returns every cached schema, cloned.
func (c *Cache) Snapshot() []*TableSchema {
	out := make([]*TableSchema, 0, c.byID.Size())
	c.byID.Range(func(id TableID, s *TableSchema) bool {
		out = append(out, s.Clone())
		return true
	})
	return out
}

// Clone returns an independent deep copy of the cache, used to give a
// MutTxId its own private overlay that can be discarded on rollback
// without touching the committed base (§4.4 "write-set... discarded" on
// rollback).
func (c *Cache) Clone() *Cache {
	clone := NewCache()
	c.byID.Range(func(id TableID, s *TableSchema) bool {
		clone.Put(s.Clone())
		return true
	})
	return clone
}
