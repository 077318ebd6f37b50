package aggnet

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// ValueCache maps source ids to their last observed scalar value. It is
// written whenever an atomic (single-id) response passes the node and read
// opportunistically on request intake and dependent resolution.
//
// The cache grows monotonically: no eviction, no TTL. A stale value is
// superseded only by a newer atomic response for the same id.
type ValueCache struct {
	m *xsync.MapOf[uint64, uint64]
}

func NewValueCache() *ValueCache {
	return &ValueCache{m: xsync.NewMapOf[uint64, uint64]()}
}

func (c *ValueCache) Get(id uint64) (uint64, bool) {
	return c.m.Load(id)
}

func (c *ValueCache) Put(id uint64, value uint64) {
	c.m.Store(id, value)
}

func (c *ValueCache) Len() int {
	return c.m.Size()
}

// Snapshot copies the cache for introspection (REPL, tests).
func (c *ValueCache) Snapshot() map[uint64]uint64 {
	out := make(map[uint64]uint64, c.m.Size())
	c.m.Range(func(id, v uint64) bool {
		out[id] = v
		return true
	})
	return out
}
