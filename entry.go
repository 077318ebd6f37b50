package aggnet

import (
	"fmt"
	"time"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// entry is the live state of one outstanding request (PIT entry).
//
// State machine:
//
//	created → (cache-resolved | piggyback-dependent | splitting)
//	        → awaiting-children → satisfied → removed
//
// or created → … → expired → removed. Once satisfied or expired the entry
// is inert: pendingIds/partialSum never change again and all face sets are
// cleared.
type entry struct {
	name names.Name
	key  uint64 // arena handle, names.Name.Handle()

	needed  names.IDSet // full id set originally requested, immutable
	pending names.IDSet // ids not yet resolved, shrinks to empty

	partialSum uint64

	down map[uint64]Face // faces that asked for this exact name
	up   map[uint64]Face // faces sub-requests were forwarded to

	dependents []uint64               // handles of full-subset piggybackers
	waitingOn  map[uint64]names.Name  // id → name of the providing entry

	satisfied  bool
	isSub      bool // sub-request bookkeeping entry spawned by a split
	intakeDone bool // first full intake pass finished

	timer    Timer
	lifetime time.Duration
}

// resolvedCount is the number of needed ids accounted for in partialSum.
func (e *entry) resolvedCount() int {
	parked := 0
	for id := range e.waitingOn {
		if e.needed.Has(id) {
			parked++
		}
	}
	return e.needed.Len() - e.pending.Len() - parked
}

// invariants checks the entry bookkeeping: every needed id sits in exactly one
// of {resolved, pending, waited-for}, and a satisfied entry holds no
// faces. Used by tests; a violation is a programming error.
func (e *entry) invariants() error {
	for id := range e.pending {
		if !e.needed.Has(id) {
			return fmt.Errorf("entry %s: pending id %d not in needed set", e.name, id)
		}
		if _, ok := e.waitingOn[id]; ok {
			return fmt.Errorf("entry %s: id %d both pending and waited-for", e.name, id)
		}
	}
	for id := range e.waitingOn {
		if !e.needed.Has(id) {
			return fmt.Errorf("entry %s: waited-for id %d not in needed set", e.name, id)
		}
	}
	if e.satisfied && (len(e.down) != 0 || len(e.up) != 0) {
		return fmt.Errorf("entry %s: satisfied but still holds faces", e.name)
	}
	if e.resolvedCount() < 0 {
		return fmt.Errorf("entry %s: more ids tracked than needed", e.name)
	}
	return nil
}

// pendingStore owns all live entries, addressed by the 64-bit handle of
// their canonical name. Weak references elsewhere (parent links, waiter
// lists, dependents) store handles and re-resolve them here; a missing
// handle is a stale reference, never a dangling pointer.
type pendingStore struct {
	arena map[uint64]*entry
}

func newPendingStore() pendingStore {
	return pendingStore{arena: make(map[uint64]*entry)}
}

// getOrCreate fetches the live entry for name or atomically creates one
// with pending = needed = parsed id set. The caller holds the node lock,
// so no one can observe a half-initialized entry.
func (s *pendingStore) getOrCreate(name names.Name) (*entry, bool) {
	key := name.Handle()
	if e, ok := s.arena[key]; ok {
		return e, false
	}
	ids := name.IDs()
	e := &entry{
		name:      name,
		key:       key,
		needed:    ids,
		pending:   ids.Clone(),
		down:      make(map[uint64]Face),
		up:        make(map[uint64]Face),
		waitingOn: make(map[uint64]names.Name),
	}
	s.arena[key] = e
	return e, true
}

// get resolves a weak handle; nil means the entry is gone.
func (s *pendingStore) get(key uint64) *entry {
	return s.arena[key]
}

// byName resolves a name, guarding against handle reuse by a different
// name (treated as absent).
func (s *pendingStore) byName(name names.Name) *entry {
	e := s.arena[name.Handle()]
	if e == nil || !e.name.Equal(name) {
		return nil
	}
	return e
}

func (s *pendingStore) remove(e *entry) {
	delete(s.arena, e.key)
}

func (s *pendingStore) len() int {
	return len(s.arena)
}

// each iterates live entries; fn returns false to stop.
func (s *pendingStore) each(fn func(*entry) bool) {
	for _, e := range s.arena {
		if !fn(e) {
			return
		}
	}
}
