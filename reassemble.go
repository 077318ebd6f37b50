package aggnet

import (
	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// OnResponseReceived consumes an inbound response: fold it into the
// parent that spawned it as a sub-request, feed every entry waiting on
// its name, or fall through to ordinary per-entry delivery. Completions
// may cascade: a finished entry synthesizes its own response, which in
// turn resolves dependents and waiters.
func (e *Engine) OnResponseReceived(r names.Name, v uint64, in Face) {
	e.lock.Lock()
	defer e.lock.Unlock()

	h := r.Handle()
	covered := r.IDs()

	subMatched := e.foldIntoParent(r, covered, v)

	waiterMatched := false
	if _, ok := e.waiters[h]; ok {
		waiterMatched = true
		e.drainWaiters(r, v, covered)
	}

	// First-seen direct responses from a source populate the cache for
	// future subset/superset matching.
	if !subMatched && !waiterMatched && covered.Len() == 1 {
		for id := range covered {
			e.cache.Put(id, v)
		}
	}

	// Ordinary per-entry delivery. Entries consumed above were torn down
	// already, so this fires only for a standard, non-aggregating receive.
	if ent := e.store.byName(r); ent != nil && !ent.satisfied {
		e.log.Debug("response delivered", "name", r.String(), "value", v)
		e.finalize(ent, v)
		return
	}

	if !subMatched && !waiterMatched {
		if _, ok := e.recent.Get(r.String()); ok {
			e.stats.lateResponses.Add(1)
			e.log.Debug("late response for satisfied name", "name", r.String())
		} else {
			e.stats.unsolicited.Add(1)
			e.log.Debug("unsolicited response", "name", r.String())
		}
	}
}

// foldIntoParent handles a response to a sub-request spawned by a split:
// credit the value to the parent, retire the bookkeeping entry, and
// complete the parent when nothing is pending or waited for anymore. The
// parent link is removed no matter the outcome.
func (e *Engine) foldIntoParent(r names.Name, covered names.IDSet, v uint64) bool {
	h := r.Handle()
	ph, ok := e.parents[h]
	if !ok {
		return false
	}
	delete(e.parents, h)

	sub := e.store.byName(r)
	parent := e.store.get(ph)
	if parent == nil || parent.satisfied {
		e.stats.staleRefs.Add(1)
		e.log.Debug("parent gone for sub-response", "name", r.String())
		if sub != nil && !sub.satisfied {
			// Defensive delivery: the parent is gone, but the sub-request
			// kept its own downstream record for exactly this case.
			e.finalize(sub, v)
		}
		return true
	}

	if sub != nil && !sub.satisfied {
		// Faces that asked for this exact name (dedup-merged onto the
		// bookkeeping entry) get its response now. Faces seeded from the
		// parent stay silent here; their answer is the parent's own
		// completion.
		for id, f := range sub.down {
			if _, seeded := parent.down[id]; seeded {
				continue
			}
			if err := f.SendResponse(r, v); err != nil {
				e.log.Warn("deliver failed", "name", r.String(), "face", f.ID(), "err", err)
			}
			e.stats.deliveries.Add(1)
		}
		e.teardown(sub)
	}

	parent.partialSum += v
	for id := range covered {
		parent.pending.Remove(id)
	}
	if covered.Len() == 1 {
		for id := range covered {
			e.cache.Put(id, v)
		}
	}
	e.log.Debug("sub-response folded", "name", r.String(), "value", v,
		"parent", parent.name.String(), "remaining", parent.pending.String())

	if parent.pending.Len() == 0 && len(parent.waitingOn) == 0 {
		e.finalize(parent, parent.partialSum)
	}
	return true
}

// drainWaiters feeds a completed name to every entry waiting on it and
// completes those left with nothing pending and nothing waited for. The
// waiter list for the name is removed once drained.
func (e *Engine) drainWaiters(provider names.Name, v uint64, covered names.IDSet) {
	list, ok := e.waiters[provider.Handle()]
	if !ok {
		return
	}
	delete(e.waiters, provider.Handle())

	for _, wh := range list {
		w := e.store.get(wh)
		if w == nil || w.satisfied {
			e.stats.staleRefs.Add(1)
			e.log.Debug("waiter gone", "provider", provider.String())
			continue
		}
		w.partialSum += v
		for id := range covered {
			w.pending.Remove(id)
		}
		// Ids parked in waitingOn rather than pendingIds: keep the two
		// tracking structures consistent.
		for id, src := range w.waitingOn {
			if src.Equal(provider) {
				delete(w.waitingOn, id)
			}
		}
		e.log.Debug("waiter credited", "name", w.name.String(), "value", v,
			"remaining", w.pending.String(), "waiting", len(w.waitingOn))

		if w.pending.Len() == 0 && len(w.waitingOn) == 0 {
			e.finalize(w, w.partialSum)
		}
	}
}
