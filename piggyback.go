package aggnet

import (
	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// resolvePiggyback scans the other live entries of the same namespace and
// generation for subset/superset relationships.
//
// A superset match registers ent as a dependent of the superset entry and
// stops the scan: ent forwards nothing and resolves when the superset
// completes. Subset matches are cumulative: each one consumes its ids
// from ent.pending into ent.waitingOn, and ent may still split whatever
// remains. Returns true for the superset (dependent) outcome.
func (e *Engine) resolvePiggyback(ent *entry) (dependent bool) {
	e.store.each(func(other *entry) bool {
		if other == ent || other.satisfied || !other.name.IsAggregate() {
			return true
		}
		if !names.SameGeneration(other.name, ent.name) {
			// Cross-generation id overlap is never a relationship.
			return true
		}

		// Sub-request bookkeeping entries are not superset providers;
		// their completion is owned by their parent.
		if !other.isSub && ent.needed.SubsetOf(other.needed) {
			other.dependents = append(other.dependents, ent.key)
			e.stats.supersetPiggybacks.Add(1)
			e.log.Debug("piggyback on superset", "name", ent.name.String(),
				"superset", other.name.String())
			dependent = true
			return false // first superset wins
		}

		// A subset provider is adopted only when every one of its ids is
		// still pending here: the provider's completion credits its whole
		// sum, so providers must consume disjoint id ranges or an
		// overlapped id would be counted twice.
		if other.needed.Len() > 0 && other.needed.SubsetOf(ent.pending) {
			for id := range other.needed {
				ent.pending.Remove(id)
				ent.waitingOn[id] = other.name
			}
			h := other.name.Handle()
			e.waiters[h] = append(e.waiters[h], ent.key)
			e.stats.subsetPiggybacks.Add(1)
			e.log.Debug("waiting on subset", "name", ent.name.String(),
				"subset", other.name.String())
		}
		return true
	})
	return
}
