package aggnet

import (
	"github.com/zzhang154/Decentralized-Aggregation/names"
)

type hopGroup struct {
	face Face
	ids  names.IDSet
}

// splitAndForward partitions the entry's unresolved ids by next hop and
// forwards one optimized request or several sub-requests. Ids without a
// route are never forwarded; the entry stalls on them until expiry.
func (e *Engine) splitAndForward(ent *entry, in Face) {
	groups := make(map[uint64]*hopGroup)
	order := make([]*hopGroup, 0, 2)

	for _, id := range ent.pending.Sorted() {
		hops := e.routes.Lookup(names.Singleton(id))
		if len(hops) == 0 {
			e.stats.noRoute.Add(1)
			e.log.Warn("no route for id", "name", ent.name.String(), "id", id)
			continue
		}
		hop := hops[0] // cheapest, then first-seen
		g := groups[hop.Face.ID()]
		if g == nil {
			g = &hopGroup{face: hop.Face, ids: names.IDSet{}}
			groups[hop.Face.ID()] = g
			order = append(order, g)
		}
		g.ids.Add(id)
	}
	if len(order) == 0 {
		return
	}

	gen, _ := ent.name.Generation()

	// Single-hop optimization: one next hop covers every unresolved id.
	if len(order) == 1 && order[0].ids.Len() == ent.pending.Len() {
		g := order[0]
		if ent.needed.Equal(ent.pending) {
			// The original request already asks for exactly these ids:
			// forward it verbatim and keep the inbound face on record.
			if err := g.face.SendRequest(ent.name, ent.lifetime); err != nil {
				e.log.Warn("forward failed", "name", ent.name.String(), "face", g.face.ID(), "err", err)
			}
			ent.up[g.face.ID()] = g.face
			ent.down[in.ID()] = in
			e.stats.forwards.Add(1)
			e.log.Debug("forwarded verbatim", "name", ent.name.String(), "face", g.face.ID())
			return
		}
		// Synthesize one request for just the remainder; every downstream
		// face is copied onto the sub-request's bookkeeping.
		sub := e.spawnSubRequest(ent, g, gen)
		if sub != nil {
			for id, f := range ent.down {
				sub.down[id] = f
			}
		}
		return
	}

	for _, g := range order {
		sub := e.spawnSubRequest(ent, g, gen)
		if sub != nil {
			sub.down[in.ID()] = in
		}
	}
}

// spawnSubRequest creates the bookkeeping entry for one id group, links
// it to the parent and forwards it. Returns nil if an identical
// sub-request is already in flight.
func (e *Engine) spawnSubRequest(ent *entry, g *hopGroup, gen string) *entry {
	subName := names.Aggregate(g.ids, gen)
	sub, created := e.store.getOrCreate(subName)
	e.parents[subName.Handle()] = ent.key
	if !created {
		// Same remainder already in flight; relink and let the single
		// response feed this parent.
		e.log.Debug("sub-request already pending", "name", subName.String())
		ent.up[g.face.ID()] = g.face
		return nil
	}
	sub.isSub = true
	sub.intakeDone = true
	sub.lifetime = ent.lifetime
	sub.up[g.face.ID()] = g.face

	if err := g.face.SendRequest(subName, ent.lifetime); err != nil {
		e.log.Warn("forward failed", "name", subName.String(), "face", g.face.ID(), "err", err)
	}
	ent.up[g.face.ID()] = g.face
	e.stats.subRequests.Add(1)
	e.stats.forwards.Add(1)
	e.log.Debug("sub-request forwarded", "name", subName.String(),
		"parent", ent.name.String(), "face", g.face.ID())
	e.armTimer(sub)
	return sub
}
