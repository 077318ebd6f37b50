package aggnet

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/zzhang154/Decentralized-Aggregation/names"
	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

type Options struct {
	// DefaultLifetime bounds entries created without an explicit request
	// lifetime (non-aggregate passthrough, zero lifetimes).
	DefaultLifetime time.Duration

	// RecentSize/RecentTTL bound the recently-satisfied name list used to
	// tell late duplicates from unsolicited responses in logs.
	RecentSize int
	RecentTTL  time.Duration

	// LocalSource answers direct requests for this node's own source id.
	// Nil for pure aggregators.
	LocalSource LocalValueSource

	Logger utils.Logger
}

func (o *Options) SetDefaults() {
	if o.DefaultLifetime == 0 {
		o.DefaultLifetime = 4 * time.Second
	}
	if o.RecentSize == 0 {
		o.RecentSize = 1024
	}
	if o.RecentTTL == 0 {
		o.RecentTTL = time.Minute
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
}

type engineStats struct {
	entriesCreated     atomic.Uint64
	satisfied          atomic.Uint64
	expired            atomic.Uint64
	aggregated         atomic.Uint64 // extra downstream faces merged by dedup
	retransmissions    atomic.Uint64
	cacheHits          atomic.Uint64
	supersetPiggybacks atomic.Uint64
	subsetPiggybacks   atomic.Uint64
	subRequests        atomic.Uint64
	forwards           atomic.Uint64
	deliveries         atomic.Uint64
	staleRefs          atomic.Uint64
	noRoute            atomic.Uint64
	lateResponses      atomic.Uint64
	unsolicited        atomic.Uint64
}

// Engine is the aggregation strategy of one forwarding node. All mutation
// of its tables runs under one mutex: requests and responses may arrive
// concurrently from any face, but each entry sees a single logical
// sequence of events. Nothing here blocks on I/O; face sends are
// hand-offs.
type Engine struct {
	lock sync.Mutex

	opts   Options
	log    utils.Logger
	routes RoutingTable
	timers TimerService

	store   pendingStore
	cache   *ValueCache
	parents map[uint64]uint64   // sub-request handle → parent handle
	waiters map[uint64][]uint64 // provider handle → waiting handles
	recent  *expirable.LRU[string, struct{}]

	stats engineStats
}

func NewEngine(routes RoutingTable, timers TimerService, opts Options) *Engine {
	opts.SetDefaults()
	return &Engine{
		opts:    opts,
		log:     opts.Logger,
		routes:  routes,
		timers:  timers,
		store:   newPendingStore(),
		cache:   NewValueCache(),
		parents: make(map[uint64]uint64),
		waiters: make(map[uint64][]uint64),
		recent:  expirable.NewLRU[string, struct{}](opts.RecentSize, nil, opts.RecentTTL),
	}
}

// Cache exposes the node's value cache (shared with the hosting node).
func (e *Engine) Cache() *ValueCache { return e.cache }

// PendingCount is the number of live entries, sub-requests included.
func (e *Engine) PendingCount() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.store.len()
}

// PendingNames snapshots the live entry names for introspection.
func (e *Engine) PendingNames() []string {
	e.lock.Lock()
	defer e.lock.Unlock()
	out := make([]string, 0, e.store.len())
	e.store.each(func(ent *entry) bool {
		out = append(out, ent.name.String())
		return true
	})
	return out
}

// OnRequestReceived is the request intake: dedup, cache consultation,
// piggyback resolution, then routing-based splitting of whatever remains.
func (e *Engine) OnRequestReceived(name names.Name, in Face, lifetime time.Duration) {
	if !name.IsAggregate() || name.IDs().Len() == 0 {
		e.OnNonAggregateRequest(name, in)
		return
	}
	if lifetime <= 0 {
		lifetime = e.opts.DefaultLifetime
	}

	e.lock.Lock()
	defer e.lock.Unlock()

	ent, created := e.store.getOrCreate(name)
	if created {
		e.stats.entriesCreated.Add(1)
		ent.lifetime = lifetime
	}

	if e.detectDuplicate(ent, in) {
		return
	}
	ent.down[in.ID()] = in

	e.log.Debug("request received", "name", name.String(), "face", in.ID(),
		"ids", ent.needed.String())

	// A node that owns a source id defers direct single-id requests to its
	// local application; a self-originated multi-id query that excludes
	// the local id takes the normal intake path below.
	if src := e.opts.LocalSource; src != nil {
		if ent.needed.Len() == 1 && ent.needed.Has(src.LocalID()) {
			v := src.ReadValue()
			e.cache.Put(src.LocalID(), v)
			ent.pending = names.IDSet{}
			e.finalize(ent, v)
			return
		}
	}

	// Cache consultation: resolve whatever the node already knows.
	for _, id := range ent.pending.Sorted() {
		if v, ok := e.cache.Get(id); ok {
			ent.partialSum += v
			ent.pending.Remove(id)
			e.stats.cacheHits.Add(1)
		}
	}
	if ent.pending.Len() == 0 && len(ent.waitingOn) == 0 {
		e.log.Debug("satisfied from cache", "name", name.String(), "sum", ent.partialSum)
		e.finalize(ent, ent.partialSum)
		return
	}

	ent.intakeDone = true

	if e.resolvePiggyback(ent) {
		// Registered as a dependent of a superset entry: no forwarding at
		// all, resolution comes when that entry completes.
		e.armTimer(ent)
		return
	}
	if ent.pending.Len() == 0 {
		// Fully absorbed by subset matches; wait for their completions.
		e.armTimer(ent)
		return
	}

	e.splitAndForward(ent, in)
	e.armTimer(ent)
}

// OnNonAggregateRequest forwards a request outside the aggregate
// namespace: one routing lookup, best next hop, inbound face retained as
// a downstream record.
func (e *Engine) OnNonAggregateRequest(name names.Name, in Face) {
	e.lock.Lock()
	defer e.lock.Unlock()

	ent, created := e.store.getOrCreate(name)
	if created {
		e.stats.entriesCreated.Add(1)
		ent.lifetime = e.opts.DefaultLifetime
	}
	if e.detectDuplicate(ent, in) {
		return
	}
	ent.down[in.ID()] = in
	ent.intakeDone = true

	hops := e.routes.Lookup(name)
	if len(hops) == 0 {
		e.stats.noRoute.Add(1)
		e.log.Warn("no route", "name", name.String())
		e.armTimer(ent)
		return
	}
	hop := hops[0]
	if err := hop.Face.SendRequest(name, ent.lifetime); err != nil {
		e.log.Warn("forward failed", "name", name.String(), "face", hop.Face.ID(), "err", err)
	}
	ent.up[hop.Face.ID()] = hop.Face
	e.stats.forwards.Add(1)
	e.armTimer(ent)
}

// deliver pushes a response to every downstream face of the entry.
func (e *Engine) deliver(ent *entry, value uint64) {
	for _, f := range ent.down {
		if err := f.SendResponse(ent.name, value); err != nil {
			e.log.Warn("deliver failed", "name", ent.name.String(), "face", f.ID(), "err", err)
		}
		e.stats.deliveries.Add(1)
	}
}

// finalize completes an entry: deliver to its downstream faces, tear it
// down, resolve its piggybacked dependents from the cache, and drain any
// entries waiting on its name with the synthesized response (cascading).
func (e *Engine) finalize(ent *entry, value uint64) {
	if ent.satisfied {
		return
	}
	ent.partialSum = value
	e.deliver(ent, value)

	deps := ent.dependents
	ent.dependents = nil
	name, covered := ent.name, ent.needed
	e.teardown(ent)

	// Dependents are full subsets: each one recomputes its own sum from
	// the cache over its own needed ids, never reusing this total.
	for _, h := range deps {
		d := e.store.get(h)
		if d == nil || d.satisfied {
			e.stats.staleRefs.Add(1)
			e.log.Debug("dependent gone", "parent", name.String())
			continue
		}
		var sum uint64
		for id := range d.needed {
			if v, ok := e.cache.Get(id); ok {
				sum += v
			}
		}
		d.pending = names.IDSet{}
		e.finalize(d, sum)
	}

	// Waiters keyed on this name get the synthesized response even when
	// no packet physically traverses the node.
	e.drainWaiters(name, value, covered)
}

// teardown makes the entry inert and removes it: satisfied is set, the
// face sets are cleared, and the timer is cancelled before removal so a
// late callback only ever sees a missing entry.
func (e *Engine) teardown(ent *entry) {
	ent.satisfied = true
	ent.down = map[uint64]Face{}
	ent.up = map[uint64]Face{}
	if ent.timer != nil {
		ent.timer.Cancel()
		ent.timer = nil
	}
	e.store.remove(ent)
	e.recent.Add(ent.name.String(), struct{}{})
	e.stats.satisfied.Add(1)
}

func (e *Engine) armTimer(ent *entry) {
	if ent.timer != nil || ent.satisfied {
		return
	}
	key, name := ent.key, ent.name
	ent.timer = e.timers.Arm(ent.lifetime, func() {
		e.onExpire(key, name)
	})
}

// onExpire drops an unresolved entry. No response is issued and no retry
// happens here; retrying is the requester's business, typically with a
// fresh generation tag.
func (e *Engine) onExpire(key uint64, name names.Name) {
	e.lock.Lock()
	defer e.lock.Unlock()

	ent := e.store.get(key)
	if ent == nil || ent.satisfied || !ent.name.Equal(name) {
		return // satisfied or removed concurrently with the firing
	}
	e.log.Warn("entry expired", "name", ent.name.String(),
		"pending", ent.pending.String(), "waiting", len(ent.waitingOn))
	ent.down = map[uint64]Face{}
	ent.up = map[uint64]Face{}
	ent.timer = nil
	e.store.remove(ent)
	// Release this entry's own index registrations, or every timed-out
	// round leaks its fresh generation-tagged keys. Entries referenced
	// from the remaining values resolve as stale and are dropped lazily.
	delete(e.parents, ent.key)
	delete(e.waiters, ent.key)
	e.stats.expired.Add(1)
}
