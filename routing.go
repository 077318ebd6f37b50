package aggnet

import (
	"sort"
	"strings"
	"sync"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// NextHop is one routing candidate. Lookup results come cheapest first.
type NextHop struct {
	Face Face
	Cost uint32
}

// RoutingTable resolves a name to an ordered set of next hops by
// longest-prefix match. An empty result means "no route". The table is
// populated by the hosting node; this core only consumes it.
type RoutingTable interface {
	Lookup(name names.Name) []NextHop
}

// PrefixTable is a small in-memory RoutingTable for hosts, demos and
// tests: longest-prefix match over name components, next hops ordered by
// cost, then by insertion.
type PrefixTable struct {
	mu     sync.RWMutex
	routes map[string][]NextHop
}

func NewPrefixTable() *PrefixTable {
	return &PrefixTable{routes: make(map[string][]NextHop)}
}

func (t *PrefixTable) Add(prefix names.Name, face Face, cost uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := prefix.String()
	hops := append(t.routes[key], NextHop{Face: face, Cost: cost})
	sort.SliceStable(hops, func(i, j int) bool { return hops[i].Cost < hops[j].Cost })
	t.routes[key] = hops
}

func (t *PrefixTable) Lookup(name names.Name) []NextHop {
	t.mu.RLock()
	defer t.mu.RUnlock()
	key := name.String()
	for {
		if hops, ok := t.routes[key]; ok && len(hops) > 0 {
			out := make([]NextHop, len(hops))
			copy(out, hops)
			return out
		}
		cut := strings.LastIndexByte(key, '/')
		if cut <= 0 {
			if hops, ok := t.routes["/"]; ok {
				out := make([]NextHop, len(hops))
				copy(out, hops)
				return out
			}
			return nil
		}
		key = key[:cut]
	}
}
