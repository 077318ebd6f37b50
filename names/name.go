// Package names implements the canonical name scheme of the aggregation
// protocol: /aggregate/<id>/<id>/.../g=<generation>.
//
// Component 0 is the literal namespace tag. The following components are
// positive source ids in ascending order, optionally followed by one
// generation component carrying an opaque round token. Two logically
// identical requests always serialize to the same Name, so duplicate and
// subset/superset detection can work on name equality and id-set inclusion
// directly.
package names

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
)

// AggregateTag is the namespace component of every aggregate name.
const AggregateTag = "aggregate"

// genPrefix marks the generation component. The token itself is opaque.
const genPrefix = "g="

// Name is an ordered sequence of components. Names compare by structural
// equality only; this protocol layer has no prefix semantics.
type Name struct {
	comps []string
}

func New(comps ...string) Name {
	return Name{comps: comps}
}

// Parse reads a /-separated name string, e.g. "/aggregate/2/5/g=r1".
func Parse(s string) Name {
	s = strings.Trim(s, "/")
	if s == "" {
		return Name{}
	}
	return Name{comps: strings.Split(s, "/")}
}

func (n Name) Len() int { return len(n.comps) }

func (n Name) At(i int) string { return n.comps[i] }

func (n Name) Empty() bool { return len(n.comps) == 0 }

func (n Name) String() string {
	if len(n.comps) == 0 {
		return "/"
	}
	return "/" + strings.Join(n.comps, "/")
}

func (n Name) Equal(other Name) bool {
	if len(n.comps) != len(other.comps) {
		return false
	}
	for i, c := range n.comps {
		if other.comps[i] != c {
			return false
		}
	}
	return true
}

// Handle is the stable 64-bit key of this name, used to address pending
// entries in the store arena. A handle that no longer resolves is a stale
// weak reference, never a dangling pointer.
func (n Name) Handle() uint64 {
	return xxhash.Sum64String(n.String())
}

// IsAggregate reports whether the name belongs to the aggregate namespace
// and carries at least one payload component.
func (n Name) IsAggregate() bool {
	return len(n.comps) >= 2 && n.comps[0] == AggregateTag
}

// Generation returns the round token, if any.
func (n Name) Generation() (string, bool) {
	if len(n.comps) < 2 {
		return "", false
	}
	last := n.comps[len(n.comps)-1]
	if strings.HasPrefix(last, genPrefix) {
		return last[len(genPrefix):], true
	}
	return "", false
}

// SameGeneration is true iff both tokens are absent or both are equal.
// Cross-generation names never form a dedup or piggyback relationship.
func SameGeneration(a, b Name) bool {
	ga, oka := a.Generation()
	gb, okb := b.Generation()
	return oka == okb && ga == gb
}

// IDs parses the source id set of the name. The namespace tag and the
// generation component are skipped; malformed or non-positive components
// are silently dropped.
func (n Name) IDs() IDSet {
	ids := IDSet{}
	if !n.IsAggregate() {
		return ids
	}
	for _, c := range n.comps[1:] {
		if strings.HasPrefix(c, genPrefix) {
			continue
		}
		id, err := strconv.ParseUint(c, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids.Add(id)
	}
	return ids
}

// Aggregate builds the canonical name for the given id set: ids ascending,
// then the generation component when gen is non-empty.
func Aggregate(ids IDSet, gen string) Name {
	comps := make([]string, 0, ids.Len()+2)
	comps = append(comps, AggregateTag)
	for _, id := range ids.Sorted() {
		comps = append(comps, strconv.FormatUint(id, 10))
	}
	if gen != "" {
		comps = append(comps, genPrefix+gen)
	}
	return Name{comps: comps}
}

// Singleton is the routing form of one source id: /aggregate/<id>, without
// a generation component.
func Singleton(id uint64) Name {
	return Name{comps: []string{AggregateTag, strconv.FormatUint(id, 10)}}
}
