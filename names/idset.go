package names

import (
	"fmt"
	"strings"

	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

// IDSet is a set of positive source ids.
type IDSet map[uint64]struct{}

func NewIDSet(ids ...uint64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s IDSet) Add(id uint64)      { s[id] = struct{}{} }
func (s IDSet) Remove(id uint64)   { delete(s, id) }
func (s IDSet) Has(id uint64) bool { _, ok := s[id]; return ok }
func (s IDSet) Len() int           { return len(s) }

func (s IDSet) Sorted() []uint64 {
	return utils.SortedKeys(s)
}

func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// SubsetOf reports s ⊆ other (equality counts).
func (s IDSet) SubsetOf(other IDSet) bool {
	if len(s) > len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

func (s IDSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range s.Sorted() {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	b.WriteByte('}')
	return b.String()
}
