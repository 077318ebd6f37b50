package aggnet

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

func TestPrefixTableLongestMatch(t *testing.T) {
	near := newMockFace(1)
	far := newMockFace(2)
	table := NewPrefixTable()
	table.Add(names.Parse("/aggregate"), far, 10)
	table.Add(names.Singleton(7), near, 1)

	hops := table.Lookup(names.Aggregate(names.NewIDSet(7), "r1"))
	assert.Len(t, hops, 1)
	assert.Equal(t, uint64(1), hops[0].Face.ID(), "the /aggregate/7 route shadows /aggregate")

	hops = table.Lookup(names.Singleton(8))
	assert.Len(t, hops, 1)
	assert.Equal(t, uint64(2), hops[0].Face.ID())

	assert.Nil(t, table.Lookup(names.Parse("/elsewhere")))
}

func TestPrefixTableCostOrder(t *testing.T) {
	cheap := newMockFace(1)
	dear := newMockFace(2)
	table := NewPrefixTable()
	table.Add(names.Singleton(7), dear, 5)
	table.Add(names.Singleton(7), cheap, 1)

	hops := table.Lookup(names.Singleton(7))
	assert.Len(t, hops, 2)
	assert.Equal(t, uint64(1), hops[0].Face.ID())
	assert.Equal(t, uint64(2), hops[1].Face.ID())
}

func TestPrefixTableDefaultRoute(t *testing.T) {
	gw := newMockFace(1)
	table := NewPrefixTable()
	table.Add(names.Parse("/"), gw, 1)

	hops := table.Lookup(names.Parse("/anything/at/all"))
	assert.Len(t, hops, 1)
	assert.Equal(t, uint64(1), hops[0].Face.ID())
}
