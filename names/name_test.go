package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateCanonicalOrder(t *testing.T) {
	a := Aggregate(NewIDSet(7, 2, 5), "")
	b := Aggregate(NewIDSet(5, 7, 2), "")
	assert.Equal(t, "/aggregate/2/5/7", a.String())
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Handle(), b.Handle())
}

func TestGeneration(t *testing.T) {
	a := Aggregate(NewIDSet(1, 2), "r1")
	assert.Equal(t, "/aggregate/1/2/g=r1", a.String())
	gen, ok := a.Generation()
	assert.True(t, ok)
	assert.Equal(t, "r1", gen)

	b := Aggregate(NewIDSet(1, 2), "")
	_, ok = b.Generation()
	assert.False(t, ok)

	assert.False(t, SameGeneration(a, b))
	assert.True(t, SameGeneration(a, Aggregate(NewIDSet(3), "r1")))
	assert.True(t, SameGeneration(b, Singleton(3)))
}

func TestIDsSkipsTagAndGeneration(t *testing.T) {
	n := Aggregate(NewIDSet(4, 9), "r2")
	assert.Equal(t, NewIDSet(4, 9), n.IDs())
	assert.Equal(t, NewIDSet(9), Singleton(9).IDs())
}

func TestIDsDropsMalformed(t *testing.T) {
	n := New(AggregateTag, "3", "x", "0", "-2", "11")
	assert.Equal(t, NewIDSet(3, 11), n.IDs())
}

func TestNonAggregateNames(t *testing.T) {
	assert.False(t, New("telemetry", "5").IsAggregate())
	assert.False(t, New(AggregateTag).IsAggregate())
	assert.Equal(t, 0, New("telemetry", "5").IDs().Len())
}

func TestParseRoundtrip(t *testing.T) {
	n := Parse("/aggregate/2/5/g=r9")
	assert.True(t, n.IsAggregate())
	assert.Equal(t, NewIDSet(2, 5), n.IDs())
	assert.Equal(t, "/aggregate/2/5/g=r9", n.String())
	assert.True(t, Parse("").Empty())
}

func TestIDSetRelations(t *testing.T) {
	a := NewIDSet(1, 2)
	b := NewIDSet(1, 2, 3)
	assert.True(t, a.SubsetOf(b))
	assert.True(t, a.SubsetOf(a))
	assert.False(t, b.SubsetOf(a))
	assert.True(t, a.Equal(NewIDSet(2, 1)))
	assert.Equal(t, "{1 2 3}", b.String())
	assert.Equal(t, []uint64{1, 2, 3}, b.Sorted())
}
