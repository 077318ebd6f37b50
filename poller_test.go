package aggnet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

func TestPollerConfigValidation(t *testing.T) {
	e := NewEngine(NewPrefixTable(), newManualTimers(), quietOpts())
	_, err := NewPoller(e, PollerConfig{Interval: time.Second})
	assert.ErrorIs(t, err, ErrPollerConfig)
	_, err = NewPoller(e, PollerConfig{IDs: names.NewIDSet(1)})
	assert.ErrorIs(t, err, ErrPollerConfig)
}

func TestPollerRoundFromCache(t *testing.T) {
	e := NewEngine(NewPrefixTable(), newManualTimers(), quietOpts())
	e.Cache().Put(2, 20)
	e.Cache().Put(3, 30)

	type result struct {
		round uint64
		sum   uint64
	}
	got := make(chan result, 2)
	p, err := NewPoller(e, PollerConfig{
		IDs:      names.NewIDSet(2, 3),
		Interval: time.Hour,
		FaceID:   100,
		OnSum: func(round uint64, _ string, sum uint64) {
			got <- result{round, sum}
		},
	})
	assert.NoError(t, err)

	// Fully cached ids resolve on the intake path, so the callback fires
	// inside PollOnce.
	p.PollOnce()
	p.PollOnce()

	r1 := <-got
	r2 := <-got
	assert.Equal(t, uint64(1), r1.round)
	assert.Equal(t, uint64(50), r1.sum)
	assert.Equal(t, uint64(2), r2.round)
	assert.Equal(t, uint64(50), r2.sum)
}

func TestPollerFreshGenerationPerRound(t *testing.T) {
	upstream := newMockFace(1)
	e := NewEngine(routesByID(map[uint64]Face{2: upstream}), newManualTimers(), quietOpts())

	p, err := NewPoller(e, PollerConfig{
		IDs:      names.NewIDSet(2),
		Interval: time.Hour,
		FaceID:   100,
	})
	assert.NoError(t, err)

	p.PollOnce()
	p.PollOnce()

	sent := upstream.sentRequests()
	assert.Len(t, sent, 2)
	assert.NotEqual(t, sent[0], sent[1], "each round carries its own generation tag")
}
