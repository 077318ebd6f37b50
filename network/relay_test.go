package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	aggnet "github.com/zzhang154/Decentralized-Aggregation"
	"github.com/zzhang154/Decentralized-Aggregation/names"
	testutils "github.com/zzhang154/Decentralized-Aggregation/test_utils"
)

// Two real engines joined by a pipe: the aggregator relays the query to
// the node owning the source id and hands the answer back downstream.
func TestTwoNodeRelay(t *testing.T) {
	log := testLogger()

	aggTable := aggnet.NewPrefixTable()
	aggregator := aggnet.NewEngine(aggTable, testutils.NewManualTimers(), aggnet.Options{Logger: log})
	producer := aggnet.NewEngine(aggnet.NewPrefixTable(), testutils.NewManualTimers(), aggnet.Options{
		LocalSource: aggnet.StaticSource{ID: 2, Value: 20},
		Logger:      log,
	})

	toProducer, toAggregator := Pipe(log, 1, aggregator, 2, producer)
	defer toProducer.Close()
	defer toAggregator.Close()
	aggTable.Add(names.Singleton(2), toProducer, 1)

	consumer := testutils.NewMockFace(100)
	query := names.Aggregate(names.NewIDSet(2), "z1")
	aggregator.OnRequestReceived(query, consumer, time.Second)

	assert.Eventually(t, func() bool {
		return len(consumer.Responses()) == 1
	}, time.Second, 5*time.Millisecond)
	got := consumer.Responses()[0]
	assert.True(t, query.Equal(got.Name))
	assert.Equal(t, uint64(20), got.Value)

	// The relayed value now lives in the aggregator's cache too.
	assert.Eventually(t, func() bool {
		v, ok := aggregator.Cache().Get(2)
		return ok && v == 20
	}, time.Second, 5*time.Millisecond)
}
