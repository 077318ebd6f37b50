package network

import (
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	aggnet "github.com/zzhang154/Decentralized-Aggregation"
	"github.com/zzhang154/Decentralized-Aggregation/names"
	"github.com/zzhang154/Decentralized-Aggregation/protocol"
	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

type gotRequest struct {
	name     names.Name
	in       aggnet.Face
	lifetime time.Duration
}

type gotResponse struct {
	name  names.Name
	value uint64
	in    aggnet.Face
}

type recordingHandler struct {
	requests  chan gotRequest
	responses chan gotResponse
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		requests:  make(chan gotRequest, 16),
		responses: make(chan gotResponse, 16),
	}
}

func (h *recordingHandler) OnRequestReceived(name names.Name, in aggnet.Face, lifetime time.Duration) {
	h.requests <- gotRequest{name, in, lifetime}
}

func (h *recordingHandler) OnResponseReceived(name names.Name, value uint64, in aggnet.Face) {
	h.responses <- gotResponse{name, value, in}
}

func testLogger() utils.Logger {
	return utils.NewDefaultLogger(slog.LevelError)
}

func TestStreamFaceRoundtrip(t *testing.T) {
	local, remote := net.Pipe()
	face := NewStreamFace(7, local, testLogger())
	handler := newRecordingHandler()
	go func() { _ = face.Run(handler) }()
	defer face.Close()

	name := names.Aggregate(names.NewIDSet(2, 3, 4), "r1")
	go func() {
		_, _ = remote.Write(protocol.Request{Name: name, Lifetime: 2 * time.Second}.Encode())
		_, _ = remote.Write(protocol.Response{Name: name, Value: 90}.Encode())
	}()

	select {
	case rq := <-handler.requests:
		assert.True(t, name.Equal(rq.name))
		assert.Equal(t, 2*time.Second, rq.lifetime)
		assert.Equal(t, uint64(7), rq.in.ID())
	case <-time.After(time.Second):
		t.Fatal("no request received")
	}
	select {
	case rp := <-handler.responses:
		assert.True(t, name.Equal(rp.name))
		assert.Equal(t, uint64(90), rp.value)
	case <-time.After(time.Second):
		t.Fatal("no response received")
	}
}

func TestStreamFaceSplitWrites(t *testing.T) {
	local, remote := net.Pipe()
	face := NewStreamFace(1, local, testLogger())
	handler := newRecordingHandler()
	go func() { _ = face.Run(handler) }()
	defer face.Close()

	name := names.Aggregate(names.NewIDSet(5), "r2")
	rec := protocol.Request{Name: name, Lifetime: time.Second}.Encode()
	go func() {
		// One byte at a time: the read loop must buffer partial records.
		for i := range rec {
			_, _ = remote.Write(rec[i : i+1])
		}
	}()

	select {
	case rq := <-handler.requests:
		assert.True(t, name.Equal(rq.name))
	case <-time.After(time.Second):
		t.Fatal("fragmented request never assembled")
	}
}

func TestStreamFaceMalformedValueDegradesToZero(t *testing.T) {
	local, remote := net.Pipe()
	face := NewStreamFace(2, local, testLogger())
	handler := newRecordingHandler()
	go func() { _ = face.Run(handler) }()
	defer face.Close()

	nameRec := protocol.Record(protocol.LitName,
		protocol.Record(protocol.LitComp, []byte(names.AggregateTag)),
		protocol.Record(protocol.LitComp, []byte("5")),
		protocol.Record(protocol.LitComp, []byte("g=r3")),
	)
	// Three value bytes instead of eight.
	rec := protocol.Record(protocol.LitResponse, nameRec,
		protocol.Record(protocol.LitValue, []byte{1, 2, 3}))
	go func() { _, _ = remote.Write(rec) }()

	select {
	case rp := <-handler.responses:
		assert.Equal(t, uint64(0), rp.value)
		assert.Equal(t, "/aggregate/5/g=r3", rp.name.String())
	case <-time.After(time.Second):
		t.Fatal("malformed-payload response was dropped entirely")
	}
}

func TestPipeFacesDeliverBothWays(t *testing.T) {
	a := newRecordingHandler()
	b := newRecordingHandler()
	atob, btoa := Pipe(testLogger(), 10, a, 20, b)
	defer atob.Close()
	defer btoa.Close()

	name := names.Aggregate(names.NewIDSet(1, 2), "r4")
	assert.NoError(t, atob.SendRequest(name, time.Second))
	select {
	case rq := <-b.requests:
		assert.True(t, name.Equal(rq.name))
		assert.Equal(t, uint64(20), rq.in.ID())
	case <-time.After(time.Second):
		t.Fatal("request never crossed the pipe")
	}

	assert.NoError(t, btoa.SendResponse(name, 33))
	select {
	case rp := <-a.responses:
		assert.Equal(t, uint64(33), rp.value)
		assert.Equal(t, uint64(10), rp.in.ID())
	case <-time.After(time.Second):
		t.Fatal("response never crossed the pipe")
	}
}

// countingHandler never blocks the drain goroutine, so floods are safe.
type countingHandler struct {
	requests  atomic.Uint64
	responses atomic.Uint64
}

func (h *countingHandler) OnRequestReceived(names.Name, aggnet.Face, time.Duration) {
	h.requests.Add(1)
}

func (h *countingHandler) OnResponseReceived(names.Name, uint64, aggnet.Face) {
	h.responses.Add(1)
}

func TestPipeFaceCloseDuringSendBurst(t *testing.T) {
	a := &countingHandler{}
	b := &countingHandler{}
	atob, btoa := Pipe(testLogger(), 1, a, 2, b)
	defer btoa.Close()

	name := names.Singleton(1)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if atob.SendRequest(name, time.Second) != nil {
					return
				}
			}
		}()
	}
	// Close mid-burst; senders must see ErrFaceClosed, never a panic on
	// the drained channel.
	assert.NoError(t, atob.Close())
	wg.Wait()
	assert.ErrorIs(t, atob.SendRequest(name, time.Second), ErrFaceClosed)
}

func TestPipeFaceClosedSendFails(t *testing.T) {
	a := newRecordingHandler()
	b := newRecordingHandler()
	atob, btoa := Pipe(testLogger(), 1, a, 2, b)
	assert.NoError(t, atob.Close())
	assert.ErrorIs(t, atob.SendRequest(names.Singleton(1), time.Second), ErrFaceClosed)
	assert.NoError(t, btoa.Close())
}
