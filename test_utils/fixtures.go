// Package testutils carries shared test doubles for multi-node scenarios:
// a recording face and a manually stepped timer service. Engine-internal
// tests keep their own in-package doubles.
package testutils

import (
	"sync"
	"time"

	aggnet "github.com/zzhang154/Decentralized-Aggregation"
	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// SentRequest is one captured SendRequest call.
type SentRequest struct {
	Name     names.Name
	Lifetime time.Duration
}

// SentResponse is one captured SendResponse call.
type SentResponse struct {
	Name  names.Name
	Value uint64
}

// MockFace records everything the engine sends through it.
type MockFace struct {
	FaceID uint64

	mu        sync.Mutex
	requests  []SentRequest
	responses []SentResponse
}

func NewMockFace(id uint64) *MockFace {
	return &MockFace{FaceID: id}
}

func (f *MockFace) ID() uint64 { return f.FaceID }

func (f *MockFace) SendRequest(name names.Name, lifetime time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, SentRequest{Name: name, Lifetime: lifetime})
	return nil
}

func (f *MockFace) SendResponse(name names.Name, value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, SentResponse{Name: name, Value: value})
	return nil
}

func (f *MockFace) Requests() []SentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentRequest(nil), f.requests...)
}

func (f *MockFace) Responses() []SentResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentResponse(nil), f.responses...)
}

type manualTimer struct {
	svc *ManualTimers
	seq uint64
}

func (t *manualTimer) Cancel() {
	t.svc.mu.Lock()
	defer t.svc.mu.Unlock()
	delete(t.svc.armed, t.seq)
}

// ManualTimers never fires on its own; tests call Fire or FireAll to
// simulate deadlines.
type ManualTimers struct {
	mu    sync.Mutex
	next  uint64
	armed map[uint64]func()
}

func NewManualTimers() *ManualTimers {
	return &ManualTimers{armed: make(map[uint64]func())}
}

func (s *ManualTimers) Arm(_ time.Duration, fn func()) aggnet.Timer {
	s.mu.Lock()
	s.next++
	seq := s.next
	s.armed[seq] = fn
	s.mu.Unlock()
	return &manualTimer{svc: s, seq: seq}
}

// Armed reports how many timers are live.
func (s *ManualTimers) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// FireAll runs every live timer callback once, in arming order.
func (s *ManualTimers) FireAll() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.armed))
	for seq := uint64(1); seq <= s.next; seq++ {
		if fn, ok := s.armed[seq]; ok {
			fns = append(fns, fn)
			delete(s.armed, seq)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
