// Package aggnet implements the per-node aggregation strategy of a
// named-data network: consumers ask one name for the sum of values held by
// a set of sources, and every forwarding node splits, deduplicates,
// piggybacks and reassembles partial results so that only the minimum
// necessary traffic crosses each link.
//
// The Engine owns all mutable per-node state: the pending-request table,
// the value cache and the sub-request/waiter indexes. Transport, routing
// and the local value application are collaborators plugged in through the
// small interfaces in this file and routing.go/timers.go/source.go.
package aggnet

import (
	"time"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

// Face is a communication endpoint toward a neighbor node or a local
// consumer. Sends are hand-offs: implementations enqueue and return, they
// never block the calling engine.
type Face interface {
	ID() uint64
	SendRequest(name names.Name, lifetime time.Duration) error
	SendResponse(name names.Name, value uint64) error
}

// FuncFace adapts callbacks to the Face interface, for local consumers
// such as the Poller.
type FuncFace struct {
	FaceID     uint64
	OnRequest  func(name names.Name, lifetime time.Duration) error
	OnResponse func(name names.Name, value uint64) error
}

func (f *FuncFace) ID() uint64 { return f.FaceID }

func (f *FuncFace) SendRequest(name names.Name, lifetime time.Duration) error {
	if f.OnRequest == nil {
		return nil
	}
	return f.OnRequest(name, lifetime)
}

func (f *FuncFace) SendResponse(name names.Name, value uint64) error {
	if f.OnResponse == nil {
		return nil
	}
	return f.OnResponse(name, value)
}
