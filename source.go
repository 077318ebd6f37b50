package aggnet

import "sync/atomic"

// LocalValueSource is the data-origin application of a node that owns a
// source id. The engine defers to it for requests whose sole requested id
// equals the local id; everything else takes the normal intake path.
type LocalValueSource interface {
	LocalID() uint64
	ReadValue() uint64
}

// StaticSource serves a fixed value, the typical simulation producer.
type StaticSource struct {
	ID    uint64
	Value uint64
}

func (s StaticSource) LocalID() uint64   { return s.ID }
func (s StaticSource) ReadValue() uint64 { return s.Value }

// CounterSource serves a monotonically advancing value, handy for
// multi-round polling demos.
type CounterSource struct {
	ID   uint64
	Step uint64
	last atomic.Uint64
}

func (s *CounterSource) LocalID() uint64 { return s.ID }

func (s *CounterSource) ReadValue() uint64 {
	step := s.Step
	if step == 0 {
		step = 1
	}
	return s.last.Add(step)
}

// FuncSource adapts a closure to LocalValueSource.
type FuncSource struct {
	ID   uint64
	Read func() uint64
}

func (s FuncSource) LocalID() uint64   { return s.ID }
func (s FuncSource) ReadValue() uint64 { return s.Read() }
