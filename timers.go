package aggnet

import (
	"sync/atomic"
	"time"
)

// Timer is an armed expiry callback. Cancel is idempotent; cancelling an
// already-fired timer is a no-op.
type Timer interface {
	Cancel()
}

// TimerService arms expiry callbacks for pending entries. The engine
// tolerates a timer firing concurrently with satisfaction: the expiry
// handler treats "entry already satisfied/removed" as a no-op.
type TimerService interface {
	Arm(d time.Duration, fn func()) Timer
}

// WallTimers is the wall-clock TimerService.
type WallTimers struct{}

type wallTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (w *wallTimer) Cancel() {
	if w.stopped.CompareAndSwap(false, true) {
		w.t.Stop()
	}
}

func (WallTimers) Arm(d time.Duration, fn func()) Timer {
	return &wallTimer{t: time.AfterFunc(d, fn)}
}
