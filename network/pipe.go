package network

import (
	"sync"
	"time"

	"github.com/zzhang154/Decentralized-Aggregation/names"
	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

const pipeQueueLen = 1024

// PipeFace is one end of an in-process link. Sends enqueue onto the
// face's own drain goroutine, so the calling engine never runs the
// remote engine on its own stack (and never deadlocks on its lock).
type PipeFace struct {
	id      uint64
	remote  Handler
	reverse *PipeFace
	log     utils.Logger

	queue chan func()
	wg    sync.WaitGroup

	// mu orders sends against Close: senders hold it shared across the
	// closed check and the channel send, so the channel never closes
	// under a send.
	mu     sync.RWMutex
	closed bool
}

// Pipe links two handlers. The first face is installed at a and delivers
// into b; packets it carries arrive at b with the second face as their
// inbound face, and vice versa.
func Pipe(log utils.Logger, idAtA uint64, a Handler, idAtB uint64, b Handler) (*PipeFace, *PipeFace) {
	atob := &PipeFace{id: idAtA, remote: b, log: log, queue: make(chan func(), pipeQueueLen)}
	btoa := &PipeFace{id: idAtB, remote: a, log: log, queue: make(chan func(), pipeQueueLen)}
	atob.reverse = btoa
	btoa.reverse = atob
	atob.run()
	btoa.run()
	return atob, btoa
}

func (f *PipeFace) run() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for fn := range f.queue {
			fn()
		}
	}()
}

func (f *PipeFace) ID() uint64 { return f.id }

func (f *PipeFace) enqueue(fn func()) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrFaceClosed
	}
	select {
	case f.queue <- fn:
		return nil
	default:
		// Hand-off semantics: a full queue drops rather than blocks.
		f.log.Warn("pipe queue full, packet dropped", "face", f.id)
		return nil
	}
}

func (f *PipeFace) SendRequest(name names.Name, lifetime time.Duration) error {
	return f.enqueue(func() {
		f.remote.OnRequestReceived(name, f.reverse, lifetime)
	})
}

func (f *PipeFace) SendResponse(name names.Name, value uint64) error {
	return f.enqueue(func() {
		f.remote.OnResponseReceived(name, value, f.reverse)
	})
}

// Close stops this end; the peer end keeps draining what it already has.
func (f *PipeFace) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.queue)
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}
