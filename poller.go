package aggnet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zzhang154/Decentralized-Aggregation/names"
)

var ErrPollerConfig = errors.New("poller needs ids and an interval")

// PollerConfig describes a periodic aggregate query.
type PollerConfig struct {
	IDs      names.IDSet
	Interval time.Duration
	Lifetime time.Duration // per-request; engine default when zero
	FaceID   uint64

	// OnSum runs on the engine's delivery path; keep it light.
	OnSum func(round uint64, gen string, sum uint64)
}

// Poller drives consumer rounds: every interval it mints a fresh
// generation tag and issues one aggregate request for the configured id
// set. There is no retry: a round that expires is simply superseded by
// the next one, with a new tag.
type Poller struct {
	engine *Engine
	cfg    PollerConfig
	face   *FuncFace

	mu    sync.Mutex
	round uint64
	gens  map[string]uint64 // live generation tag → round

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewPoller(engine *Engine, cfg PollerConfig) (*Poller, error) {
	if cfg.IDs.Len() == 0 || cfg.Interval <= 0 {
		return nil, ErrPollerConfig
	}
	p := &Poller{
		engine: engine,
		cfg:    cfg,
		gens:   make(map[string]uint64),
		stop:   make(chan struct{}),
	}
	p.face = &FuncFace{
		FaceID:     cfg.FaceID,
		OnResponse: p.onResponse,
	}
	return p, nil
}

// Start launches the polling loop; the first round fires immediately.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		p.pollOnce()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.pollOnce()
			}
		}
	}()
}

func (p *Poller) Close() {
	close(p.stop)
	p.wg.Wait()
}

// PollOnce issues one round out of schedule (REPL "sum" command).
func (p *Poller) PollOnce() { p.pollOnce() }

func (p *Poller) pollOnce() {
	p.mu.Lock()
	p.round++
	round := p.round
	gen := uuid.NewString()[:8]
	p.gens[gen] = round
	p.mu.Unlock()

	name := names.Aggregate(p.cfg.IDs, gen)
	p.engine.OnRequestReceived(name, p.face, p.cfg.Lifetime)
}

func (p *Poller) onResponse(name names.Name, value uint64) error {
	gen, ok := name.Generation()
	if !ok {
		return nil
	}
	p.mu.Lock()
	round, live := p.gens[gen]
	delete(p.gens, gen)
	p.mu.Unlock()
	if live && p.cfg.OnSum != nil {
		p.cfg.OnSum(round, gen, value)
	}
	return nil
}
