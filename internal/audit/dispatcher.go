package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/providerAuth/store"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Stats counts dispatched events per ledger outcome.
type Stats struct {
	Delivered map[store.Outcome]uint64
	Dropped   map[store.Outcome]uint64
}

type outcomeTally struct {
	mu sync.Mutex
	n  map[store.Outcome]uint64
}

func (t *outcomeTally) add(o store.Outcome) {
	t.mu.Lock()
	if t.n == nil {
		t.n = make(map[store.Outcome]uint64)
	}
	t.n[o]++
	t.mu.Unlock()
}

func (t *outcomeTally) snapshot() map[store.Outcome]uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[store.Outcome]uint64, len(t.n))
	for k, v := range t.n {
		out[k] = v
	}
	return out
}

// Dispatcher tags each event with its ledger outcome and forwards it to a
// sink from a single goroutine.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	queue     chan Event
	stop      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	delivered outcomeTally
	lost      outcomeTally
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts delivery. It returns nil when cfg is disabled; every
// method is safe on a nil Dispatcher.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}
	d.wg.Add(1)
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer d.wg.Done()
	for {
		select {
		case event := <-d.queue:
			d.forward(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.forward(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) forward(event Event) {
	d.sink.Emit(context.Background(), event)
	d.delivered.add(event.Outcome)
}

// Emit tags event with [OutcomeOf] and enqueues it. With DropIfFull a full
// buffer drops the event and counts it; otherwise Emit blocks until there is
// room or ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	event.Outcome = OutcomeOf(event)

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
			d.lost.add(event.Outcome)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped is the total of Stats().Dropped.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Stats returns per-outcome delivery counts. Events still queued appear in
// neither map.
func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{Delivered: map[store.Outcome]uint64{}, Dropped: map[store.Outcome]uint64{}}
	}
	return Stats{Delivered: d.delivered.snapshot(), Dropped: d.lost.snapshot()}
}
