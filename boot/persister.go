package boot

import (
	"context"
	"errors"
	"sync"

	"avionics/config"
	"avionics/core"
	"avionics/flash"
)

// ErrDegraded is returned once persistence has been abandoned. The
// in-memory record keeps being updated.
var ErrDegraded = errors.New("boot: persistence degraded, record kept in memory only")

// Persister owns the shared configuration record during flight. Mutators go
// through Update or Stage, which serialize the read-modify-write of the
// record; the flash transaction itself is serialized by the device lock.
//
// Failed saves never panic. After MaxFailures consecutive failures the
// persister stops touching flash and reports Degraded.
type Persister struct {
	mu    sync.Mutex
	store *config.Store
	rec   config.Record
	cfg   Config

	failures int
	degraded bool
	pending  bool

	requests chan struct{}
}

// NewPersister starts from rec, which should be what store last loaded or
// saved.
func NewPersister(store *config.Store, rec config.Record, opts ...Option) *Persister {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newPersister(store, rec, cfg)
}

func newPersister(store *config.Store, rec config.Record, cfg Config) *Persister {
	return &Persister{
		store:    store,
		rec:      rec,
		cfg:      cfg,
		requests: make(chan struct{}, 1),
	}
}

// Record returns a copy of the current record
func (p *Persister) Record() config.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rec
}

// Degraded reports whether persistence has been abandoned
func (p *Persister) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

// Failures returns the number of consecutive failed saves
func (p *Persister) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Pending reports whether a staged change has not been saved yet
func (p *Persister) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// apply runs fn on a copy and installs it if it is a valid successor
func (p *Persister) apply(fn func(*config.Record)) error {
	next := p.rec
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	if next.State < p.rec.State {
		return config.ErrStateRegression
	}
	next.Flags |= p.rec.Flags & config.StickyFlags
	p.rec = next
	p.pending = true
	return nil
}

// Update applies fn to the record and saves it before returning. A change
// that would break the record invariants is refused and not applied. A
// flash failure leaves the change applied in memory and pending.
func (p *Persister) Update(fn func(*config.Record)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.apply(fn); err != nil {
		return err
	}
	return p.persist()
}

// Stage applies fn in memory and asks the Run worker to save. It never
// touches the bus, so it is safe from timer handlers.
func (p *Persister) Stage(fn func(*config.Record)) error {
	p.mu.Lock()
	err := p.apply(fn)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.Request()
	return nil
}

// Flush saves the record if a change is pending.
func (p *Persister) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return nil
	}
	return p.persist()
}

// Request asks the worker to flush. It does not block; a request already
// queued covers this one.
func (p *Persister) Request() {
	select {
	case p.requests <- struct{}{}:
	default:
	}
}

// Run flushes on every request until ctx is done. Failures are counted and
// logged, never returned.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.requests:
			if err := p.Flush(); err != nil {
				core.DebugAsync("[PERSIST] flush failed: " + err.Error())
			}
		}
	}
}

// persist saves p.rec with busy retries; p.mu must be held
func (p *Persister) persist() error {
	if p.degraded {
		return ErrDegraded
	}

	rec := p.rec
	err := p.store.Save(&rec)
	for i := 0; i < p.cfg.BusyRetries && flash.IsBusy(err); i++ {
		p.cfg.Sleep(p.cfg.Backoff)
		err = p.store.Save(&rec)
	}

	if err == nil {
		p.rec = rec
		p.pending = false
		p.failures = 0
		return nil
	}

	p.failures++
	if p.failures >= p.cfg.MaxFailures {
		p.degraded = true
		core.RecordEvent(core.EvtDegraded, 0, uint32(p.failures), 0)
		core.DebugPrintln("[PERSIST] degraded after " + core.Itoa(p.failures) + " failures")
	}
	return err
}
