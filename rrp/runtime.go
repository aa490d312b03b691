// Package rrp is the process runtime around runtime resource packs. It owns
// the shared worker pool, creates packs from the process configuration,
// orders them into the host's load slots and runs pre-generation.
//
//	cfg, _, err := rrp.LoadConfig("config/rrp.yaml")
//	rt, err := rrp.New(cfg)
//	p, err := rt.NewPack(resource.MustParseID("mymod:generated"))
//	rt.Register(rrp.AfterVanilla, p)
//	rt.Pregenerate(ctx)
//	err = rt.WaitForPregen(ctx)
package rrp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Runtime is safe for concurrent use.
type Runtime struct {
	cfg      Config
	pool     *worker.Pool
	extra    []observability.Observer
	observer observability.Observer
	events   observability.Emitter

	mu         sync.RWMutex
	slots      map[Slot][]*pack.Pack
	registered map[resource.ID]Slot
	closed     bool

	pregenMu   sync.Mutex
	generators map[string]Generator
	pending    []pregenTask
	started    bool
}

// Option configures a Runtime during New.
type Option func(*Runtime)

// WithObserver adds an observer alongside the one named in Config. Every
// pack created through NewPack reports to the same set.
func WithObserver(observer observability.Observer) Option {
	return func(r *Runtime) {
		r.extra = append(r.extra, observer)
	}
}

// New starts the shared worker pool. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*Runtime, error) {
	def := DefaultConfig()
	if cfg != nil {
		def.Merge(cfg)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{
		cfg:        def,
		slots:      make(map[Slot][]*pack.Pack, len(Slots)),
		registered: make(map[resource.ID]Slot),
		generators: make(map[string]Generator),
	}
	for _, opt := range opts {
		opt(r)
	}

	named, err := observability.GetObserver(def.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	minLevel, err := observability.ParseLevel(def.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	combined := observability.NewMultiObserver(append([]observability.Observer{named}, r.extra...)...)
	r.observer = observability.MinLevel(combined, minLevel)
	r.events = observability.Emitter{Observer: r.observer, Source: "rrp.Runtime"}

	r.pool = worker.NewPool(def.WorkerConfig())
	return r, nil
}

// Config returns the effective configuration.
func (r *Runtime) Config() Config {
	return r.cfg
}

// Observer returns the combined observer handed to every pack.
func (r *Runtime) Observer() observability.Observer {
	return r.observer
}

// Pool returns the shared worker pool.
func (r *Runtime) Pool() *worker.Pool {
	return r.pool
}

// NewPack creates a pack wired to the shared pool, the runtime observer and
// the process configuration. It is not registered in any slot.
func (r *Runtime) NewPack(id resource.ID, opts ...pack.Option) (*pack.Pack, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	base := []pack.Option{pack.WithPool(r.pool), pack.WithObserver(r.observer)}
	return pack.New(id, r.cfg.PackConfig(), append(base, opts...)...)
}

// Register places p in slot. A pack id may be registered once.
func (r *Runtime) Register(slot Slot, p *pack.Pack) error {
	if !slot.valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	if existing, ok := r.registered[p.ID()]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s in %s", ErrPackExists, p.ID(), existing)
	}
	r.registered[p.ID()] = slot
	r.slots[slot] = append(r.slots[slot], p)
	r.mu.Unlock()

	r.emit(context.Background(), EventRegister, observability.LevelInfo, map[string]any{
		"pack": p.ID().String(),
		"slot": slot.String(),
	})
	return nil
}

// Packs returns the packs registered in slot in registration order.
func (r *Runtime) Packs(slot Slot) []*pack.Pack {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.slots[slot])
}

// Close closes every registered pack, dumping them when configured, then
// stops the pool after queued tasks finish. It does not wait for a
// pre-generation barrier; call WaitForPregen first for that.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	var packs []*pack.Pack
	for _, slot := range Slots {
		packs = append(packs, r.slots[slot]...)
	}
	r.mu.Unlock()

	var errs []error
	for _, p := range packs {
		if err := p.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.pool.Close()

	err := errors.Join(errs...)
	level := observability.LevelInfo
	if err != nil {
		level = observability.LevelError
	}
	r.emit(ctx, EventClose, level, map[string]any{
		"packs": len(packs),
		"error": err != nil,
	})
	return err
}

func (r *Runtime) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	r.events.Emit(ctx, eventType, level, data)
}
