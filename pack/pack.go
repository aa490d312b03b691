// Package pack implements the runtime resource pack: a concurrent,
// section-partitioned store of eager, lazy and asynchronous entries that can
// be read like a file system and exported to or imported from a directory
// tree or zip archive.
//
// The pack lock only guards the entry maps. Lazy and async entries are
// resolved after the lock is released, so a slow resolver never stalls reads
// of unrelated entries, and a resolver may read other entries of its own pack.
package pack

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Pack is one runtime-generated resource and data pack. All methods are safe
// for concurrent use.
type Pack struct {
	id         resource.ID
	instanceID string
	cfg        Config
	pool       *worker.Pool
	ownsPool   bool
	observer   observability.Observer
	events     observability.Emitter

	mu      sync.RWMutex
	entries map[resource.Section]map[resource.ID]*cell
	langs   map[resource.ID]*langBuffer
	forbid  bool
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Pack during New.
type Option func(*Pack)

// WithPool runs async entries on a shared pool. The pack does not close a
// pool it was given.
func WithPool(pool *worker.Pool) Option {
	return func(p *Pack) {
		p.pool = pool
	}
}

// WithObserver overrides the observer named in Config.
func WithObserver(observer observability.Observer) Option {
	return func(p *Pack) {
		p.observer = observer
	}
}

// New creates an empty pack owned by id. Zero values in cfg fall back to
// DefaultConfig. Without WithPool the pack starts a private pool that Close
// shuts down.
func New(id resource.ID, cfg Config, opts ...Option) (*Pack, error) {
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("pack id: %w", err)
	}

	def := DefaultConfig()
	def.Merge(&cfg)

	instanceID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pack instance id: %w", err)
	}

	p := &Pack{
		id:         id,
		instanceID: instanceID.String(),
		cfg:        def,
		forbid:     def.ForbidDuplicates,
		entries:    make(map[resource.Section]map[resource.ID]*cell, len(resource.Sections)),
		langs:      make(map[resource.ID]*langBuffer),
	}
	for _, s := range resource.Sections {
		p.entries[s] = make(map[resource.ID]*cell)
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.observer == nil {
		observer, err := observability.GetObserver(def.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		p.observer = observer
	}

	p.events = observability.Emitter{
		Observer: p.observer,
		Source:   "pack." + id.String(),
		Attrs:    map[string]any{"pack": id.String(), "instance": p.instanceID},
	}

	if p.pool == nil {
		p.pool = worker.NewPool(worker.DefaultConfig())
		p.ownsPool = true
	}

	return p, nil
}

// ID returns the identifier the pack was created with.
func (p *Pack) ID() resource.ID {
	return p.id
}

// InstanceID returns the unique id of this pack instance, carried in every
// event the pack emits.
func (p *Pack) InstanceID() string {
	return p.instanceID
}

// Config returns the effective configuration.
func (p *Pack) Config() Config {
	return p.cfg
}

// Close dumps the pack to Config.DumpDir when Config.Dump is set, then marks
// it closed and stops a private pool. Queued async tasks finish first.
// Subsequent calls return the first result.
func (p *Pack) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		if p.cfg.Dump {
			dir := DumpPath(p.cfg.DumpDir, p.id)
			if err := p.ExportDir(ctx, dir); err != nil {
				p.closeErr = fmt.Errorf("dump %s: %w", p.id, err)
			} else {
				p.emit(ctx, EventDump, observability.LevelInfo, map[string]any{"dir": dir})
			}
		}

		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		if p.ownsPool {
			p.pool.Close()
		}
	})
	return p.closeErr
}

func (p *Pack) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	p.events.Emit(ctx, eventType, level, data)
}

func (p *Pack) resolved(ctx context.Context, section resource.Section, id resource.ID, kind cellKind, start time.Time, err error) {
	if err != nil {
		p.emit(ctx, EventError, observability.LevelError, map[string]any{
			"section": section.String(),
			"id":      id.String(),
			"kind":    kind.String(),
			"error":   err.Error(),
		})
		return
	}
	if !p.cfg.DebugPerformance {
		return
	}
	p.emit(ctx, EventResolve, observability.LevelVerbose, map[string]any{
		"section":     section.String(),
		"id":          id.String(),
		"kind":        kind.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func (p *Pack) parallelConfig() worker.ParallelConfig {
	cfg := worker.DefaultParallelConfig()
	if p.cfg.DebugPerformance {
		cfg.Observer = p.cfg.Observer
	}
	return cfg
}
