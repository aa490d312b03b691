package pack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Resolver computes the bytes of a lazy entry. It receives the pack so it
// can read other entries, and should be deterministic: it runs at most once
// per registration and in no particular order relative to other resolvers.
//
// Reads made with the ctx it was given are checked for cycles: reading its
// own entry, directly or through other lazy entries, fails with
// ErrResolverCycle. A resolver that reads with an unrelated context loses
// that check and deadlocks on a cycle.
type Resolver func(ctx context.Context, p *Pack, id resource.ID) ([]byte, error)

// Task computes the bytes of an async entry on the worker pool.
type Task func(ctx context.Context) ([]byte, error)

type cellKind uint8

const (
	cellEager cellKind = iota
	cellLazy
	cellAsync
)

func (k cellKind) String() string {
	switch k {
	case cellEager:
		return "eager"
	case cellLazy:
		return "lazy"
	default:
		return "async"
	}
}

// cell is the tagged variant behind every entry:
//
//	eager: data
//	lazy:  resolver, once, data/err cache
//	async: future
//
// The pack lock only guards the maps holding cells; resolution happens
// outside it and is serialised per cell.
type cell struct {
	kind     cellKind
	data     []byte
	err      error
	resolver Resolver
	once     sync.Once
	resolved atomic.Bool
	future   *worker.Future[[]byte]
}

func eagerCell(data []byte) *cell {
	c := &cell{kind: cellEager, data: data}
	c.resolved.Store(true)
	return c
}

func lazyCell(resolver Resolver) *cell {
	return &cell{kind: cellLazy, resolver: resolver}
}

func asyncCell(future *worker.Future[[]byte]) *cell {
	return &cell{kind: cellAsync, future: future}
}

// resolve returns the cell's bytes, evaluating a lazy resolver on first use.
// Resolver and task failures come back as *ResolveError and are cached;
// cancellation of ctx while waiting on an async cell is returned as is.
func (c *cell) resolve(ctx context.Context, p *Pack, section resource.Section, id resource.ID) ([]byte, error) {
	switch c.kind {
	case cellEager:
		return c.data, nil

	case cellLazy:
		if resolvingIn(ctx, c) {
			return nil, &ResolveError{Section: section, ID: id, Err: ErrResolverCycle}
		}
		c.once.Do(func() {
			start := time.Now()
			rctx := context.WithValue(context.WithoutCancel(ctx), resolvingKey{}, &resolving{cell: c, parent: chain(ctx)})
			c.data, c.err = c.evaluate(rctx, p, id)
			if c.err != nil {
				c.err = &ResolveError{Section: section, ID: id, Err: c.err}
			}
			c.resolved.Store(true)
			p.resolved(ctx, section, id, c.kind, start, c.err)
		})
		return c.data, c.err

	default:
		start := time.Now()
		data, err := c.future.Wait(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, err
			}
			return nil, &ResolveError{Section: section, ID: id, Err: err}
		}
		if !c.resolved.Swap(true) {
			p.resolved(ctx, section, id, c.kind, start, nil)
		}
		return data, nil
	}
}

func (c *cell) evaluate(ctx context.Context, p *Pack, id resource.ID) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("%w: %v", ErrResolverPanic, r)
		}
	}()
	return c.resolver(ctx, p, id)
}

type resolvingKey struct{}

// resolving is the chain of lazy cells being evaluated on one call path.
type resolving struct {
	cell   *cell
	parent *resolving
}

func chain(ctx context.Context) *resolving {
	r, _ := ctx.Value(resolvingKey{}).(*resolving)
	return r
}

func resolvingIn(ctx context.Context, c *cell) bool {
	for r := chain(ctx); r != nil; r = r.parent {
		if r.cell == c {
			return true
		}
	}
	return false
}
