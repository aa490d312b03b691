package pack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/worker"
)

// Put stores data as an eager entry and returns it. For the Root section the
// ID carries no namespace; PutRoot is the usual spelling.
func (p *Pack) Put(section resource.Section, id resource.ID, data []byte) ([]byte, error) {
	if err := p.install(context.Background(), section, id, eagerCell(data)); err != nil {
		return nil, err
	}
	return data, nil
}

// PutRoot stores data as an eager root entry. name may contain
// subdirectories for storage and export, but not assets/<ns>/... or
// data/<ns>/..., which an import would read back as keyed entries
// (ErrInvalidRootPath).
func (p *Pack) PutRoot(name string, data []byte) ([]byte, error) {
	return p.Put(resource.Root, rootID(name), data)
}

// PutLazy stores resolver as a memoized entry. The resolver runs at most
// once, the first time the entry is read.
func (p *Pack) PutLazy(section resource.Section, id resource.ID, resolver Resolver) error {
	if resolver == nil {
		return fmt.Errorf("%w: nil resolver for %s", resource.ErrInvalidID, id)
	}
	return p.install(context.Background(), section, id, lazyCell(resolver))
}

// PutRootLazy stores resolver as a memoized root entry.
func (p *Pack) PutRootLazy(name string, resolver Resolver) error {
	return p.PutLazy(resource.Root, rootID(name), resolver)
}

// PutAsync submits task to the worker pool immediately and stores an entry
// whose reads block until the task completes. The returned future resolves
// with the same result. Submission never blocks, so generators running on
// the pool may call PutAsync freely. If the pool rejects the task (closed
// pool, ctx already done) nothing is stored and any existing entry is kept.
// The task itself is never cancelled.
func (p *Pack) PutAsync(ctx context.Context, section resource.Section, id resource.ID, task Task) (*worker.Future[[]byte], error) {
	if task == nil {
		return nil, fmt.Errorf("%w: nil task for %s", resource.ErrInvalidID, id)
	}
	if err := checkKey(section, id); err != nil {
		return nil, err
	}

	p.mu.RLock()
	err := p.admit(section, id)
	p.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	future, err := worker.Submit[[]byte](ctx, p.pool, task)
	if err != nil {
		return nil, fmt.Errorf("submit %s: %w", id, err)
	}

	if err := p.install(ctx, section, id, asyncCell(future)); err != nil {
		return nil, err
	}
	return future, nil
}

// PutJSON marshals v and stores the result as an eager entry. Values that
// implement json.Marshaler control their own canonical form.
func (p *Pack) PutJSON(section resource.Section, id resource.ID, v any) ([]byte, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", id, err)
	}
	return p.Put(section, id, data)
}

// SetForbidDuplicates switches between replacing entries on re-registration
// and rejecting it with ErrDuplicateResource.
func (p *Pack) SetForbidDuplicates(forbid bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.forbid = forbid
}

// ForbidsDuplicates reports the current duplicate policy.
func (p *Pack) ForbidsDuplicates() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.forbid
}

// Clear removes every entry of section. Clearing ClientAssets also drops
// pending language merge buffers.
func (p *Pack) Clear(section resource.Section) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if _, ok := p.entries[section]; !ok {
		p.mu.Unlock()
		return fmt.Errorf("unknown section: %s", section)
	}
	removed := len(p.entries[section])
	p.entries[section] = make(map[resource.ID]*cell)
	dropped := 0
	if section == resource.ClientAssets {
		dropped = len(p.langs)
		p.langs = make(map[resource.ID]*langBuffer)
	}
	p.mu.Unlock()

	p.emit(context.Background(), EventClear, observability.LevelVerbose, map[string]any{
		"section":      section.String(),
		"removed":      removed,
		"lang_buffers": dropped,
	})
	return nil
}

func (p *Pack) install(ctx context.Context, section resource.Section, id resource.ID, c *cell) error {
	if err := checkKey(section, id); err != nil {
		return err
	}

	p.mu.Lock()
	if err := p.admit(section, id); err != nil {
		p.mu.Unlock()
		return err
	}
	p.entries[section][id] = c
	p.mu.Unlock()

	p.emit(ctx, EventPut, observability.LevelVerbose, map[string]any{
		"section": section.String(),
		"id":      id.String(),
		"kind":    c.kind.String(),
	})
	return nil
}

// admit checks that a new entry may be stored. Callers hold p.mu.
func (p *Pack) admit(section resource.Section, id resource.ID) error {
	if p.closed {
		return ErrClosed
	}
	if _, exists := p.entries[section][id]; exists && p.forbid {
		return fmt.Errorf("%w: %s %s", ErrDuplicateResource, section, id)
	}
	return nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
