package pack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/resource"
)

// Open returns a reader over the resolved entry. Missing entries yield
// ErrNotFound; resolver failures a *ResolveError.
func (p *Pack) Open(ctx context.Context, section resource.Section, id resource.ID) (io.ReadCloser, error) {
	data, err := p.Read(ctx, section, id)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Read resolves the entry and returns its bytes. The first read of a lazy
// entry runs its resolver; reads of an async entry block until its task
// finishes or ctx is done. The returned slice must not be modified.
func (p *Pack) Read(ctx context.Context, section resource.Section, id resource.ID) ([]byte, error) {
	c, err := p.lookup(section, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		p.missing(ctx, section, id)
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, section, id)
	}
	return c.resolve(ctx, p, section, id)
}

// OpenRoot returns a reader over a root entry. See ReadRoot.
func (p *Pack) OpenRoot(ctx context.Context, name string) (io.ReadCloser, error) {
	data, err := p.ReadRoot(ctx, name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadRoot resolves a root entry. Names containing a path separator fail
// with ErrInvalidRootPath. Without an explicit entry, pack.mcmeta is
// synthesized from the configured format and description.
func (p *Pack) ReadRoot(ctx context.Context, name string) ([]byte, error) {
	if err := validRootName(name); err != nil {
		return nil, err
	}

	id := rootID(name)
	c, err := p.lookup(resource.Root, id)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c.resolve(ctx, p, resource.Root, id)
	}
	if name == ManifestName {
		return p.synthesizeManifest()
	}

	p.missing(ctx, resource.Root, id)
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, resource.Root, name)
}

// Exists reports whether an entry is stored under id without resolving it.
func (p *Pack) Exists(section resource.Section, id resource.ID) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.entries[section][id]
	return ok
}

// ExistsRoot reports whether ReadRoot(name) would find an entry, counting
// the synthesized pack.mcmeta.
func (p *Pack) ExistsRoot(name string) bool {
	if validRootName(name) != nil {
		return false
	}
	return name == ManifestName || p.Exists(resource.Root, rootID(name))
}

// Namespaces returns the sorted distinct namespaces of a keyed section.
func (p *Pack) Namespaces(section resource.Section) []string {
	if !section.Keyed() {
		return nil
	}

	p.mu.RLock()
	seen := make(map[string]struct{})
	for id := range p.entries[section] {
		seen[id.Namespace] = struct{}{}
	}
	p.mu.RUnlock()

	namespaces := make([]string, 0, len(seen))
	for ns := range seen {
		namespaces = append(namespaces, ns)
	}
	slices.Sort(namespaces)
	return namespaces
}

// Find returns the IDs in namespace whose path starts with prefix and, when
// filter is non-nil, satisfies it. Results are sorted by path. filter runs
// without the pack lock held.
func (p *Pack) Find(section resource.Section, namespace, prefix string, filter func(path string) bool) []resource.ID {
	p.mu.RLock()
	var ids []resource.ID
	for id := range p.entries[section] {
		if id.Namespace == namespace && strings.HasPrefix(id.Path, prefix) {
			ids = append(ids, id)
		}
	}
	p.mu.RUnlock()

	if filter != nil {
		ids = slices.DeleteFunc(ids, func(id resource.ID) bool {
			return !filter(id.Path)
		})
	}
	slices.SortFunc(ids, func(a, b resource.ID) int {
		return strings.Compare(a.Path, b.Path)
	})
	return ids
}

// Len returns the number of entries stored in section.
func (p *Pack) Len(section resource.Section) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries[section])
}

func (p *Pack) lookup(section resource.Section, id resource.ID) (*cell, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}
	entries, ok := p.entries[section]
	if !ok {
		return nil, fmt.Errorf("unknown section: %s", section)
	}
	return entries[id], nil
}

func (p *Pack) missing(ctx context.Context, section resource.Section, id resource.ID) {
	p.emit(ctx, EventMissing, observability.LevelVerbose, map[string]any{
		"section": section.String(),
		"id":      id.String(),
	})
}
