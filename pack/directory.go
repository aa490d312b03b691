package pack

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/resource"
	"github.com/tailored-agentic-units/rrp/worker"
)

type entry struct {
	section resource.Section
	id      resource.ID
	cell    *cell
}

func (e entry) location() string {
	return Location(e.section, e.id)
}

type file struct {
	section resource.Section
	id      resource.ID
	data    []byte
}

// snapshot copies every entry in layout order: root, assets, data, each
// sorted by location.
func (p *Pack) snapshot() ([]entry, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrClosed
	}

	var entries []entry
	for _, section := range resource.Sections {
		start := len(entries)
		for id, c := range p.entries[section] {
			entries = append(entries, entry{section: section, id: id, cell: c})
		}
		slices.SortFunc(entries[start:], func(a, b entry) int {
			return cmp.Compare(a.location(), b.location())
		})
	}
	return entries, nil
}

// ExportDir resolves every entry and writes it under root using the pack
// layout. Files are written atomically through a temporary file and rename.
// The synthesized pack.mcmeta is not written.
func (p *Pack) ExportDir(ctx context.Context, root string) error {
	entries, err := p.snapshot()
	if err != nil {
		return err
	}
	start := time.Now()

	_, err = worker.ProcessParallel(ctx, p.parallelConfig(), entries, func(ctx context.Context, e entry) (struct{}, error) {
		data, err := e.cell.resolve(ctx, p, e.section, e.id)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, writeFile(filepath.Join(root, filepath.FromSlash(e.location())), data)
	})
	if err != nil {
		p.emit(ctx, EventError, observability.LevelError, map[string]any{
			"operation": "export_dir",
			"dir":       root,
			"error":     err.Error(),
		})
		return fmt.Errorf("export %s to %s: %w", p.id, root, err)
	}

	p.exported(ctx, "dir", root, len(entries), start)
	return nil
}

// ImportDir walks root and installs every regular file as an eager entry,
// classified by its top-level folder. Dot-prefixed names are ordinary keys;
// only temporary files left behind by an interrupted ExportDir are skipped.
// Nothing is installed unless the whole tree was read and, under the
// duplicate policy, no key collides.
func (p *Pack) ImportDir(ctx context.Context, root string) error {
	var files []file

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		section, id, err := ParseLocation(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		files = append(files, file{section: section, id: id, data: data})
		return nil
	})
	if err != nil {
		return fmt.Errorf("import %s from %s: %w", p.id, root, err)
	}

	if err := p.installAll(files); err != nil {
		return fmt.Errorf("import %s from %s: %w", p.id, root, err)
	}

	p.emit(ctx, EventImport, observability.LevelInfo, map[string]any{
		"source":  "dir",
		"path":    root,
		"entries": len(files),
	})
	return nil
}

// installAll stores files as eager entries in one critical section. Either
// every file is installed or none is.
func (p *Pack) installAll(files []file) error {
	for _, f := range files {
		if err := checkKey(f.section, f.id); err != nil {
			return err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.forbid {
		seen := make(map[string]struct{}, len(files))
		for _, f := range files {
			loc := Location(f.section, f.id)
			_, stored := p.entries[f.section][f.id]
			_, repeated := seen[loc]
			if stored || repeated {
				return fmt.Errorf("%w: %s %s", ErrDuplicateResource, f.section, f.id)
			}
			seen[loc] = struct{}{}
		}
	}

	for _, f := range files {
		p.entries[f.section][f.id] = eagerCell(f.data)
	}
	return nil
}

func (p *Pack) exported(ctx context.Context, target, path string, count int, start time.Time) {
	data := map[string]any{
		"target":  target,
		"path":    path,
		"entries": count,
	}
	if p.cfg.DebugPerformance {
		data["duration_ms"] = time.Since(start).Milliseconds()
	}
	p.emit(ctx, EventExport, observability.LevelInfo, data)
}

// tempPrefix marks files ExportDir is still writing.
const tempPrefix = ".rrp-tmp-"

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
