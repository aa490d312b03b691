package pack

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/tailored-agentic-units/rrp/observability"
	"github.com/tailored-agentic-units/rrp/resource"
)

// langBuffer accumulates translation pairs for one language file until its
// entry is first read.
type langBuffer struct {
	mu      sync.Mutex
	entries map[string]string
	cell    *cell
}

func (b *langBuffer) resolve(_ context.Context, _ *Pack, _ resource.ID) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return marshalJSON(b.entries)
}

// LangID returns the client asset key of a language file, e.g.
// mymod:en_us becomes mymod:lang/en_us.json.
func LangID(lang resource.ID) resource.ID {
	return lang.WithPrefix("lang/").WithSuffix(".json")
}

// MergeLang folds entries into the language file lang (for example
// mymod:en_us). Later values overwrite earlier ones for the same key. The
// merged file is serialized the first time it is read; merges after that
// are kept in the buffer but have no visible effect, and are reported as a
// pack.lang.late_merge warning.
func (p *Pack) MergeLang(lang resource.ID, entries map[string]string) error {
	id := LangID(lang)
	if err := checkKey(resource.ClientAssets, id); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}

	buf, ok := p.langs[id]
	installed := ok && p.entries[resource.ClientAssets][id] == buf.cell
	if !installed {
		if err := p.admit(resource.ClientAssets, id); err != nil {
			p.mu.Unlock()
			return err
		}
		if buf == nil {
			buf = &langBuffer{entries: make(map[string]string, len(entries))}
			p.langs[id] = buf
		}
		// A replaced cell has already been detached from the buffer; start a
		// fresh one over the same accumulated pairs.
		buf.cell = lazyCell(buf.resolve)
		p.entries[resource.ClientAssets][id] = buf.cell
	}

	buf.mu.Lock()
	maps.Copy(buf.entries, entries)
	buf.mu.Unlock()
	late := buf.cell.resolved.Load()
	p.mu.Unlock()

	ctx := context.Background()
	if late {
		p.emit(ctx, EventLateMerge, observability.LevelWarning, map[string]any{
			"id":      id.String(),
			"entries": len(entries),
		})
		return nil
	}
	p.emit(ctx, EventPut, observability.LevelVerbose, map[string]any{
		"section": resource.ClientAssets.String(),
		"id":      id.String(),
		"kind":    "lang",
		"entries": len(entries),
	})
	return nil
}

// AddLang stores a complete language file as an eager entry, replacing any
// merge buffer for it.
func (p *Pack) AddLang(lang resource.ID, entries map[string]string) ([]byte, error) {
	data, err := marshalJSON(entries)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", lang, err)
	}
	id := LangID(lang)
	if _, err := p.Put(resource.ClientAssets, id, data); err != nil {
		return nil, err
	}

	p.mu.Lock()
	delete(p.langs, id)
	p.mu.Unlock()
	return data, nil
}
