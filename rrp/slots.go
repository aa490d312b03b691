package rrp

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/rrp/pack"
	"github.com/tailored-agentic-units/rrp/resource"
)

// Slot is a position in the host's pack load order. Packs loaded later
// override packs loaded earlier.
type Slot int

const (
	// BeforeVanilla packs load ahead of built-in content, which overrides
	// them.
	BeforeVanilla Slot = iota
	// BeforeUser packs override built-in content but not user packs.
	BeforeUser
	// AfterVanilla packs load behind everything and override all of it.
	AfterVanilla
)

// Slots lists every slot in load order.
var Slots = []Slot{BeforeVanilla, BeforeUser, AfterVanilla}

func (s Slot) String() string {
	switch s {
	case BeforeVanilla:
		return "before_vanilla"
	case BeforeUser:
		return "before_user"
	case AfterVanilla:
		return "after_vanilla"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

func (s Slot) valid() bool {
	return s >= BeforeVanilla && s <= AfterVanilla
}

// Source is anything that can take part in the search path: runtime packs
// and the host's own packs alike.
type Source interface {
	Exists(section resource.Section, id resource.ID) bool
	Read(ctx context.Context, section resource.Section, id resource.ID) ([]byte, error)
}

// SearchPath assembles the load order
//
//	BeforeVanilla..., builtin..., BeforeUser..., user..., AfterVanilla...
//
// Packs within a slot keep their registration order.
func (r *Runtime) SearchPath(builtin, user []Source) []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := make([]Source, 0, len(builtin)+len(user)+len(r.registered))
	path = appendPacks(path, r.slots[BeforeVanilla])
	path = append(path, builtin...)
	path = appendPacks(path, r.slots[BeforeUser])
	path = append(path, user...)
	path = appendPacks(path, r.slots[AfterVanilla])
	return path
}

// Lookup reads an entry from the highest-priority source that holds it, that
// is the last one in path.
func Lookup(ctx context.Context, path []Source, section resource.Section, id resource.ID) ([]byte, Source, error) {
	for i := len(path) - 1; i >= 0; i-- {
		src := path[i]
		if !src.Exists(section, id) {
			continue
		}
		data, err := src.Read(ctx, section, id)
		if err != nil {
			return nil, src, err
		}
		return data, src, nil
	}
	return nil, nil, fmt.Errorf("%w: %s %s", pack.ErrNotFound, section, id)
}

func appendPacks(path []Source, packs []*pack.Pack) []Source {
	for _, p := range packs {
		path = append(path, p)
	}
	return path
}
