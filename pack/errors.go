package pack

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/rrp/resource"
)

// Sentinel errors for pack operations.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrDuplicateResource = errors.New("duplicate resource")
	ErrTruncatedArchive  = errors.New("truncated archive")
	ErrInvalidRootPath   = errors.New("invalid root path")
	ErrInvalidPath       = errors.New("path escapes pack root")
	ErrInvalidManifest   = errors.New("invalid pack manifest")
	ErrClosed            = errors.New("pack closed")
	ErrResolverPanic     = errors.New("resolver panicked")
	ErrResolverCycle     = errors.New("resolver reads an entry it is resolving")
)

// ResolveError reports that a lazy resolver or async task failed. It is kept
// distinct from the sentinels above, which describe failures of the store's
// own bookkeeping.
type ResolveError struct {
	Section resource.Section
	ID      resource.ID
	Err     error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve %s %s: %v", e.Section, e.ID, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
