// Package resource defines the identifiers and sections used to address
// entries of a runtime resource pack.
package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// DefaultNamespace is assumed by ParseID when the input carries no namespace.
const DefaultNamespace = "minecraft"

// ErrInvalidID is returned when an identifier contains characters outside the
// allowed namespace or path alphabet.
var ErrInvalidID = errors.New("invalid resource id")

// ID is a namespace:path pair identifying one logical resource.
type ID struct {
	Namespace string
	Path      string
}

// NewID builds an ID without validation.
func NewID(namespace, path string) ID {
	return ID{Namespace: namespace, Path: path}
}

// ParseID parses "namespace:path". A missing namespace defaults to
// DefaultNamespace.
func ParseID(s string) (ID, error) {
	ns, path, found := strings.Cut(s, ":")
	if !found {
		ns, path = DefaultNamespace, s
	}
	if ns == "" {
		ns = DefaultNamespace
	}

	id := ID{Namespace: ns, Path: path}
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	return id, nil
}

// MustParseID is ParseID that panics on error. Intended for literals.
func MustParseID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return id.Namespace + ":" + id.Path
}

// IsZero reports whether both components are empty.
func (id ID) IsZero() bool {
	return id.Namespace == "" && id.Path == ""
}

// Validate checks the namespace against [a-z0-9_.-] and the path against
// [a-z0-9_.-/]. Neither may be empty.
func (id ID) Validate() error {
	if id.Namespace == "" || id.Path == "" {
		return fmt.Errorf("%w: %q", ErrInvalidID, id.String())
	}
	for _, r := range id.Namespace {
		if !validRune(r, false) {
			return fmt.Errorf("%w: namespace %q", ErrInvalidID, id.Namespace)
		}
	}
	for _, r := range id.Path {
		if !validRune(r, true) {
			return fmt.Errorf("%w: path %q", ErrInvalidID, id.Path)
		}
	}
	return nil
}

// WithPrefix returns a copy of id with prefix prepended to the path.
func (id ID) WithPrefix(prefix string) ID {
	return ID{Namespace: id.Namespace, Path: prefix + id.Path}
}

// WithSuffix returns a copy of id with suffix appended to the path.
func (id ID) WithSuffix(suffix string) ID {
	return ID{Namespace: id.Namespace, Path: id.Path + suffix}
}

// IDFromName turns a human readable name into an identifier path, e.g.
// "Ruby Block" becomes namespace:ruby_block.
func IDFromName(namespace, name string) ID {
	return ID{Namespace: namespace, Path: strcase.ToSnake(strings.TrimSpace(name))}
}

// TranslationKey builds a language key of the form kind.namespace.path, with
// path separators replaced by dots.
func TranslationKey(kind string, id ID) string {
	return kind + "." + id.Namespace + "." + strings.ReplaceAll(id.Path, "/", ".")
}

func validRune(r rune, path bool) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.':
		return true
	case r == '/':
		return path
	default:
		return false
	}
}
