package pack

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/tailored-agentic-units/rrp/resource"
)

// Location returns the slash separated archive path of an entry:
// assets/<namespace>/<path>, data/<namespace>/<path>, or the bare root name.
func Location(section resource.Section, id resource.ID) string {
	if !section.Keyed() {
		return id.Path
	}
	return section.Dir() + "/" + id.Namespace + "/" + id.Path
}

// ParseLocation classifies an archive path by its top-level folder. Paths
// under assets/ or data/ with a namespace and a path become keyed entries;
// everything else is a root entry. Paths that escape the pack fail with
// ErrInvalidPath.
func ParseLocation(name string) (resource.Section, resource.ID, error) {
	name = filepath.ToSlash(name)
	if !localPath(name) {
		return 0, resource.ID{}, fmt.Errorf("%w: %s", ErrInvalidPath, name)
	}
	name = path.Clean(name)

	parts := strings.SplitN(name, "/", 3)
	if len(parts) == 3 && parts[1] != "" && parts[2] != "" {
		switch parts[0] {
		case resource.ClientAssets.Dir():
			return resource.ClientAssets, resource.NewID(parts[1], parts[2]), nil
		case resource.ServerData.Dir():
			return resource.ServerData, resource.NewID(parts[1], parts[2]), nil
		}
	}

	return resource.Root, rootID(name), nil
}

// DumpPath is the directory a pack is dumped to on close.
func DumpPath(dir string, id resource.ID) string {
	return filepath.Join(dir, id.Namespace+";"+strings.ReplaceAll(id.Path, "/", ";"))
}

func rootID(name string) resource.ID {
	return resource.ID{Path: name}
}

// checkKey validates the key an entry is stored under. Keyed sections need a
// namespace and a local path. Root entries need a clean local path, which
// may contain subdirectories even though OpenRoot refuses them, and must not
// sit where ParseLocation would read back a keyed entry.
func checkKey(section resource.Section, id resource.ID) error {
	switch {
	case section.Keyed():
		if id.Namespace == "" || id.Path == "" || strings.Contains(id.Namespace, "/") {
			return fmt.Errorf("%w: %s", resource.ErrInvalidID, id)
		}
	case section == resource.Root:
		if id.Namespace != "" {
			return fmt.Errorf("%w: root entries have no namespace: %s", resource.ErrInvalidID, id)
		}
	default:
		return fmt.Errorf("unknown section: %s", section)
	}

	if !localPath(id.Path) {
		return fmt.Errorf("%w: %s", ErrInvalidPath, id.Path)
	}
	if section == resource.Root {
		if id.Path != path.Clean(id.Path) {
			return fmt.Errorf("%w: not a clean path: %q", ErrInvalidRootPath, id.Path)
		}
		if keyed, _, _ := ParseLocation(id.Path); keyed != resource.Root {
			return fmt.Errorf("%w: %q is a %s location", ErrInvalidRootPath, id.Path, keyed)
		}
	}
	return nil
}

func localPath(name string) bool {
	if name == "" || strings.Contains(name, `\`) {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(name))
}

func validRootName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidRootPath, name)
	}
	return nil
}
