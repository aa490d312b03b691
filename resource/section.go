package resource

import "fmt"

// Section is one of the logical stores of a pack.
type Section int

const (
	// ClientAssets holds resource-pack content under assets/.
	ClientAssets Section = iota
	// ServerData holds data-pack content under data/.
	ServerData
	// Root holds files at the top of the pack, such as pack.mcmeta.
	Root
)

// Sections lists every section in export order.
var Sections = []Section{Root, ClientAssets, ServerData}

func (s Section) String() string {
	switch s {
	case ClientAssets:
		return "client_assets"
	case ServerData:
		return "server_data"
	case Root:
		return "root"
	default:
		return fmt.Sprintf("section(%d)", int(s))
	}
}

// Dir returns the top-level archive directory of the section. Root has none.
func (s Section) Dir() string {
	switch s {
	case ClientAssets:
		return "assets"
	case ServerData:
		return "data"
	default:
		return ""
	}
}

// Keyed reports whether entries of the section are addressed by ID rather
// than by a flat root path.
func (s Section) Keyed() bool {
	return s == ClientAssets || s == ServerData
}

// ParseSection accepts either the String or Dir form of a section.
func ParseSection(s string) (Section, error) {
	switch s {
	case "assets", "client_assets":
		return ClientAssets, nil
	case "data", "server_data":
		return ServerData, nil
	case "root", "":
		return Root, nil
	default:
		return 0, fmt.Errorf("unknown section: %s", s)
	}
}
