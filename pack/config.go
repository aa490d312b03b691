package pack

const (
	// DefaultFormat is the pack_format written into synthesized manifests.
	DefaultFormat = 15

	defaultDumpDir = "rrp.debug"
)

// Config holds pack initialization parameters. Configuration only exists
// during New; the pack keeps its own copy.
//
// Example JSON:
//
//	{
//	  "format": 15,
//	  "description": "generated ores",
//	  "forbid_duplicates": true,
//	  "dump": true,
//	  "dump_dir": "rrp.debug",
//	  "observer": "slog"
//	}
type Config struct {
	// Format is the pack_format of the synthesized pack.mcmeta.
	Format int `json:"format,omitempty" yaml:"format,omitempty"`

	// Description of the synthesized pack.mcmeta. Empty derives one from the
	// pack id.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// ForbidDuplicates turns re-registration of a key into ErrDuplicateResource.
	ForbidDuplicates bool `json:"forbid_duplicates,omitempty" yaml:"forbid_duplicates,omitempty"`

	// Dump exports the pack to DumpDir when it is closed.
	Dump bool `json:"dump,omitempty" yaml:"dump,omitempty"`

	// DumpDir is the parent directory of close-time dumps.
	DumpDir string `json:"dump_dir,omitempty" yaml:"dump_dir,omitempty"`

	// DebugPerformance adds timing events for resolution and export.
	DebugPerformance bool `json:"debug_performance,omitempty" yaml:"debug_performance,omitempty"`

	// Observer names the registered observer receiving pack events.
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// DefaultConfig returns the default pack configuration.
func DefaultConfig() Config {
	return Config{
		Format:   DefaultFormat,
		DumpDir:  defaultDumpDir,
		Observer: "slog",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Format > 0 {
		c.Format = source.Format
	}
	if source.Description != "" {
		c.Description = source.Description
	}
	if source.ForbidDuplicates {
		c.ForbidDuplicates = true
	}
	if source.Dump {
		c.Dump = true
	}
	if source.DumpDir != "" {
		c.DumpDir = source.DumpDir
	}
	if source.DebugPerformance {
		c.DebugPerformance = true
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
