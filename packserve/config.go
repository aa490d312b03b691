package packserve

const (
	defaultAddr      = "127.0.0.1:8089"
	defaultRateLimit = 50
	defaultBurst     = 100
)

// Config holds server parameters.
//
// Example YAML:
//
//	addr: 127.0.0.1:8089
//	rate_limit: 50
//	burst: 100
type Config struct {
	// Addr is the listen address of ListenAndServe.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// RateLimit is the sustained number of requests per second across all
	// procedures. A negative value disables limiting.
	RateLimit float64 `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`

	// Burst is the number of requests allowed above RateLimit at once.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`

	// Observer names the registered observer receiving request events.
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:      defaultAddr,
		RateLimit: defaultRateLimit,
		Burst:     defaultBurst,
		Observer:  "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.RateLimit != 0 {
		c.RateLimit = source.RateLimit
	}
	if source.Burst > 0 {
		c.Burst = source.Burst
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
