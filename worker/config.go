package worker

import "runtime"

const defaultQueueSize = 256

// Config holds pool sizing parameters.
//
// Example JSON:
//
//	{
//	  "threads": 4,
//	  "queue_size": 256
//	}
type Config struct {
	// Threads is the number of worker goroutines (0 = half of NumCPU, min 1).
	Threads int `json:"threads,omitempty" yaml:"threads,omitempty"`

	// QueueSize preallocates room for waiting tasks. The queue grows past it
	// rather than blocking Submit.
	QueueSize int `json:"queue_size,omitempty" yaml:"queue_size,omitempty"`
}

// DefaultConfig sizes the pool at roughly half the available hardware
// parallelism.
func DefaultConfig() Config {
	return Config{
		Threads:   DefaultThreads(),
		QueueSize: defaultQueueSize,
	}
}

// DefaultThreads returns max(1, NumCPU/2).
func DefaultThreads() int {
	return max(1, runtime.NumCPU()/2)
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Threads > 0 {
		c.Threads = source.Threads
	}
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}
}

// ParallelConfig controls ProcessParallel fan-out.
type ParallelConfig struct {
	// MaxWorkers specifies exact worker count (0 = auto-detect)
	MaxWorkers int `json:"max_workers"`

	// WorkerCap limits auto-detected workers
	WorkerCap int `json:"worker_cap"`

	// FailFastNil controls error handling behavior. Use FailFast() to access.
	// When nil, defaults to true.
	FailFastNil *bool `json:"fail_fast"`

	// Observer names the registered observer receiving fan-out events.
	Observer string `json:"observer"`
}

// FailFast reports whether the first failure cancels remaining work.
func (c *ParallelConfig) FailFast() bool {
	if c.FailFastNil == nil {
		return true
	}
	return *c.FailFastNil
}

// DefaultParallelConfig returns auto-detected workers capped at 16 with
// fail-fast enabled.
func DefaultParallelConfig() ParallelConfig {
	failFast := true
	return ParallelConfig{
		MaxWorkers:  0,
		WorkerCap:   16,
		FailFastNil: &failFast,
		Observer:    "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *ParallelConfig) Merge(source *ParallelConfig) {
	if source.MaxWorkers > 0 {
		c.MaxWorkers = source.MaxWorkers
	}
	if source.WorkerCap > 0 {
		c.WorkerCap = source.WorkerCap
	}
	if source.FailFastNil != nil {
		c.FailFastNil = source.FailFastNil
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}
