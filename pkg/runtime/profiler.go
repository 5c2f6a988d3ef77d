package runtime

import (
	"io"

	"github.com/emunet/faultbed/pkg/runtime/profiler"
)

// Profiler defines the methods to start execution profiling
type Profiler interface {
	// Start starts the collection of profiling information with the given
	// configuration. The returned closer stops the collection and flushes
	// the output files.
	Start(profiler.Config) (io.Closer, error)
}

// defaultProfiler starts the probe based profiler
type defaultProfiler struct{}

// DefaultProfiler returns the default profiler
func DefaultProfiler() Profiler {
	return defaultProfiler{}
}

func (defaultProfiler) Start(config profiler.Config) (io.Closer, error) {
	return profiler.NewProfiler().Start(config)
}
