// Package runtime abstracts the execution environment of a process: command
// execution, signal handling, the process lock and profiling. Components
// take these interfaces instead of reaching for the os packages directly so
// tests can substitute the fakes defined in this package.
package runtime

import "os"

// Environment abstracts the execution environment of a process.
type Environment interface {
	// Executor returns a process executor that abstracts os/exec
	Executor() Executor
	// Process returns an interface for managing the process execution
	Process() Process
	// Signals returns an interface for handling signals
	Signals() Signals
	// Profiler returns an interface for profiling the process execution
	Profiler() Profiler
}

// environment keeps the state of the execution environment
type environment struct {
	executor Executor
	process  Process
	signals  Signals
	profiler Profiler
}

// DefaultEnvironment returns the default execution environment for the
// currently running process.
func DefaultEnvironment() Environment {
	return environment{
		executor: DefaultExecutor(),
		process:  DefaultProcess(os.Args),
		signals:  DefaultSignals(),
		profiler: DefaultProfiler(),
	}
}

func (e environment) Executor() Executor {
	return e.executor
}

func (e environment) Process() Process {
	return e.process
}

func (e environment) Signals() Signals {
	return e.signals
}

func (e environment) Profiler() Profiler {
	return e.profiler
}
