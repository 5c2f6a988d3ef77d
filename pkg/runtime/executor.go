package runtime

import (
	"os/exec"
	"strconv"
)

// Executor offers methods for running processes
type Executor interface {
	// Exec executes a process and waits for its completion, returning
	// the combined stdout and stderr
	Exec(cmd string, args ...string) ([]byte, error)
}

// An instance of an executor that uses the os/exec package for
// executing processes
type executor struct{}

// DefaultExecutor returns a default executor
func DefaultExecutor() Executor {
	return &executor{}
}

// Exec executes a process and returns the combined stdout and stderr
func (e *executor) Exec(cmd string, args ...string) ([]byte, error) {
	return exec.Command(cmd, args...).CombinedOutput()
}

// namespaced wraps an Executor so that every command runs inside the
// network namespace of another process, by prefixing it with nsenter.
type namespaced struct {
	executor Executor
	pid      int
}

// Namespaced returns an Executor that runs commands inside the network
// namespace of the process with the given pid. A pid of zero returns the
// wrapped executor unchanged, running commands in the current namespace.
func Namespaced(executor Executor, pid int) Executor {
	if pid == 0 {
		return executor
	}
	return &namespaced{
		executor: executor,
		pid:      pid,
	}
}

// Exec runs the command through nsenter in the target's network namespace
func (n *namespaced) Exec(cmd string, args ...string) ([]byte, error) {
	nsArgs := append([]string{"-t", strconv.Itoa(n.pid), "-n", cmd}, args...)
	return n.executor.Exec("nsenter", nsArgs...)
}
