package runtime

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/emunet/faultbed/pkg/runtime/profiler"
)

// FakeExecutor is an instance of an Executor that keeps the history
// of commands for inspection and returns the predefined results.
// Even when it allows multiple invocations to Exec, it only allows
// setting one err and output which are returned on each call. If different
// results are needed for each invocation, [CallbackExecutor] may be a
// better alternative. It is safe for use from concurrent fault units.
type FakeExecutor struct {
	mu          sync.Mutex
	invocations int
	commands    []string
	err         error
	output      []byte
}

// NewFakeExecutor creates a new instance of a FakeExecutor
func NewFakeExecutor(output []byte, err error) *FakeExecutor {
	return &FakeExecutor{
		err:    err,
		output: output,
	}
}

func (p *FakeExecutor) updateHistory(cmd string, args ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cmdLine := cmd + " " + strings.Join(args, " ")
	p.commands = append(p.commands, cmdLine)
	p.invocations++
}

// Exec mocks the execution of a process, returning the predefined results
func (p *FakeExecutor) Exec(cmd string, args ...string) ([]byte, error) {
	p.updateHistory(cmd, args...)
	return p.output, p.err
}

// Invoked indicates if the Exec command was invoked at least once
func (p *FakeExecutor) Invoked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invocations > 0
}

// Cmd returns the value of the command passed to the last invocation
func (p *FakeExecutor) Cmd() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invocations == 0 {
		return ""
	}
	return p.commands[p.invocations-1]
}

// CmdHistory returns the history of commands executed. If Invocations is 0,
// returns an empty array
func (p *FakeExecutor) CmdHistory() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	history := make([]string, len(p.commands))
	copy(history, p.commands)
	return history
}

// Invocations returns the number of invocations to the Exec function
func (p *FakeExecutor) Invocations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invocations
}

// Reset clears the history of invocations to the FakeExecutor
func (p *FakeExecutor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invocations = 0
	p.commands = []string{}
}

// ExecCallback defines a function that can receive the forward of an Exec invocation
// The function must return the output of the invocation and the execution error, if any
type ExecCallback func(cmd string, args ...string) ([]byte, error)

// CallbackExecutor is a fake process Executor that forwards the invocations
// to a function that can dynamically return error and output.
type CallbackExecutor struct {
	FakeExecutor
	callback ExecCallback
}

// NewCallbackExecutor returns an instance of a CallbackExecutor
func NewCallbackExecutor(callback ExecCallback) *CallbackExecutor {
	return &CallbackExecutor{
		callback: callback,
	}
}

// Exec forwards the invocation to the callback
func (c *CallbackExecutor) Exec(cmd string, args ...string) ([]byte, error) {
	// update command history but ignore outputs
	c.FakeExecutor.updateHistory(cmd, args...)
	// return outputs from callback
	return c.callback(cmd, args...)
}

// FakeProfiler is a noop profiler for testing
type FakeProfiler struct {
	started bool
	stopped bool
}

// NewFakeProfiler creates a new FakeProfiler
func NewFakeProfiler() *FakeProfiler {
	return &FakeProfiler{}
}

// Start registers that the profiler was started
func (p *FakeProfiler) Start(profiler.Config) (io.Closer, error) {
	p.started = true
	return p, nil
}

// Close registers that the profiler was stopped
func (p *FakeProfiler) Close() error {
	p.stopped = true
	return nil
}

// WasStarted indicates if Start was invoked
func (p *FakeProfiler) WasStarted() bool {
	return p.started
}

// WasStopped indicates if Close was invoked
func (p *FakeProfiler) WasStopped() bool {
	return p.stopped
}

// FakeProcess implements a Process for testing
type FakeProcess struct {
	name     string
	locked   bool
	unlocked bool
}

// NewFakeProcess returns a default FakeProcess for testing
func NewFakeProcess(name string) *FakeProcess {
	return &FakeProcess{name: name}
}

// Name implements the Name method from the Process interface
func (p *FakeProcess) Name() string {
	return p.name
}

// Lock implements the Lock method from the Process interface
func (p *FakeProcess) Lock() error {
	p.locked = true
	return nil
}

// Unlock implements the Unlock method from the Process interface
func (p *FakeProcess) Unlock() error {
	p.unlocked = true
	return nil
}

// WasLocked indicates if Lock was invoked
func (p *FakeProcess) WasLocked() bool {
	return p.locked
}

// WasUnlocked indicates if Unlock was invoked
func (p *FakeProcess) WasUnlocked() bool {
	return p.unlocked
}

// FakeSignals implements fake signal handling for testing
type FakeSignals struct {
	channel chan os.Signal
}

// NewFakeSignals returns a FakeSignals
func NewFakeSignals() *FakeSignals {
	return &FakeSignals{
		channel: make(chan os.Signal),
	}
}

// Notify implements the Signals interface's Notify method
func (f *FakeSignals) Notify(_ ...os.Signal) <-chan os.Signal {
	return f.channel
}

// Reset implements the Signals interface's Reset method. It is noop.
func (f *FakeSignals) Reset(_ ...os.Signal) {
	// noop
}

// Send sends the given signal to the signal notification channel
func (f *FakeSignals) Send(signal os.Signal) {
	f.channel <- signal
}

// FakeEnvironment holds the state of a fake execution environment for testing
type FakeEnvironment struct {
	FakeExecutor *FakeExecutor
	FakeProcess  *FakeProcess
	FakeSignals  *FakeSignals
	FakeProfiler *FakeProfiler
}

// NewFakeEnvironment creates a default FakeEnvironment
func NewFakeEnvironment(name string) *FakeEnvironment {
	return &FakeEnvironment{
		FakeExecutor: NewFakeExecutor(nil, nil),
		FakeProcess:  NewFakeProcess(name),
		FakeSignals:  NewFakeSignals(),
		FakeProfiler: NewFakeProfiler(),
	}
}

// Executor returns the fake executor
func (f *FakeEnvironment) Executor() Executor {
	return f.FakeExecutor
}

// Process returns the fake process
func (f *FakeEnvironment) Process() Process {
	return f.FakeProcess
}

// Signals returns the fake signal handler
func (f *FakeEnvironment) Signals() Signals {
	return f.FakeSignals
}

// Profiler returns the fake profiler
func (f *FakeEnvironment) Profiler() Profiler {
	return f.FakeProfiler
}
