package faults

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/emunet/faultbed/pkg/spec"
)

// Node fault kinds.
const (
	// NodeDown suspends the node's process group for the injection phase.
	NodeDown = "down"
	// NodeKill kills the node's process group.
	NodeKill = "kill"
)

// Signaler delivers a signal to the process group of a pid.
type Signaler interface {
	Signal(pid int, signal unix.Signal) error
}

// unixSignaler delivers signals with kill(2).
type unixSignaler struct{}

// DefaultSignaler returns a Signaler backed by kill(2).
func DefaultSignaler() Signaler {
	return unixSignaler{}
}

// Signal sends the signal to the whole process group of pid.
func (unixSignaler) Signal(pid int, signal unix.Signal) error {
	return unix.Kill(-pid, signal)
}

// NodeInjector is a fault unit that acts on a whole node process, not
// scoped to an interface.
type NodeInjector struct {
	target      spec.Target
	kind        string
	pattern     string
	patternArgs []string
	window      spec.Window
	tag         string

	signaler Signaler
	log      logrus.FieldLogger
}

// NewNodeInjector builds the node fault unit described by f.
func NewNodeInjector(f spec.Fault, signaler Signaler, log logrus.FieldLogger) (*NodeInjector, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	switch f.Kind {
	case NodeDown, NodeKill:
	default:
		return nil, fmt.Errorf("%w: node fault %q", ErrUnknownKind, f.Kind)
	}

	return &NodeInjector{
		target:      f.Target,
		kind:        f.Kind,
		pattern:     f.Pattern,
		patternArgs: f.PatternArgs,
		window:      f.Window,
		tag:         f.Tag,
		signaler:    signaler,
		log:         log.WithField("tag", f.Tag),
	}, nil
}

// Tag returns the unit's tag.
func (n *NodeInjector) Tag() string {
	return n.tag
}

// Inject runs the unit's injection window to completion. A fault whose
// target was never resolved is rejected instead of silently doing nothing.
func (n *NodeInjector) Inject(ctx context.Context) error {
	if !n.target.Resolved() {
		return fmt.Errorf("%w: %q", ErrUnresolvedTarget, n.target.Ref)
	}

	n.log.Debugf("injecting %s fault on node %q", n.kind, n.target.Ref)
	apply, clear := n.actions()

	return runWindow(ctx, n.window, n.pattern, n.patternArgs, apply, clear)
}

func (n *NodeInjector) actions() (apply, clear func() error) {
	pid := *n.target.PID
	switch n.kind {
	case NodeKill:
		// there is nothing to restore after a kill
		return func() error { return n.signaler.Signal(pid, unix.SIGKILL) },
			func() error { return nil }

	default: // NodeDown
		return func() error { return n.signaler.Signal(pid, unix.SIGSTOP) },
			func() error { return n.signaler.Signal(pid, unix.SIGCONT) }
	}
}
