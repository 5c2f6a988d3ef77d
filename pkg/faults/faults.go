// Package faults implements the fault units the injector process schedules:
// link faults that impair one interface of the emulated network and node
// faults that act on a whole node process. Each unit exposes a single
// blocking operation, Inject, that runs the unit's pre-injection, injection
// and post-injection phases to completion.
package faults

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/spec"
)

var (
	// ErrUnresolvedTarget is returned by Inject when the unit's target
	// reference could not be resolved against the topology.
	ErrUnresolvedTarget = errors.New("fault target was not resolved")
	// ErrUnknownKind is returned when a fault kind has no implementation.
	ErrUnknownKind = errors.New("unknown fault kind")
	// ErrUnknownPattern is returned for injection patterns other than
	// persistent and intermittent.
	ErrUnknownPattern = errors.New("unknown injection pattern")
)

// Fault is a single fault unit. Units sharing a process must be safe to
// run concurrently.
type Fault interface {
	// Tag identifies the unit in logs across processes
	Tag() string
	// Inject runs the unit's full injection window to completion
	Inject(ctx context.Context) error
}

// FromSpec materializes the fault unit described by f. Commands the unit
// runs go through the given executor.
func FromSpec(f spec.Fault, executor runtime.Executor, log logrus.FieldLogger) (Fault, error) {
	switch f.Class {
	case spec.ClassLink:
		return NewLinkInjector(f, executor, log)
	case spec.ClassNode:
		return NewNodeInjector(f, DefaultSignaler(), log)
	default:
		return nil, fmt.Errorf("unknown fault class %q", f.Class)
	}
}
