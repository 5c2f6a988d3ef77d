package faults

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/iproute"
	"github.com/emunet/faultbed/pkg/iptables"
	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/spec"
	"github.com/emunet/faultbed/pkg/tc"
)

// Link fault kinds.
const (
	LinkDelay     = "delay"
	LinkLoss      = "loss"
	LinkCorrupt   = "corrupt"
	LinkDuplicate = "duplicate"
	LinkReorder   = "reorder"
	LinkDown      = "down"
	LinkRedirect  = "redirect"
	LinkDrop      = "drop"
)

// Default impairment values for the netem kinds, used when the fault
// carries no kind arguments.
var netemDefaults = map[string]string{
	LinkDelay:     "100ms",
	LinkLoss:      "100%",
	LinkCorrupt:   "100%",
	LinkDuplicate: "100%",
	LinkReorder:   "100%",
}

// LinkInjector is a fault unit that impairs one interface of a link. The
// shaping commands run inside the network namespace of the process owning
// the interface.
type LinkInjector struct {
	target      spec.Target
	kind        string
	kindArgs    []string
	pattern     string
	patternArgs []string
	filter      spec.TrafficFilter
	window      spec.Window
	tag         string

	control *tc.TrafficControl
	ipt     *iptables.Iptables
	ipr     iproute.IPRoute
	log     logrus.FieldLogger
}

// NewLinkInjector builds the link fault unit described by f.
func NewLinkInjector(f spec.Fault, executor runtime.Executor, log logrus.FieldLogger) (*LinkInjector, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	switch f.Kind {
	case LinkDelay, LinkLoss, LinkCorrupt, LinkDuplicate, LinkReorder, LinkDown, LinkDrop:
	case LinkRedirect:
		if len(f.KindArgs) == 0 || f.KindArgs[0] == "" {
			return nil, fmt.Errorf("redirect fault %q needs a target interface argument", f.Tag)
		}
	default:
		return nil, fmt.Errorf("%w: link fault %q", ErrUnknownKind, f.Kind)
	}

	nsExec := executor
	if f.Target.Resolved() {
		nsExec = runtime.Namespaced(executor, *f.Target.PID)
	}

	return &LinkInjector{
		target:      f.Target,
		kind:        f.Kind,
		kindArgs:    f.KindArgs,
		pattern:     f.Pattern,
		patternArgs: f.PatternArgs,
		filter:      f.Filter,
		window:      f.Window,
		tag:         f.Tag,
		control:     tc.New(nsExec, f.Target.Iface),
		ipt:         iptables.New(nsExec),
		ipr:         iproute.New(nsExec),
		log:         log.WithField("tag", f.Tag),
	}, nil
}

// Tag returns the unit's tag.
func (l *LinkInjector) Tag() string {
	return l.tag
}

// Inject runs the unit's injection window to completion. A fault whose
// target was never resolved is rejected instead of silently doing nothing.
func (l *LinkInjector) Inject(ctx context.Context) error {
	if !l.target.Resolved() {
		return fmt.Errorf("%w: %q", ErrUnresolvedTarget, l.target.Ref)
	}

	l.log.Debugf("injecting %s fault on %s", l.kind, l.target.Iface)
	apply, clear := l.actions()

	return runWindow(ctx, l.window, l.pattern, l.patternArgs, apply, clear)
}

// actions returns the pair of operations that introduce and remove the
// fault, chosen by kind.
func (l *LinkInjector) actions() (apply, clear func() error) {
	switch l.kind {
	case LinkDown:
		return func() error { return l.ipr.SetLinkDown(l.target.Iface) },
			func() error { return l.ipr.SetLinkUp(l.target.Iface) }

	case LinkRedirect:
		return func() error { return l.control.Redirect(l.kindArgs[0]) },
			l.control.Clear

	case LinkDrop:
		rule := iptables.Rule{
			Table: "filter",
			Chain: "INPUT",
			Args:  dropRuleArgs(l.filter),
		}
		return func() error { return l.ipt.Add(rule) },
			l.ipt.Remove

	default:
		value := netemDefaults[l.kind]
		if len(l.kindArgs) > 0 {
			value = strings.Join(l.kindArgs, " ")
		}
		impairment := l.kind + " " + value
		return func() error { return l.control.Netem(impairment, l.filter) },
			l.control.Clear
	}
}

// dropRuleArgs builds the matching part of the iptables DROP rule from the
// traffic filter. Ports can only be matched for TCP and UDP.
func dropRuleArgs(f spec.TrafficFilter) string {
	args := []string{}
	switch f.Protocol {
	case "", spec.ProtocolAny, spec.ProtocolIP:
	default:
		args = append(args, "-p", strings.ToLower(string(f.Protocol)))
	}

	if f.Protocol == spec.ProtocolTCP || f.Protocol == spec.ProtocolUDP {
		if f.SrcPort != 0 {
			args = append(args, "--sport", strconv.Itoa(int(f.SrcPort)))
		}
		if f.DstPort != 0 {
			args = append(args, "--dport", strconv.Itoa(int(f.DstPort)))
		}
	}

	args = append(args, "-j", "DROP")

	return strings.Join(args, " ")
}
