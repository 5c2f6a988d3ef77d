// Package tc shapes the traffic of an interface by executing the `tc`
// binary. It covers the subset of traffic control the link fault kinds
// need: netem impairments, optionally scoped to a protocol and ports by a
// u32 filter, and egress redirection to another interface. Wrap the
// executor with runtime.Namespaced to shape an interface inside an emulated
// node's network namespace.
package tc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/spec"
)

// IP protocol numbers used in u32 filter matches.
var protocolNumbers = map[spec.Protocol]string{
	spec.ProtocolICMP:     "1",
	spec.ProtocolIGMP:     "2",
	spec.ProtocolTCP:      "6",
	spec.ProtocolUDP:      "17",
	spec.ProtocolIPv6:     "41",
	spec.ProtocolIPv6ICMP: "58",
}

// TrafficControl applies tc configurations to one network device.
// All applied configuration hangs from the device's root qdisc, so a
// single Clear restores the device.
type TrafficControl struct {
	executor runtime.Executor
	dev      string
	applied  bool
}

// New returns a TrafficControl for the given device.
func New(executor runtime.Executor, dev string) *TrafficControl {
	return &TrafficControl{
		executor: executor,
		dev:      dev,
	}
}

// Netem attaches a netem qdisc with the given impairment specification,
// for example "delay 100ms" or "loss 100%". A scoped filter installs a
// prio qdisc and hangs the netem from one of its bands so only matching
// traffic is impaired; an unscoped filter impairs the whole device.
func (t *TrafficControl) Netem(impairment string, filter spec.TrafficFilter) error {
	if !scoped(filter) {
		err := t.exec("qdisc add dev " + t.dev + " root handle 1: netem " + impairment)
		if err != nil {
			return err
		}
		t.applied = true
		return nil
	}

	steps := []string{
		"qdisc add dev " + t.dev + " root handle 1: prio",
		"qdisc add dev " + t.dev + " parent 1:3 handle 30: netem " + impairment,
		"filter add dev " + t.dev + " parent 1:0 protocol ip prio 3 u32 " +
			strings.Join(filterMatches(filter), " ") + " flowid 1:3",
	}
	for _, step := range steps {
		if err := t.exec(step); err != nil {
			// leave a half built configuration removable
			t.applied = true
			return err
		}
	}
	t.applied = true

	return nil
}

// Redirect mirrors all egress traffic of the device to the target
// interface.
func (t *TrafficControl) Redirect(target string) error {
	steps := []string{
		"qdisc add dev " + t.dev + " root handle 1: prio",
		"filter add dev " + t.dev + " parent 1:0 protocol all prio 1 u32 match u32 0 0 " +
			"action mirred egress redirect dev " + target,
	}
	for _, step := range steps {
		if err := t.exec(step); err != nil {
			t.applied = true
			return err
		}
	}
	t.applied = true

	return nil
}

// Clear removes the configuration applied to the device. It is a no-op
// when nothing was applied.
func (t *TrafficControl) Clear() error {
	if !t.applied {
		return nil
	}

	if err := t.exec("qdisc del dev " + t.dev + " root"); err != nil {
		return err
	}
	t.applied = false

	return nil
}

func (t *TrafficControl) exec(args string) error {
	out, err := t.executor.Exec("tc", strings.Split(args, " ")...)
	if err != nil {
		return fmt.Errorf("%w: %q", err, out)
	}

	return nil
}

// scoped reports whether the filter restricts traffic at all. The "IP"
// protocol matches any IP traffic and therefore only scopes when combined
// with a port.
func scoped(f spec.TrafficFilter) bool {
	if f.SrcPort != 0 || f.DstPort != 0 {
		return true
	}
	switch f.Protocol {
	case "", spec.ProtocolAny, spec.ProtocolIP:
		return false
	}
	return true
}

// filterMatches builds the u32 match terms for the filter.
func filterMatches(f spec.TrafficFilter) []string {
	matches := []string{}
	if num, ok := protocolNumbers[f.Protocol]; ok {
		matches = append(matches, "match", "ip", "protocol", num, "0xff")
	}
	if f.SrcPort != 0 {
		matches = append(matches, "match", "ip", "sport", strconv.Itoa(int(f.SrcPort)), "0xffff")
	}
	if f.DstPort != 0 {
		matches = append(matches, "match", "ip", "dport", strconv.Itoa(int(f.DstPort)), "0xffff")
	}
	if len(matches) == 0 {
		matches = []string{"match", "u32", "0", "0"}
	}

	return matches
}
