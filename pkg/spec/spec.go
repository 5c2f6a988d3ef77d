// Package spec defines the process-agnostic fault configuration that the
// controller hands to the agent process. Everything in a Config must be
// usable without access to the topology the controller resolved it against:
// targets are identified only by a process id and an interface name.
package spec

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Target identifies where a fault is injected, in a form that crosses the
// process boundary. An unresolved reference keeps its original string but
// carries no PID.
type Target struct {
	// PID of the process (group) owning the target's namespaces.
	// Nil when the reference could not be resolved.
	PID *int `json:"pid,omitempty"`
	// Iface is the interface the fault applies to. Empty for node targets.
	Iface string `json:"iface,omitempty"`
	// Ref is the reference string as written in the configuration,
	// kept for diagnostics.
	Ref string `json:"ref"`
}

// Resolved reports whether the target carries a usable process handle.
func (t Target) Resolved() bool {
	return t.PID != nil
}

// Protocol restricts a link fault to one IP protocol.
type Protocol string

// Protocols accepted in a traffic filter.
const (
	ProtocolAny      Protocol = "any"
	ProtocolICMP     Protocol = "ICMP"
	ProtocolIGMP     Protocol = "IGMP"
	ProtocolIP       Protocol = "IP"
	ProtocolTCP      Protocol = "TCP"
	ProtocolUDP      Protocol = "UDP"
	ProtocolIPv6     Protocol = "IPv6"
	ProtocolIPv6ICMP Protocol = "IPv6-ICMP"
)

// ParseProtocol maps a configuration string to a known Protocol.
// The second return value is false for unknown strings.
func ParseProtocol(s string) (Protocol, bool) {
	switch Protocol(s) {
	case ProtocolAny, ProtocolICMP, ProtocolIGMP, ProtocolIP,
		ProtocolTCP, ProtocolUDP, ProtocolIPv6, ProtocolIPv6ICMP:
		return Protocol(s), true
	}
	return ProtocolAny, false
}

// TrafficFilter scopes a link fault to a protocol and optional ports.
// The zero value means "all traffic".
type TrafficFilter struct {
	Protocol Protocol `json:"protocol,omitempty"`
	SrcPort  uint     `json:"src_port,omitempty"`
	DstPort  uint     `json:"dst_port,omitempty"`
}

// Window holds the three time phases a fault unit executes in order.
// A zero duration skips the phase.
type Window struct {
	Pre       time.Duration `json:"pre,omitempty"`
	Injection time.Duration `json:"injection,omitempty"`
	Post      time.Duration `json:"post,omitempty"`
}

// Class distinguishes link faults from node faults.
type Class string

// Fault classes.
const (
	ClassLink Class = "link"
	ClassNode Class = "node"
)

// Fault is one fully resolved fault unit. A configuration entry naming N
// identifiers expands into N Faults, each with its own Target and a tag
// suffixed with the original reference so units sharing a logical fault
// stay distinguishable in logs.
type Fault struct {
	Class       Class         `json:"class"`
	Kind        string        `json:"kind"`
	Target      Target        `json:"target"`
	Filter      TrafficFilter `json:"filter,omitempty"`
	Pattern     string        `json:"pattern,omitempty"`
	PatternArgs []string      `json:"pattern_args,omitempty"`
	KindArgs    []string      `json:"kind_args,omitempty"`
	Window      Window        `json:"window"`
	Tag         string        `json:"tag"`
}

// LogCommand is one tagged diagnostic command run by the fault logger.
type LogCommand struct {
	Tag string `json:"tag"`
	// HostPID is the process whose namespaces the command runs in.
	// Nil runs the command in the agent's own namespaces.
	HostPID *int   `json:"host_pid,omitempty"`
	Command string `json:"command"`
}

// Log configures the fault logger. A zero Interval runs the commands once.
type Log struct {
	Interval time.Duration `json:"interval,omitempty"`
	Path     string        `json:"path,omitempty"`
	Commands []LogCommand  `json:"commands"`
}

// Config is the snapshot handed to the agent process. It is built once by
// the controller and never mutated after transfer.
type Config struct {
	Faults []Fault `json:"faults"`
	Log    *Log    `json:"log,omitempty"`
}

// Encode writes the config as JSON.
func (c *Config) Encode(w io.Writer) error {
	if err := json.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encoding fault config: %w", err)
	}
	return nil
}

// Decode reads a config encoded with Encode.
func Decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding fault config: %w", err)
	}
	return cfg, nil
}

// NewTag returns a fresh unique tag for entries that did not set one.
func NewTag() string {
	return uuid.NewString()
}
