// Package topology describes the emulated network faults are injected into.
//
// The orchestrator only needs two views of the network: the set of hosts
// (each backed by an OS process) and the set of links between them. The
// emulator providing the network implements Topology; Static is a frozen
// snapshot that is also convenient for tests.
package topology

// Host is a process-backed node of the emulated network.
type Host struct {
	// Name of the node as written in fault configurations.
	Name string
	// PID of the process (group) that owns the node's namespaces.
	PID int
}

// Endpoint is one side of a link: the node plus the interface attached to it.
type Endpoint struct {
	Node  Host
	Iface string
}

// Link connects two endpoints of the emulated network.
type Link struct {
	A Endpoint
	B Endpoint
}

// Topology exposes the parts of the emulated network needed to resolve
// fault targets. Implementations must be safe for read-only concurrent use.
type Topology interface {
	Hosts() []Host
	Links() []Link
}

// Static is an immutable in-memory Topology.
type Static struct {
	hosts []Host
	links []Link
}

// NewStatic returns a Topology backed by the given hosts and links.
func NewStatic(hosts []Host, links []Link) *Static {
	return &Static{
		hosts: hosts,
		links: links,
	}
}

// Hosts returns the hosts of the topology.
func (s *Static) Hosts() []Host {
	return s.hosts
}

// Links returns the links of the topology.
func (s *Static) Links() []Link {
	return s.links
}
