// Package resolve translates human-written topology references into
// process-agnostic fault targets.
//
// References come in three shapes: a bare node name ("h1"), an implicit
// link ("h1->s1"), or a link with an explicit interface ("h1->s1:eth0").
// Resolution failures are not fatal: the returned target keeps the original
// reference but carries no process handle, and a warning is logged.
package resolve

import (
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/spec"
	"github.com/emunet/faultbed/pkg/topology"
)

var (
	implicitLinkRegex = regexp.MustCompile(`^(\w+)->(\w+)$`)
	explicitLinkRegex = regexp.MustCompile(`^(\w+)->(\w+):([\w.-]+)$`)
)

// IsLinkRef reports whether ref is written in arrow notation.
func IsLinkRef(ref string) bool {
	return implicitLinkRegex.MatchString(ref) || explicitLinkRegex.MatchString(ref)
}

// Resolver resolves reference strings against a topology.
type Resolver struct {
	log logrus.FieldLogger
}

// New returns a Resolver that reports resolution problems to the given
// logger. A nil logger defaults to the standard logrus logger.
func New(log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{log: log}
}

// Resolve translates ref into a transfer-safe target. For a bare name it
// returns the named host's process handle and no interface. For a link
// reference it returns the handle and interface of the endpoint on the
// source side of the arrow. If nothing matches, the returned target is
// unresolved and a warning is logged.
func (r *Resolver) Resolve(topo topology.Topology, ref string) spec.Target {
	if !IsLinkRef(ref) {
		return r.resolveHost(topo, ref)
	}

	ep, ok := r.linkEndpoint(topo, ref)
	if !ok {
		return spec.Target{Ref: ref}
	}
	pid := ep.Node.PID
	return spec.Target{PID: &pid, Iface: ep.Iface, Ref: ref}
}

// InterfaceName resolves a link reference down to the bare interface name
// on the source side. Used for fault arguments that name an interface in
// arrow notation, such as the redirect target.
func (r *Resolver) InterfaceName(topo topology.Topology, ref string) (string, bool) {
	ep, ok := r.linkEndpoint(topo, ref)
	if !ok {
		return "", false
	}
	return ep.Iface, true
}

func (r *Resolver) resolveHost(topo topology.Topology, name string) spec.Target {
	for _, h := range topo.Hosts() {
		if h.Name == name {
			pid := h.PID
			return spec.Target{PID: &pid, Ref: name}
		}
	}
	r.log.Warnf("no host named %q in the topology, are all names correct?", name)
	return spec.Target{Ref: name}
}

// linkEndpoint scans the topology's links for one connecting the two nodes
// named in ref and returns the endpoint on the source side of the arrow.
// Without an explicit interface the first structurally matching link wins.
// With one, scanning continues until an endpoint's interface matches it
// exactly; a structural match with the wrong interface is discarded.
func (r *Resolver) linkEndpoint(topo topology.Topology, ref string) (topology.Endpoint, bool) {
	var src, dst, explicit string
	if m := explicitLinkRegex.FindStringSubmatch(ref); m != nil {
		src, dst, explicit = m[1], m[2], m[3]
	} else if m := implicitLinkRegex.FindStringSubmatch(ref); m != nil {
		src, dst = m[1], m[2]
	} else {
		return topology.Endpoint{}, false
	}

	for _, link := range topo.Links() {
		var ep topology.Endpoint
		switch {
		case link.A.Node.Name == src && link.B.Node.Name == dst:
			ep = link.A
		case link.B.Node.Name == src && link.A.Node.Name == dst:
			ep = link.B
		default:
			continue
		}

		if explicit == "" || ep.Iface == explicit {
			return ep, true
		}
	}

	if explicit != "" {
		r.log.Warnf("no interface %q on a link between %q and %q, are all names correct?", explicit, src, dst)
	} else {
		r.log.Warnf("no link between %q and %q, are both names correct?", src, dst)
	}
	return topology.Endpoint{}, false
}
