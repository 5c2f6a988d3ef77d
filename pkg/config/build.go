package config

import (
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/faults"
	"github.com/emunet/faultbed/pkg/resolve"
	"github.com/emunet/faultbed/pkg/spec"
	"github.com/emunet/faultbed/pkg/topology"
)

var (
	linkFaultRegex = regexp.MustCompile(`^link_fault:(\w+)$`)
	nodeFaultRegex = regexp.MustCompile(`^node_fault:(\w+)$`)
)

// Builder converts a configuration file into the process-agnostic form,
// resolving every topology reference on the way. Building never fails:
// entries with problems are dropped with a logged warning and unknown
// protocols degrade to matching any traffic.
type Builder struct {
	resolver *resolve.Resolver
	log      logrus.FieldLogger
}

// NewBuilder returns a Builder reporting degradations to the given logger.
// A nil logger defaults to the standard logrus logger.
func NewBuilder(log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{
		resolver: resolve.New(log),
		log:      log,
	}
}

// Build resolves the file against the topology. The topology is only read,
// never modified, and the returned config holds no reference into it.
func (b *Builder) Build(topo topology.Topology, file *File) *spec.Config {
	cfg := &spec.Config{Faults: []spec.Fault{}}

	for _, entry := range file.Faults {
		// one variant key per entry
		for variant, body := range entry {
			if variant != "link_fault" && variant != "node_fault" {
				b.log.Warnf("unknown fault variant %q, skipping entry", variant)
				continue
			}
			cfg.Faults = append(cfg.Faults, b.buildFaults(topo, body)...)
		}
	}

	if file.Log != nil {
		cfg.Log = b.buildLog(topo, file.Log)
	}

	return cfg
}

// buildFaults expands one fault entry into one Fault per identifier.
func (b *Builder) buildFaults(topo topology.Topology, body FaultBody) []spec.Fault {
	if body.Type == "" {
		b.log.Warn("fault entry has no type, skipping")
		return nil
	}

	var class spec.Class
	var kind string
	if m := linkFaultRegex.FindStringSubmatch(body.Type); m != nil {
		class, kind = spec.ClassLink, m[1]
	} else if m := nodeFaultRegex.FindStringSubmatch(body.Type); m != nil {
		class, kind = spec.ClassNode, m[1]
	} else {
		b.log.Warnf("unknown fault type %q, skipping entry", body.Type)
		return nil
	}

	tag := body.Tag
	if tag == "" {
		tag = spec.NewTag()
	}

	pattern := body.Pattern
	if pattern == "" {
		pattern = faults.PatternPersistent
	}

	var filter spec.TrafficFilter
	if class == spec.ClassLink {
		filter = b.buildFilter(body.TargetTraffic)
	}

	kindArgs := body.TypeArgs
	if class == spec.ClassLink && kind == faults.LinkRedirect {
		kindArgs = b.resolveRedirectArgs(topo, kindArgs)
	}

	window := spec.Window{
		Pre:       body.PreInjectionTime.Std(),
		Injection: body.InjectionTime.Std(),
		Post:      body.PostInjectionTime.Std(),
	}

	built := []spec.Fault{}
	for _, ref := range body.Identifiers {
		fault := spec.Fault{
			Class:       class,
			Kind:        kind,
			Target:      b.resolver.Resolve(topo, ref),
			Pattern:     pattern,
			PatternArgs: body.PatternArgs,
			KindArgs:    kindArgs,
			Window:      window,
			Tag:         tag + "@" + ref,
		}
		if class == spec.ClassLink {
			fault.Filter = filter
		}
		built = append(built, fault)
	}

	return built
}

// buildFilter extracts the traffic filter, coercing unknown protocols to
// "any" instead of failing.
func (b *Builder) buildFilter(traffic *Traffic) spec.TrafficFilter {
	if traffic == nil {
		return spec.TrafficFilter{Protocol: spec.ProtocolAny}
	}

	protoString := traffic.Protocol
	if protoString == "" {
		protoString = string(spec.ProtocolAny)
	}
	protocol, known := spec.ParseProtocol(protoString)
	if !known {
		b.log.Errorf("fault target protocol %q is unknown, targeting any traffic instead", traffic.Protocol)
	}

	return spec.TrafficFilter{
		Protocol: protocol,
		SrcPort:  traffic.SrcPort,
		DstPort:  traffic.DstPort,
	}
}

// resolveRedirectArgs rewrites a redirect target written in link reference
// syntax into the bare interface name, so the agent does not need the
// topology to interpret it.
func (b *Builder) resolveRedirectArgs(topo topology.Topology, args []string) []string {
	if len(args) == 0 || !resolve.IsLinkRef(args[0]) {
		return args
	}

	iface, ok := b.resolver.InterfaceName(topo, args[0])
	if !ok {
		// the resolver already warned, keep the reference for diagnostics
		return args
	}

	rewritten := make([]string, len(args))
	copy(rewritten, args)
	rewritten[0] = iface

	return rewritten
}

func (b *Builder) buildLog(topo topology.Topology, section *LogSection) *spec.Log {
	log := &spec.Log{
		Interval: section.Interval.Std(),
		Path:     section.Path,
		Commands: []spec.LogCommand{},
	}

	for _, entry := range section.Commands {
		tag := entry.Tag
		if tag == "" {
			tag = spec.NewTag()
		}

		command := spec.LogCommand{
			Tag:     tag,
			Command: entry.Command,
		}
		if entry.Host != "" {
			if target := b.resolver.Resolve(topo, entry.Host); target.Resolved() {
				command.HostPID = target.PID
			}
		}

		log.Commands = append(log.Commands, command)
	}

	return log
}
