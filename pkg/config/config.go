// Package config loads the declarative fault configuration file and builds
// from it the process-agnostic configuration handed to the agent.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from either a duration
// string ("10s") or a bare number of seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var seconds float64
	if err := node.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds * float64(time.Second)))
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)

	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// File is the structural form of a fault configuration file.
type File struct {
	Faults []FaultEntry `yaml:"faults"`
	Log    *LogSection  `yaml:"log,omitempty"`
}

// FaultEntry is a single-key variant object: the key is "link_fault" or
// "node_fault" and the value describes the fault. It is kept as a map so
// unknown variant keys can be reported instead of silently dropped.
type FaultEntry map[string]FaultBody

// FaultBody holds the inner fields of a fault entry.
type FaultBody struct {
	Identifiers       []string `yaml:"identifiers"`
	Type              string   `yaml:"type"`
	Tag               string   `yaml:"tag,omitempty"`
	TypeArgs          []string `yaml:"type_args,omitempty"`
	Pattern           string   `yaml:"pattern,omitempty"`
	PatternArgs       []string `yaml:"pattern_args,omitempty"`
	PreInjectionTime  Duration `yaml:"pre_injection_time,omitempty"`
	InjectionTime     Duration `yaml:"injection_time,omitempty"`
	PostInjectionTime Duration `yaml:"post_injection_time,omitempty"`
	TargetTraffic     *Traffic `yaml:"target_traffic,omitempty"`
}

// Traffic scopes a link fault to a protocol and optional ports.
type Traffic struct {
	Protocol string `yaml:"protocol,omitempty"`
	SrcPort  uint   `yaml:"src_port,omitempty"`
	DstPort  uint   `yaml:"dst_port,omitempty"`
}

// LogSection configures the fault logger.
type LogSection struct {
	Interval Duration          `yaml:"interval,omitempty"`
	Path     string            `yaml:"path,omitempty"`
	Commands []LogCommandEntry `yaml:"commands,omitempty"`
}

// LogCommandEntry is one diagnostic command of the log section.
type LogCommandEntry struct {
	Tag     string `yaml:"tag,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Command string `yaml:"command"`
}

// Load reads and parses the configuration file at the given path.
func Load(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("path to fault configuration file is missing")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fault configuration: %w", err)
	}

	file := &File{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("parsing fault configuration %q: %w", path, err)
	}

	return file, nil
}
