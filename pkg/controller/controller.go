// Package controller implements the controller side of the orchestrator:
// the component embedded in the testbed runner that loads a fault
// configuration file, resolves it against the topology, spawns the agent
// process and drives it through the control protocol.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/config"
	"github.com/emunet/faultbed/pkg/control"
	"github.com/emunet/faultbed/pkg/spec"
	"github.com/emunet/faultbed/pkg/topology"
)

var (
	// ErrAgentSetup is returned by Start when the agent reported a
	// failure while building its fault units.
	ErrAgentSetup = errors.New("agent failed to initialize")
	// ErrUnexpectedMessage is returned when the agent answers with a
	// message the protocol does not allow at that point.
	ErrUnexpectedMessage = errors.New("unexpected message from agent")
	// ErrNotStarted is returned by operations that need a running agent.
	ErrNotStarted = errors.New("controller was not started")
)

// Agent is a handle on a spawned agent process.
type Agent interface {
	// Control returns the controller side of the agent's control channel.
	Control() *control.Channel
	// Wait blocks until the agent process exits.
	Wait() error
}

// Spawner starts agent processes. It exists as an interface so tests can
// run the agent in-process.
type Spawner interface {
	Spawn(ctx context.Context, cfg *spec.Config) (Agent, error)
}

// Controller drives fault injection for one testbed run. It is safe for
// concurrent use.
type Controller struct {
	topo       topology.Topology
	configPath string
	spawner    Spawner
	log        logrus.FieldLogger

	mu            sync.Mutex
	agent         Agent
	cfg           *spec.Config
	started       bool
	active        bool
	logConfigured bool
}

// New returns a Controller injecting the faults described by the file at
// configPath into the given topology. A nil logger defaults to the
// standard logrus logger.
func New(topo topology.Topology, configPath string, spawner Spawner, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		topo:       topo,
		configPath: configPath,
		spawner:    spawner,
		log:        log,
	}
}

// Config returns the resolved fault configuration. It is nil before Start.
func (c *Controller) Config() *spec.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Start loads and resolves the configuration, spawns the agent and blocks
// until it reports readiness. Faults are not injected until
// TriggerInjection is called.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.New("controller already started")
	}

	file, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading fault configuration: %w", err)
	}

	cfg := config.NewBuilder(c.log).Build(c.topo, file)

	agent, err := c.spawner.Spawn(ctx, cfg)
	if err != nil {
		return fmt.Errorf("spawning agent: %w", err)
	}

	msg, err := agent.Control().Recv(ctx)
	if err != nil {
		return fmt.Errorf("waiting for agent readiness: %w", err)
	}

	switch msg {
	case control.MessageReady:
	case control.MessageSetupError:
		return ErrAgentSetup
	default:
		return fmt.Errorf("%w: %q while waiting for readiness", ErrUnexpectedMessage, msg)
	}

	c.agent = agent
	c.cfg = cfg
	c.started = true
	c.logConfigured = cfg.Log != nil

	c.log.Debugf("agent ready with %d faults", len(cfg.Faults))

	return nil
}

// TriggerInjection commands the agent to begin injecting. It returns
// immediately; progress is observed through IsInjectionActive.
func (c *Controller) TriggerInjection() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}

	if err := c.agent.Control().Send(control.MessageGo); err != nil {
		return fmt.Errorf("sending start signal: %w", err)
	}
	c.active = true

	return nil
}

// IsInjectionActive reports whether triggered faults are still running.
// It polls the control channel without blocking, so the answer may lag
// the agent by one call.
func (c *Controller) IsInjectionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || !c.active {
		return false
	}

	msg, ok, err := c.agent.Control().TryRecv()
	if err != nil {
		c.log.Errorf("agent control channel closed while injection was active: %v", err)
		c.active = false
		return false
	}
	if !ok {
		return true
	}

	if msg != control.MessageDone {
		c.log.Errorf("unexpected message %q while injection was active", msg)
		return true
	}

	c.active = false
	return false
}

// Close tells the agent to flush its logs and waits for it to exit. The
// controller cannot be reused afterwards.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	c.started = false

	if c.logConfigured {
		if err := c.agent.Control().Send(control.MessageWriteLogs); err != nil {
			return fmt.Errorf("sending log flush signal: %w", err)
		}
	}

	if err := c.agent.Wait(); err != nil {
		return fmt.Errorf("waiting for agent exit: %w", err)
	}

	return nil
}
