package controller

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/emunet/faultbed/pkg/control"
	"github.com/emunet/faultbed/pkg/spec"
)

// ExecSpawner runs the agent as a child process. The resolved
// configuration is passed on the agent's stdin and the control streams are
// inherited as file descriptors 3 (commands to the agent) and 4 (reports
// from the agent).
type ExecSpawner struct {
	// Path is the agent binary. Defaults to "faultbed-agent" resolved
	// through PATH.
	Path string
	// Args are extra arguments appended to the run command.
	Args []string
}

type execAgent struct {
	cmd     *exec.Cmd
	channel *control.Channel
}

func (a *execAgent) Control() *control.Channel {
	return a.channel
}

func (a *execAgent) Wait() error {
	return a.cmd.Wait()
}

// Spawn starts the agent process and hands it the configuration. The
// returned handle is valid even before the agent reports readiness.
func (s *ExecSpawner) Spawn(ctx context.Context, cfg *spec.Config) (Agent, error) {
	path := s.Path
	if path == "" {
		path = "faultbed-agent"
	}

	encoded := &bytes.Buffer{}
	if err := cfg.Encode(encoded); err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}

	commandsR, commandsW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating command pipe: %w", err)
	}
	reportsR, reportsW, err := os.Pipe()
	if err != nil {
		commandsR.Close()
		commandsW.Close()
		return nil, fmt.Errorf("creating report pipe: %w", err)
	}

	// not CommandContext: the agent outlives the start context and is
	// shut down through the control protocol instead
	args := append([]string{"run"}, s.Args...)
	cmd := exec.Command(path, args...)
	cmd.Stdin = encoded
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// fd 3 and 4 in the child
	cmd.ExtraFiles = []*os.File{commandsR, reportsW}

	if err := cmd.Start(); err != nil {
		commandsR.Close()
		commandsW.Close()
		reportsR.Close()
		reportsW.Close()
		return nil, fmt.Errorf("starting agent %q: %w", path, err)
	}

	// the child holds its own copies
	commandsR.Close()
	reportsW.Close()

	return &execAgent{
		cmd:     cmd,
		channel: control.NewChannel(reportsR, commandsW),
	}, nil
}
