package injector

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/control"
	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/spec"
)

// channelPair wires a controller side and an agent side channel together
// with in-process pipes.
func channelPair(t *testing.T) (controller, agent *control.Channel) {
	t.Helper()

	toAgentR, toAgentW := io.Pipe()
	toControllerR, toControllerW := io.Pipe()

	controller = control.NewChannel(toControllerR, toAgentW)
	agent = control.NewChannel(toAgentR, toControllerW)

	t.Cleanup(func() {
		_ = controller.Close()
		_ = agent.Close()
	})

	return controller, agent
}

func resolvedTarget(pid int, iface string) spec.Target {
	return spec.Target{PID: &pid, Iface: iface, Ref: iface}
}

func Test_InjectorHandshake(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	controller, agent := channelPair(t)

	injector := New(&spec.Config{}, agent, runtime.NewFakeExecutor(nil, nil), logrus.StandardLogger())

	if err := injector.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	msg, err := controller.Recv(ctx)
	if err != nil {
		t.Fatalf("receiving readiness: %v", err)
	}
	if msg != control.MessageReady {
		t.Fatalf("expected %q got %q", control.MessageReady, msg)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- injector.Run(ctx)
	}()

	if err := controller.Send(control.MessageGo); err != nil {
		t.Fatalf("sending start signal: %v", err)
	}

	msg, err = controller.Recv(ctx)
	if err != nil {
		t.Fatalf("receiving completion: %v", err)
	}
	if msg != control.MessageDone {
		t.Fatalf("expected %q got %q", control.MessageDone, msg)
	}

	if err := <-runDone; err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func Test_InjectorRunsFaultUnits(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	controller, agent := channelPair(t)
	executor := runtime.NewFakeExecutor(nil, nil)

	cfg := &spec.Config{
		Faults: []spec.Fault{
			{
				Class:  spec.ClassLink,
				Kind:   "delay",
				Target: resolvedTarget(42, "h1-eth0"),
				Window: spec.Window{Injection: 10 * time.Millisecond},
				Tag:    "delay@h1",
			},
		},
	}

	injector := New(cfg, agent, executor, logrus.StandardLogger())

	if err := injector.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := controller.Recv(ctx); err != nil {
		t.Fatalf("receiving readiness: %v", err)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- injector.Run(ctx)
	}()

	if err := controller.Send(control.MessageGo); err != nil {
		t.Fatalf("sending start signal: %v", err)
	}
	if _, err := controller.Recv(ctx); err != nil {
		t.Fatalf("receiving completion: %v", err)
	}
	if err := <-runDone; err != nil {
		t.Fatalf("run failed: %v", err)
	}

	history := executor.CmdHistory()
	if len(history) != 2 {
		t.Fatalf("expected an apply and a clear command, got %v", history)
	}
	if !strings.Contains(history[0], "netem delay") {
		t.Fatalf("expected a netem delay command, got %q", history[0])
	}
}

func Test_InjectorReportsSetupError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	controller, agent := channelPair(t)

	cfg := &spec.Config{
		Faults: []spec.Fault{
			{
				Class:  spec.ClassLink,
				Kind:   "teleport",
				Target: resolvedTarget(42, "h1-eth0"),
				Tag:    "teleport@h1",
			},
		},
	}

	injector := New(cfg, agent, runtime.NewFakeExecutor(nil, nil), logrus.StandardLogger())

	if err := injector.Setup(); err == nil {
		t.Fatalf("expected setup to fail")
	}

	msg, err := controller.Recv(ctx)
	if err != nil {
		t.Fatalf("receiving setup report: %v", err)
	}
	if msg != control.MessageSetupError {
		t.Fatalf("expected %q got %q", control.MessageSetupError, msg)
	}
}

func Test_InjectorRejectsUnexpectedStartSignal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	controller, agent := channelPair(t)

	injector := New(&spec.Config{}, agent, runtime.NewFakeExecutor(nil, nil), logrus.StandardLogger())

	if err := injector.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := controller.Recv(ctx); err != nil {
		t.Fatalf("receiving readiness: %v", err)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- injector.Run(ctx)
	}()

	if err := controller.Send(control.MessageWriteLogs); err != nil {
		t.Fatalf("sending message: %v", err)
	}

	if err := <-runDone; err == nil {
		t.Fatalf("expected run to reject the unexpected message")
	}
}

func Test_InjectorFlushesLogsOnCommand(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	controller, agent := channelPair(t)
	executor := runtime.NewFakeExecutor([]byte("output"), nil)

	path := filepath.Join(t.TempDir(), "faults.log")
	cfg := &spec.Config{
		Log: &spec.Log{
			Path: path,
			Commands: []spec.LogCommand{
				{Tag: "uptime", Command: "uptime"},
			},
		},
	}

	injector := New(cfg, agent, executor, logrus.StandardLogger())

	if err := injector.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if _, err := controller.Recv(ctx); err != nil {
		t.Fatalf("receiving readiness: %v", err)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- injector.Run(ctx)
	}()

	if err := controller.Send(control.MessageGo); err != nil {
		t.Fatalf("sending start signal: %v", err)
	}

	msg, err := controller.Recv(ctx)
	if err != nil {
		t.Fatalf("receiving completion: %v", err)
	}
	if msg != control.MessageDone {
		t.Fatalf("expected %q got %q", control.MessageDone, msg)
	}

	if err := controller.Send(control.MessageWriteLogs); err != nil {
		t.Fatalf("sending log flush signal: %v", err)
	}

	if err := <-runDone; err != nil {
		t.Fatalf("run failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading fault log: %v", err)
	}
	if !strings.Contains(string(content), "[uptime] output") {
		t.Fatalf("unexpected fault log content %q", string(content))
	}
}
