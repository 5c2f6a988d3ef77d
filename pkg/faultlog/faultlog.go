// Package faultlog implements the fault logger: a unit that runs tagged
// diagnostic commands while faults are injected and flushes their collected
// output when told to. With an interval the commands run periodically,
// without one they run exactly once.
package faultlog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emunet/faultbed/pkg/runtime"
)

// Command is one tagged diagnostic command. A non-nil HostPID runs the
// command inside that process's network namespace.
type Command struct {
	Tag     string
	HostPID *int
	Command string
}

// Logger collects the output of diagnostic commands. It buffers one
// timestamped, tagged line per command execution and writes the buffer out
// when stopped.
type Logger struct {
	interval time.Duration
	path     string
	commands []Command
	executor runtime.Executor
	log      logrus.FieldLogger

	stop     chan struct{}
	stopOnce sync.Once

	mu    sync.Mutex
	lines []string
}

// New returns a Logger running the given commands through the executor.
// A zero interval runs the commands once. An empty path sends the
// collected lines to the logger instead of a file.
func New(
	interval time.Duration,
	path string,
	commands []Command,
	executor runtime.Executor,
	log logrus.FieldLogger,
) *Logger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Logger{
		interval: interval,
		path:     path,
		commands: commands,
		executor: executor,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Run collects command output until Stop is called or the context ends,
// then flushes the collected lines. It always runs the commands at least
// once.
func (l *Logger) Run(ctx context.Context) error {
	l.collect()

	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.collect()
			case <-l.stop:
				return l.flush()
			case <-ctx.Done():
				_ = l.flush()
				return ctx.Err()
			}
		}
	}

	select {
	case <-l.stop:
		return l.flush()
	case <-ctx.Done():
		_ = l.flush()
		return ctx.Err()
	}
}

// Stop ends the collection. It is safe to call multiple times and from a
// different goroutine than Run's.
func (l *Logger) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

func (l *Logger) collect() {
	for _, c := range l.commands {
		executor := l.executor
		if c.HostPID != nil {
			executor = runtime.Namespaced(executor, *c.HostPID)
		}

		out, err := executor.Exec("sh", "-c", c.Command)
		line := fmt.Sprintf("%s [%s] %s", time.Now().Format(time.RFC3339), c.Tag, strings.TrimSpace(string(out)))
		if err != nil {
			line = fmt.Sprintf("%s (error: %v)", line, err)
		}

		l.mu.Lock()
		l.lines = append(l.lines, line)
		l.mu.Unlock()
	}
}

// flush writes the collected lines to the configured file, or to the log
// sink when no path is configured.
func (l *Logger) flush() error {
	l.mu.Lock()
	lines := make([]string, len(l.lines))
	copy(lines, l.lines)
	l.mu.Unlock()

	if l.path == "" {
		for _, line := range lines {
			l.log.Info(line)
		}
		return nil
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(l.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing fault log to %q: %w", l.path, err)
	}

	return nil
}
