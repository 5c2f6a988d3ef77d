// Package injector implements the agent side of the orchestrator: it
// receives the resolved fault configuration, materializes the fault units
// and the logger, and drives them through the control protocol. The whole
// conversation with the controller is: send ready (or setup-error), wait
// for go, run every fault unit concurrently to completion, send done, and
// finally wait for write-logs before tearing the logger down.
package injector

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/emunet/faultbed/pkg/control"
	"github.com/emunet/faultbed/pkg/faultlog"
	"github.com/emunet/faultbed/pkg/faults"
	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/spec"
)

// Injector runs fault units on command from the controller.
type Injector struct {
	cfg      *spec.Config
	channel  *control.Channel
	executor runtime.Executor
	log      logrus.FieldLogger

	faults []faults.Fault
	logger *faultlog.Logger
}

// New returns an Injector for the given configuration, communicating over
// the given control channel. A nil logger defaults to the standard logrus
// logger.
func New(cfg *spec.Config, channel *control.Channel, executor runtime.Executor, log logrus.FieldLogger) *Injector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Injector{
		cfg:      cfg,
		channel:  channel,
		executor: executor,
		log:      log,
	}
}

// Setup materializes all fault units and the logger, then reports
// readiness on the control channel. A failure is reported to the
// controller as setup-error before returning.
func (i *Injector) Setup() error {
	for _, f := range i.cfg.Faults {
		unit, err := faults.FromSpec(f, i.executor, i.log)
		if err != nil {
			_ = i.channel.Send(control.MessageSetupError)
			return fmt.Errorf("building fault unit %q: %w", f.Tag, err)
		}
		i.faults = append(i.faults, unit)
	}

	if i.cfg.Log != nil {
		commands := make([]faultlog.Command, 0, len(i.cfg.Log.Commands))
		for _, c := range i.cfg.Log.Commands {
			commands = append(commands, faultlog.Command{
				Tag:     c.Tag,
				HostPID: c.HostPID,
				Command: c.Command,
			})
		}
		i.logger = faultlog.New(i.cfg.Log.Interval, i.cfg.Log.Path, commands, i.executor, i.log)
	}

	i.log.Debugf("injector ready with %d fault units", len(i.faults))

	return i.channel.Send(control.MessageReady)
}

// Run blocks until the start signal arrives, runs every fault unit
// concurrently to completion, and announces completion. One unit's failure
// does not cancel the others; its error surfaces in Run's return value
// once all units have finished. Completion is always announced before the
// logger is torn down, so the controller's status query does not depend on
// log flush timing.
func (i *Injector) Run(ctx context.Context) error {
	msg, err := i.channel.Recv(ctx)
	if err != nil {
		return fmt.Errorf("waiting for start signal: %w", err)
	}
	if msg != control.MessageGo {
		return fmt.Errorf("unexpected message %q while waiting for start signal", msg)
	}

	i.log.Debug("starting fault injection")

	var units errgroup.Group
	for _, unit := range i.faults {
		unit := unit
		units.Go(func() error {
			if err := unit.Inject(ctx); err != nil {
				i.log.WithField("tag", unit.Tag()).Warnf("fault unit failed: %v", err)
				return err
			}
			return nil
		})
	}

	var loggerDone, listenerDone chan error
	if i.logger != nil {
		loggerDone = make(chan error, 1)
		go func() {
			loggerDone <- i.logger.Run(ctx)
		}()

		listenerDone = make(chan error, 1)
		go func() {
			listenerDone <- i.listenForLogWrite(ctx)
		}()
	}

	injectErr := units.Wait()

	if err := i.channel.Send(control.MessageDone); err != nil {
		return err
	}

	if i.logger != nil {
		i.logger.Stop()
		if err := <-loggerDone; err != nil && !isCancellation(err) {
			i.log.Warnf("fault logger failed: %v", err)
		}
		if err := <-listenerDone; err != nil {
			return err
		}
	}

	return injectErr
}

// listenForLogWrite waits for the controller's final log flush signal.
func (i *Injector) listenForLogWrite(ctx context.Context) error {
	msg, err := i.channel.Recv(ctx)
	if err != nil {
		return fmt.Errorf("waiting for log flush signal: %w", err)
	}
	if msg != control.MessageWriteLogs {
		i.log.Errorf("unexpected message %q while waiting for log flush signal", msg)
		return nil
	}

	i.logger.Stop()

	return nil
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
