package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emunet/faultbed/pkg/control"
	"github.com/emunet/faultbed/pkg/injector"
	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/spec"
)

// Control stream descriptors inherited from the controller: commands are
// read from 3, reports are written to 4.
const (
	commandsFd = 3
	reportsFd  = 4
)

// BuildRunCmd builds the run command, which reads the fault configuration
// and executes it, driven by the controller over the control streams.
func BuildRunCmd(env runtime.Environment) *cobra.Command {
	var configPath string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured fault injection",
		Long: "Reads the fault configuration from the standard input (or a file)\n" +
			"and executes it: reports readiness, waits for the start signal, runs\n" +
			"every fault to completion and flushes the fault log on command.",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			log := logrus.StandardLogger()
			log.SetLevel(level)

			var input io.Reader = cmd.InOrStdin()
			if configPath != "" {
				file, err := os.Open(configPath)
				if err != nil {
					return fmt.Errorf("opening fault configuration: %w", err)
				}
				defer func() {
					_ = file.Close()
				}()
				input = file
			}

			cfg, err := spec.Decode(input)
			if err != nil {
				return fmt.Errorf("decoding fault configuration: %w", err)
			}

			channel := control.NewChannel(
				os.NewFile(commandsFd, "commands"),
				os.NewFile(reportsFd, "reports"),
			)
			defer func() {
				_ = channel.Close()
			}()

			inj := injector.New(cfg, channel, env.Executor(), log)
			if err := inj.Setup(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			signals := env.Signals().Notify(syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
			defer env.Signals().Reset()

			runDone := make(chan error, 1)
			go func() {
				runDone <- inj.Run(ctx)
			}()

			select {
			case err := <-runDone:
				return err
			case s := <-signals:
				cancel()
				<-runDone
				return fmt.Errorf("received signal %q", s)
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the fault configuration (default: standard input)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}
