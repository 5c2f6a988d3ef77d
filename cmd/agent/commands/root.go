package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emunet/faultbed/internal/version"
	"github.com/emunet/faultbed/pkg/runtime"
	"github.com/emunet/faultbed/pkg/runtime/profiler"
)

// BuildRootCmd builds the root command for the agent with all the persistent
// flags. It holds the process lock while a subcommand runs and
// initializes/terminates the profiling if requested.
func BuildRootCmd(env runtime.Environment) *cobra.Command {
	profilerConfig := profiler.Config{}
	var probes io.Closer

	rootCmd := &cobra.Command{
		Use:   "faultbed-agent",
		Short: "Inject faults in an emulated network",
		Long: "A command for injecting faults in an emulated network testbed.\n" +
			"It is spawned by the fault controller and driven over a pair of pipes.",
		Version: version.Version(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := env.Process().Lock()
			if err != nil {
				return err
			}

			probes, err = env.Profiler().Start(profilerConfig)
			if err != nil {
				return fmt.Errorf("could not create profiler %w", err)
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer func() {
				_ = env.Process().Unlock()
			}()

			err := probes.Close()
			if err != nil {
				return fmt.Errorf("could not stop profiler %w", err)
			}

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&profilerConfig.CPU.Enabled, "cpu-profile", false, "profile agent execution")
	rootCmd.PersistentFlags().StringVar(&profilerConfig.CPU.FileName, "cpu-profile-file", "cpu.pprof",
		"cpu profiling output file")
	rootCmd.PersistentFlags().BoolVar(&profilerConfig.Memory.Enabled, "mem-profile", false, "profile agent memory")
	rootCmd.PersistentFlags().StringVar(&profilerConfig.Memory.FileName, "mem-profile-file", "mem.pprof",
		"memory profiling output file")
	rootCmd.PersistentFlags().IntVar(&profilerConfig.Memory.Rate, "mem-profile-rate", 1, "memory profiling rate")
	rootCmd.PersistentFlags().BoolVar(&profilerConfig.Trace.Enabled, "trace", false, "trace agent execution")
	rootCmd.PersistentFlags().StringVar(&profilerConfig.Trace.FileName, "trace-file", "trace.out", "tracing output file")

	return rootCmd
}
