// Package main implements the root level command for the faultbed agent CLI
package main

import (
	"os"

	"github.com/emunet/faultbed/cmd/agent/commands"
	"github.com/emunet/faultbed/pkg/runtime"
)

func main() {
	env := runtime.DefaultEnvironment()

	rootCmd := commands.BuildRootCmd(env)
	rootCmd.AddCommand(commands.BuildRunCmd(env))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
