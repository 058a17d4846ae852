//go:build linux || darwin

// Command signaltest reports every catchable signal it receives and exits on
// SIGINT, so a monitor's signal trigger can be observed.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	procfixture "github.com/axondata/go-procfixture"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "signaltest",
		Short:         "Print each caught signal; exit on SIGINT",
		Version:       procfixture.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := procfixture.Logger()
			fmt.Fprintf(cmd.OutOrStdout(), "pid %d\n", os.Getpid())
			return procfixture.CatchSignals(context.Background(), cmd.OutOrStdout(), os.Exit, log)
		},
	}
}
