// Command testapp holds a process in a state a monitor can trigger on:
// idle, busy, many open files, many threads or a large locked heap.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	procfixture "github.com/axondata/go-procfixture"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func modeNames() []string {
	modes := procfixture.Modes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return names
}

func newRootCmd() *cobra.Command {
	opts := procfixture.DefaultWorkloadOptions()

	cmd := &cobra.Command{
		Use:           fmt.Sprintf("testapp <%s>", strings.Join(modeNames(), "|")),
		Short:         "Hold the process in a workload mode until interrupted",
		Version:       procfixture.Version,
		Args:          cobra.ExactArgs(1),
		ValidArgs:     modeNames(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := procfixture.ParseMode(args[0])
			if err != nil {
				return err
			}

			log := procfixture.Logger()
			opts.Logger = log.With().Str("mode", string(mode)).Logger()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Int("pid", os.Getpid()).Msg("starting workload")
			return procfixture.RunWorkload(ctx, mode, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.FileCount, "files", opts.FileCount, "handles opened in fc mode")
	flags.IntVar(&opts.ThreadCount, "threads", opts.ThreadCount, "threads parked in tc mode")
	flags.DurationVar(&opts.MemDelay, "mem-delay", opts.MemDelay, "pause before mem mode allocates")
	flags.IntVar(&opts.MemRounds, "mem-rounds", opts.MemRounds, "allocation rounds in mem mode")
	flags.IntVar(&opts.MemSize, "mem-size", opts.MemSize, "base allocation size in mem mode")
	flags.StringVar(&opts.File, "file", "", "file opened in fc mode (default: this executable)")
	return cmd
}
