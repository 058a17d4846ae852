// Command testwebapi serves the fault routes a process monitor is tested
// against.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
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
	var (
		configPath string
		addr       string
		exitCode   int
		shutdown   time.Duration
	)

	cmd := &cobra.Command{
		Use:           "testwebapi",
		Short:         "Serve HTTP routes that raise errors, churn memory, spawn threads or exit",
		Version:       procfixture.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := procfixture.Logger()

			cfg, err := procfixture.LoadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("exit-code") {
				cfg.ExitCode = exitCode
			}
			if flags.Changed("shutdown-timeout") {
				cfg.ShutdownTimeout = shutdown
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Str("addr", cfg.Addr).Int("pid", os.Getpid()).Msg("starting fault service")
			return procfixture.NewServer(cfg, log).Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&addr, "addr", procfixture.DefaultAddr, "listen address")
	flags.IntVar(&exitCode, "exit-code", procfixture.DefaultExitCode, "exit code of the terminate route")
	flags.DurationVar(&shutdown, "shutdown-timeout", procfixture.DefaultShutdownTimeout, "graceful shutdown timeout")
	return cmd
}
