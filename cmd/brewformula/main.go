// Command brewformula renders, checks and installs package formulae
// described by a YAML descriptor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	procfixture "github.com/axondata/go-procfixture"
	"github.com/axondata/go-procfixture/formula"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "brewformula",
		Short:         "Render, verify and install package formulae",
		Version:       procfixture.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRenderCmd(),
		newChecksumCmd(),
		newVerifyCmd(),
		newInstallCmd(),
	)
	return root
}

func newRenderCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render <descriptor.yaml>",
		Short: "Write the Ruby formula for a descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := formula.Load(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				return d.Render(cmd.OutOrStdout())
			}
			path, err := d.WriteFile(output)
			if err != nil {
				return err
			}
			log := procfixture.Logger()
			log.Info().Str("path", path).Str("formula", d.Name).Msg("formula written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file or directory to write (default: stdout)")
	return cmd
}

func newChecksumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checksum <file>...",
		Short: "Print the sha256 of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			merr := &procfixture.MultiError{}
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					merr.Add(err)
					continue
				}
				sum, err := formula.Sum(f)
				_ = f.Close()
				if err != nil {
					merr.Add(fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, path)
			}
			return merr.Err()
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <descriptor.yaml>",
		Short: "Fetch the archive of a descriptor and check its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := formula.Load(args[0])
			if err != nil {
				return err
			}
			data, err := d.FetchVerified(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d bytes, sha256 %s)\n", d.Name, len(data), d.SHA256)
			return nil
		},
	}
}

func newInstallCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "install <descriptor.yaml>",
		Short: "Install the binaries and man pages of a descriptor under a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := formula.Load(args[0])
			if err != nil {
				return err
			}
			res, err := formula.Install(cmd.Context(), d, prefix)
			if err != nil {
				return err
			}
			log := procfixture.Logger()
			for _, path := range append(res.Binaries, res.ManPages...) {
				log.Info().Str("formula", d.Name).Str("path", path).Msg("installed")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "/usr/local", "installation prefix")
	return cmd
}
