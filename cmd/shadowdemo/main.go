// Package main provides shadowdemo, which renders a shadow pass of a lit cube
// grid every frame on either graphics backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shadowdemo",
		Short: "Render a shadow map of an orbiting sun over a cube grid",
		Long: `shadowdemo renders a depth pass from a light orbiting a grid of cubes.

Settings are read from flags, OXY_SHADOW_* environment variables and an
optional .oxy-shadow.yaml, in that order of precedence.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	registerFlags(cmd.Flags())
	return cmd
}
