// Package main is the entry point for the swarm CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "swarm",
		Short:        "Swarm: run several AI coding agents side by side in a loop",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("no-tui", false, "plain log output instead of the TUI")

	root.AddCommand(
		runCmd(),
		initCmd(),
		providersCmd(),
		historyCmd(),
	)

	return root
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
