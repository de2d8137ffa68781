// Package main provides the entry point for the housekeeper CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version          = "0.1.0-dev"
	globalConfigPath string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "housekeeper",
		Short:   "Audit and reconcile the Home Assistant registries",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalConfigPath, "config", "c", "config.yaml", "Path to the config file")

	rootCmd.AddCommand(
		newAuditCmd(),
		newPlanCmd(),
		newApplyCmd(),
		newRollbackCmd(),
		newBatchesCmd(),
		newIgnoreCmd(),
		newServeCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
