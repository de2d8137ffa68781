package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/infrastructure/sessionstore/sqlite"
)

func newBatchesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List applied batches",
		Long:  "Lists previously applied batches, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatches(cmd, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of batches to display")

	return cmd
}

func runBatches(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()

	return withStore(ctx, func(store *sqlite.Store) error {
		batches, err := store.ListBatches(ctx, limit)
		if err != nil {
			return fmt.Errorf("listing batches: %w", err)
		}

		if len(batches) == 0 {
			fmt.Println("No batches found.")
			return nil
		}

		for _, b := range batches {
			applied, skipped, failed := b.Counts()
			fmt.Printf("%s  %s  plan %s  %d applied, %d skipped, %d failed\n",
				b.StartedAt.Format("2006-01-02 15:04:05"), b.ID, b.PlanID, applied, skipped, failed)
		}
		return nil
	})
}
