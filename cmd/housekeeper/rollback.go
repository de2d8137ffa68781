package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func newRollbackCmd() *cobra.Command {
	var batchID string

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back an applied batch",
		Long:  "Reverses the applied actions of a batch in reverse order, using the undo entries recorded at apply time.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollback(cmd, batchID)
		},
	}

	cmd.Flags().StringVarP(&batchID, "batch", "b", "", "Batch id to roll back (defaults to the most recent batch)")

	return cmd
}

func runRollback(cmd *cobra.Command, batchID string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		result, err := d.Rollback.Handle(ctx, batchID)
		if err != nil {
			return fmt.Errorf("rolling back: %w", err)
		}

		displayRollback(result)
		return nil
	})
}

func displayRollback(result *entities.RollbackResult) {
	fmt.Printf("Rollback of batch %s\n\n", result.BatchID)

	for _, e := range result.Entries {
		switch e.Status {
		case entities.RollbackReverted:
			fmt.Printf("  reverted %s (action %s)\n", e.Type, e.ActionID)
		case entities.RollbackPartial:
			fmt.Printf("  partial  %s (action %s): %s\n", e.Type, e.ActionID, e.Note)
		case entities.RollbackFailed:
			fmt.Printf("  FAILED   %s (action %s): %s\n", e.Type, e.ActionID, e.Err)
		}
	}

	if result.Clean() {
		fmt.Println("\nAll actions fully reverted.")
	} else {
		fmt.Println("\nSome actions could not be fully reverted; see notes above.")
	}
}
