package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/application/handlers"
	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func newApplyCmd() *cobra.Command {
	var (
		planID     string
		approved   []string
		approveAll bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a stored plan to the live registry",
		Long:  "Executes a plan action by action, skipping anything stale or unapproved, and records an undo entry per applied action.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, handlers.ApplyOptions{
				PlanID:      planID,
				ApprovedIDs: approved,
				ApproveAll:  approveAll,
			})
		},
	}

	cmd.Flags().StringVarP(&planID, "plan", "p", "", "Plan id to apply (defaults to the most recent plan)")
	cmd.Flags().StringSliceVarP(&approved, "action", "a", nil, "Gated action id to approve (repeatable)")
	cmd.Flags().BoolVar(&approveAll, "approve-all", false, "Approve every gated action in the plan")

	return cmd
}

func runApply(cmd *cobra.Command, opts handlers.ApplyOptions) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		batch, err := d.Apply.Handle(ctx, opts)
		if err != nil {
			return fmt.Errorf("applying plan: %w", err)
		}

		displayBatch(batch)
		return nil
	})
}

func displayBatch(batch *entities.AppliedBatch) {
	fmt.Printf("Batch %s (plan %s)\n\n", batch.ID, batch.PlanID)

	for _, r := range batch.Results {
		switch r.Status {
		case entities.StatusApplied:
			fmt.Printf("  applied  %s %s\n", r.Action.Type, r.Action.TargetID)
			if r.Detail != "" {
				fmt.Printf("           %s\n", r.Detail)
			}
		case entities.StatusSkipped:
			fmt.Printf("  skipped  %s %s (%s)\n", r.Action.Type, r.Action.TargetID, r.Reason)
		case entities.StatusFailed:
			fmt.Printf("  FAILED   %s %s: %s\n", r.Action.Type, r.Action.TargetID, r.Err)
		}
	}

	applied, skipped, failed := batch.Counts()
	fmt.Printf("\n%d applied, %d skipped, %d failed\n", applied, skipped, failed)
	if applied > 0 {
		fmt.Printf("Roll back with: housekeeper rollback --batch %s\n", batch.ID)
	}
}
