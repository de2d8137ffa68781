package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func newPlanCmd() *cobra.Command {
	var show string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a reconciliation plan from the current findings",
		Long:  "Audits the registry and turns the findings into an ordered, persisted plan of corrective actions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, show)
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "Show a stored plan instead of building a new one (plan id, or 'latest')")

	return cmd
}

func runPlan(cmd *cobra.Command, show string) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		var plan *entities.Plan
		var err error
		switch show {
		case "":
			plan, err = d.Plan.Handle(ctx)
		case "latest":
			plan, err = d.Plan.HandleGet(ctx, "")
		default:
			plan, err = d.Plan.HandleGet(ctx, show)
		}
		if err != nil {
			return fmt.Errorf("building plan: %w", err)
		}

		displayPlan(plan)
		return nil
	})
}

func displayPlan(plan *entities.Plan) {
	fmt.Printf("Plan %s (created %s)\n", plan.ID, plan.CreatedAt.Format("2006-01-02 15:04:05"))
	if plan.RulesPath != "" {
		fmt.Printf("Rules: %s\n", plan.RulesPath)
	}
	fmt.Println()

	if len(plan.Actions) == 0 {
		fmt.Println("Nothing to do.")
	} else {
		fmt.Printf("%d actions:\n\n", len(plan.Actions))
		for i, act := range plan.Actions {
			displayAction(i+1, act)
		}
	}

	if len(plan.Unresolved) > 0 {
		fmt.Printf("%d targets could not be resolved:\n", len(plan.Unresolved))
		for _, u := range plan.Unresolved {
			fmt.Printf("  %s %s: %s\n", u.TargetKind, u.TargetID, u.Reason)
		}
		fmt.Println()
	}
	if plan.IgnoredCount > 0 {
		fmt.Printf("%d actions suppressed by the ignore list.\n", plan.IgnoredCount)
	}
}

func displayAction(n int, act entities.Action) {
	gate := ""
	if act.RequiresApproval {
		gate = " (requires approval)"
	}
	fmt.Printf("%3d. [%.2f] %s %s%s\n", n, act.Confidence, act.Type, act.TargetID, gate)
	fmt.Printf("     %s\n", act.Reason)
	keys := make([]string, 0, len(act.After))
	for k := range act.After {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := act.After[k]
		if v == "" {
			v = "<cleared>"
		}
		fmt.Printf("     %s -> %s\n", k, v)
	}
	fmt.Printf("     id: %s  fingerprint: %s\n", act.ID, act.Fingerprint())
	fmt.Println()
}
