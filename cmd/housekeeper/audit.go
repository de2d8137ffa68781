package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/application/handlers"
	"github.com/pvandijk/housekeeper/internal/domain/entities"
)

func newAuditCmd() *cobra.Command {
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit the registries without changing anything",
		Long:  "Takes a registry snapshot, evaluates all rules, and reports the scored findings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, showErrors)
		},
	}

	cmd.Flags().BoolVar(&showErrors, "show-rule-errors", false, "Include findings about broken rule definitions")

	return cmd
}

func runAudit(cmd *cobra.Command, showErrors bool) error {
	ctx := cmd.Context()

	return withDeps(ctx, func(d *Deps) error {
		report, err := d.Audit.Handle(ctx)
		if err != nil {
			return fmt.Errorf("running audit: %w", err)
		}

		displayAuditReport(report, showErrors)
		return nil
	})
}

func displayAuditReport(report *handlers.AuditReport, showErrors bool) {
	fmt.Printf("Snapshot taken at %s\n", report.TakenAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Registry: %d areas, %d devices, %d entities\n\n", report.AreaCount, report.DeviceCount, report.EntityCount)

	if len(report.DevicesWithoutArea) > 0 {
		fmt.Printf("%d devices without an area:\n", len(report.DevicesWithoutArea))
		for _, d := range report.DevicesWithoutArea {
			if d.Name != "" {
				fmt.Printf("  %s (%s)\n", d.DeviceID, d.Name)
			} else {
				fmt.Printf("  %s\n", d.DeviceID)
			}
		}
		fmt.Println()
	}
	if len(report.EntitiesWithoutArea) > 0 {
		fmt.Printf("%d entities without an effective area:\n", len(report.EntitiesWithoutArea))
		for _, e := range report.EntitiesWithoutArea {
			fmt.Printf("  %s\n", e.EntityID)
		}
		fmt.Println()
	}
	if len(report.Helpers) > 0 {
		fmt.Printf("%d helpers:\n", len(report.Helpers))
		for _, e := range report.Helpers {
			if e.AreaID != "" {
				fmt.Printf("  %s -> %s\n", e.EntityID, e.AreaID)
			} else {
				fmt.Printf("  %s (no area)\n", e.EntityID)
			}
		}
		fmt.Println()
	}

	if len(report.Findings) == 0 {
		fmt.Println("No findings. The registry is clean.")
		return
	}

	fmt.Printf("Found %d issues:\n\n", len(report.Findings))
	for _, f := range report.Findings {
		displayFinding(f)
	}

	categories := make([]string, 0, len(report.ByCategory))
	for c := range report.ByCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	fmt.Println("By category:")
	for _, c := range categories {
		fmt.Printf("  %-24s %d\n", c, report.ByCategory[entities.RuleCategory(c)])
	}

	if showErrors && len(report.RuleErrors) > 0 {
		fmt.Printf("\n%d rule definitions could not be evaluated:\n", len(report.RuleErrors))
		for _, f := range report.RuleErrors {
			fmt.Printf("  %s\n", f.Problem)
		}
	}
}

func displayFinding(f handlers.ScoredFinding) {
	fmt.Printf("[%.2f] %s %s\n", f.Confidence, f.TargetKind, f.TargetID)
	fmt.Printf("  %s: %s\n", f.Category, f.Problem)
	fmt.Println()
}
