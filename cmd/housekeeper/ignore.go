package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pvandijk/housekeeper/internal/application/handlers"
	"github.com/pvandijk/housekeeper/internal/infrastructure/sessionstore/sqlite"
)

func newIgnoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage the action ignore list",
		Long:  "Fingerprints on the ignore list never reach a plan again, across sessions.",
	}

	cmd.AddCommand(
		newIgnoreAddCmd(),
		newIgnoreRemoveCmd(),
		newIgnoreListCmd(),
		newIgnoreClearCmd(),
	)

	return cmd
}

// withIgnoreHandler opens the store and hands an ignore handler to fn.
func withIgnoreHandler(cmd *cobra.Command, fn func(*handlers.IgnoreHandler) error) error {
	return withStore(cmd.Context(), func(store *sqlite.Store) error {
		return fn(handlers.NewIgnoreHandler(store))
	})
}

func newIgnoreAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <fingerprint>...",
		Short: "Add fingerprints to the ignore list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIgnoreHandler(cmd, func(h *handlers.IgnoreHandler) error {
				if err := h.HandleAdd(cmd.Context(), args); err != nil {
					return fmt.Errorf("adding fingerprints: %w", err)
				}
				fmt.Printf("Ignoring %d fingerprints.\n", len(args))
				return nil
			})
		},
	}
}

func newIgnoreRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <fingerprint>...",
		Short: "Remove fingerprints from the ignore list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIgnoreHandler(cmd, func(h *handlers.IgnoreHandler) error {
				if err := h.HandleRemove(cmd.Context(), args); err != nil {
					return fmt.Errorf("removing fingerprints: %w", err)
				}
				fmt.Printf("Removed %d fingerprints.\n", len(args))
				return nil
			})
		},
	}
}

func newIgnoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ignored fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIgnoreHandler(cmd, func(h *handlers.IgnoreHandler) error {
				fingerprints, err := h.HandleList(cmd.Context())
				if err != nil {
					return fmt.Errorf("listing fingerprints: %w", err)
				}
				if len(fingerprints) == 0 {
					fmt.Println("The ignore list is empty.")
					return nil
				}
				for _, fp := range fingerprints {
					fmt.Println(fp)
				}
				return nil
			})
		},
	}
}

func newIgnoreClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the ignore list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIgnoreHandler(cmd, func(h *handlers.IgnoreHandler) error {
				if err := h.HandleClear(cmd.Context()); err != nil {
					return fmt.Errorf("clearing ignore list: %w", err)
				}
				fmt.Println("Ignore list cleared.")
				return nil
			})
		},
	}
}
