package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ratazzi/hola/convergence"
)

// newValidateCmd parses and validates a recipe without applying it, for a
// CI step that should catch a bad recipe before it ever touches a host.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <recipe.yaml>",
		Short: "check a recipe for validation errors without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := loadRecords(args[0])
			if err != nil {
				return err
			}
			if err := convergence.Preflight(records); err != nil {
				return err
			}
			fmt.Printf("%d resource(s) OK\n", len(records))
			return nil
		},
	}
	return cmd
}
