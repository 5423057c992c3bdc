package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ratazzi/hola/convergence"
	"github.com/ratazzi/hola/internal/config"
	"github.com/ratazzi/hola/internal/recipefile"
	"github.com/ratazzi/hola/resource"
	"github.com/ratazzi/hola/script"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <recipe.yaml>",
		Short: "converge the host to the state declared in the given recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			return runApply(args[0], configPath)
		},
	}
	return cmd
}

func runApply(recipePath, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	records, err := loadRecords(recipePath)
	if err != nil {
		return err
	}

	e := newEngine(cfg)
	sched := convergence.New(cfg.Shell, e.env.Logger, e.env.Interpreter, e.set, e.env)

	// Run aborts at the first unignored apply failure, so outcomes only
	// ever covers the prefix of the recipe that was actually attempted.
	outcomes, runErr := sched.Run(context.Background(), records)
	for _, o := range outcomes {
		status := "unchanged"
		switch {
		case o.Err != nil:
			status = "failed: " + o.Err.Error()
		case o.WasUpdated:
			status = "updated"
		case o.SkipReason != "":
			status = "skipped (" + o.SkipReason + ")"
		}
		fmt.Printf("%-12s %-10s %-8s %s\n", o.Kind, o.Name, o.Action, status)
	}
	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	return nil
}

func loadRecords(recipePath string) ([]*resource.Record, error) {
	doc, err := recipefile.Load(recipePath)
	if err != nil {
		return nil, err
	}
	return doc.ToRecords(resolveAWSKMSSource)
}

func resolveAWSKMSSource(uri, action string) ([]byte, error) {
	if uri == "" {
		return nil, nil
	}
	parsed, err := script.ParseSourceURI(uri, script.DefaultSourceEncoding(action))
	if err != nil {
		return nil, err
	}
	return parsed.Data, nil
}
