package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edictlabs/edict/internal/resolve"
	"github.com/edictlabs/edict/pkg/models"
)

var (
	mergeProject string
	mergeTarget  string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <cases-file>",
	Short: "Reconcile divergent mutation sets for a merge",
	Long: `Resolve the conflict cases in the given YAML file. Each case holds the
two sides' mutation sets and quality vectors; resolution weights and the
auto-resolution threshold come from configuration.

If every case auto-resolves, the winning mutation sets commit in one
transaction. If any case escalates, nothing is written: both sides and
their scores are printed for a human to decide.`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeProject, "project", "default", "Project to apply resolutions to")
	mergeCmd.Flags().StringVar(&mergeTarget, "target", "main", "Merge target; merges into one target are exclusive")
}

func runMerge(cmd *cobra.Command, args []string) error {
	eng, cfg, err := setup()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read cases file: %w", err)
	}
	var cases []models.ConflictCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return fmt.Errorf("parse cases file: %w", err)
	}

	resolver := resolve.New(cfg.Resolver.Weights, cfg.Resolver.Threshold)
	merger := resolve.NewMerger(eng.Coordinator(), resolver, nil)

	result, err := merger.Merge(mergeProject, mergeTarget, cases)
	if err != nil {
		return err
	}

	for _, res := range result.Resolutions {
		if res.Auto() {
			color.Green("auto-resolved toward %s", res.Winner)
		} else {
			color.Yellow("escalated")
		}
		fmt.Printf("  %s\n", res.Rationale)
	}

	if result.Applied {
		color.Green("merge applied: %d cases committed", len(result.Resolutions))
	} else if result.Escalated > 0 {
		color.Yellow("merge not applied: %d of %d cases need a human decision", result.Escalated, len(result.Resolutions))
	}
	return nil
}
