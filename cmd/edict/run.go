package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edictlabs/edict/internal/catalog"
	"github.com/edictlabs/edict/pkg/models"
)

var (
	runProject string
	runPrefs   []string
)

var runCmd = &cobra.Command{
	Use:   "run <directive>",
	Short: "Execute a directive as a top-level invocation",
	Long: `Execute the named directive against a project. All writes buffer into
one transaction that commits only when the workflow succeeds; an
escalated or failed run leaves the project state untouched.

Examples:
  edict run create-task --project demo
  edict run create-task --project demo --pref priority=high`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runProject, "project", "default", "Project to run against")
	runCmd.Flags().StringArrayVar(&runPrefs, "pref", nil, "Preference override key=value (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	eng, cfg, err := setup()
	if err != nil {
		return err
	}

	prefs, err := parsePrefs(runPrefs)
	if err != nil {
		return err
	}

	// A suspended run can outlive a catalog edit; surface that the loaded
	// directives will not change until restart.
	if w, err := catalog.Watch(cfg.Paths.CatalogDir, func(msg string) {
		color.Yellow("%s", msg)
	}); err == nil {
		defer w.Close()
	}

	result, _ := eng.Execute(cmd.Context(), runProject, args[0], prefs)
	return printResult(result)
}

// printResult renders an execution result, returning the error for fatal
// outcomes so the process exits nonzero.
func printResult(result *models.ExecutionResult) error {
	switch result.Outcome {
	case models.OutcomeSuccess:
		color.Green("directive %s succeeded (%d mutations committed)", result.Directive, len(result.Mutations))
		for k, v := range result.Payload {
			fmt.Printf("  %s = %s\n", k, v)
		}
	case models.OutcomeEscalated:
		color.Yellow("directive %s escalated: %s", result.Directive, result.Escalation.Reason)
		if kf := result.Escalation.KnownFailure; kf != nil {
			fmt.Printf("  known failure: %s\n  resolution: %s\n", kf.Issue, kf.Resolution)
			if kf.EscalateTo != "" {
				fmt.Printf("  escalate to: %s\n", kf.EscalateTo)
			}
		}
	default:
		color.Red("directive %s failed: %v", result.Directive, result.Err)
		return result.Err
	}

	for _, next := range result.NextActions {
		fmt.Printf("  next: %s\n", next)
	}
	return nil
}

// parsePrefs splits repeated key=value flags into a preference map.
func parsePrefs(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	prefs := make(map[string]string, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid preference %q, want key=value", kv)
		}
		prefs[k] = v
	}
	return prefs, nil
}
