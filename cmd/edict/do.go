package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edictlabs/edict/pkg/models"
)

var (
	doProject string
	doPrefs   []string
)

var doCmd = &cobra.Command{
	Use:   "do <text>",
	Short: "Route free-text input and execute the winning directive",
	Long: `Route the input through the intent router and execute the top
candidate. If no candidate clears its confidence threshold the command
prints the ranked candidates and asks for clarification instead of
guessing.

Examples:
  edict do create a task for the auth bug --project demo`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDo,
}

func init() {
	doCmd.Flags().StringVar(&doProject, "project", "default", "Project to run against")
	doCmd.Flags().StringArrayVar(&doPrefs, "pref", nil, "Preference override key=value (repeatable)")
}

func runDo(cmd *cobra.Command, args []string) error {
	eng, _, err := setup()
	if err != nil {
		return err
	}

	prefs, err := parsePrefs(doPrefs)
	if err != nil {
		return err
	}

	result, decision, _ := eng.ExecuteText(cmd.Context(), doProject, strings.Join(args, " "), prefs)
	if result.Outcome == models.OutcomeNeedsClarification {
		color.Yellow("needs clarification: %s", decision.Reason)
		for i, c := range decision.Candidates {
			fmt.Printf("%2d. %-30s %.3f\n", i+1, c.Directive.Name, c.Score)
		}
		return nil
	}
	return printResult(result)
}
