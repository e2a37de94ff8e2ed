package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route <text>",
	Short: "Rank directives against free-text input",
	Long: `Route free-text input through the intent router and print the ranked
directive candidates with their scores. A needs-clarification outcome is
printed as such; it is a first-class result, not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRoute,
}

func runRoute(cmd *cobra.Command, args []string) error {
	eng, _, err := setup()
	if err != nil {
		return err
	}

	decision := eng.Route(strings.Join(args, " "))
	if decision.NeedsClarification {
		color.Yellow("needs clarification: %s", decision.Reason)
	}
	for i, c := range decision.Candidates {
		fmt.Printf("%2d. %-30s %.3f (%s)\n", i+1, c.Directive.Name, c.Score, c.Directive.Kind)
	}
	return nil
}
