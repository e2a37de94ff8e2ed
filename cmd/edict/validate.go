package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/edictlabs/edict/internal/catalog"
	"github.com/edictlabs/edict/internal/config"
	"github.com/edictlabs/edict/internal/engine"
)

var validateCmd = &cobra.Command{
	Use:   "validate [catalog-dir]",
	Short: "Validate the directive catalog",
	Long: `Load the directive catalog and report structural errors and branch
ordering warnings. A structural error (missing trunk or fallback, branch
referencing an undefined action) fails the whole load; ordering warnings
are advisory.

The directory argument is optional and defaults to the configured
catalog directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := cfg.Paths.CatalogDir
	if len(args) > 0 {
		dir = args[0]
	}

	reg := engine.NewRegistry()
	engine.RegisterBuiltins(reg)

	cat, err := catalog.Load(dir, reg)
	if err != nil {
		color.Red("catalog invalid: %v", err)
		return err
	}

	color.Green("catalog ok: %d directives loaded from %s", cat.Len(), dir)
	for _, w := range cat.Warnings() {
		color.Yellow("warning: %s", w)
	}
	return nil
}
