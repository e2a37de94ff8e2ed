package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edictlabs/edict/internal/catalog"
	"github.com/edictlabs/edict/internal/config"
	"github.com/edictlabs/edict/internal/engine"
	"github.com/edictlabs/edict/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "edict",
	Short: "Policy-driven directive orchestration engine",
	Long: `Edict routes free-text instructions to declarative directives,
interprets their workflow graphs, and coordinates the resulting state
writes atomically.

Core capabilities:
- Routes input to ranked directive candidates by weighted keywords
- Interprets trunk/branch/fallback workflow graphs with nested calls
- Buffers all writes in one transaction per top-level invocation
- Reconciles divergent mutation sets during merges by quality signals`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(doCmd)
	rootCmd.AddCommand(mergeCmd)
}

// setup loads configuration, the catalog and the state store, and wires
// the engine. Every command goes through here so the CLI stays a thin
// shell over the engine.
func setup() (*engine.Engine, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	reg := engine.NewRegistry()
	engine.RegisterBuiltins(reg)

	cat, err := catalog.Load(cfg.Paths.CatalogDir, reg)
	if err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	dbPath := cfg.Paths.StateDB
	if dbPath == "" {
		dbPath = state.ProjectDBPath(".")
	}
	db, err := state.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open state db: %w", err)
	}
	if err := db.Migrate(); err != nil {
		return nil, nil, fmt.Errorf("migrate state db: %w", err)
	}

	logger, err := engine.NewDebugLogger(cfg.Logging.DebugLog)
	if err != nil {
		return nil, nil, fmt.Errorf("open debug log: %w", err)
	}

	eng := engine.New(engine.Options{
		Config:   cfg,
		Catalog:  cat,
		Registry: reg,
		Store:    state.NewStore(db),
		Logger:   logger,
	})
	return eng, cfg, nil
}
