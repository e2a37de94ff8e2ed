package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edictlabs/edict/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("edict version %s\n", version.Get())
	},
}
