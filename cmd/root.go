package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tableside",
	Short: "Local-first restaurant point of sale engine",
	Long:  `Runs the venue's order engine: a durable local store with best-effort replication to the shared backend`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
