package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "barista",
	Short: "Coffeeshop daily task service",
	Long: `Barista serves the coffeeshop task API and materializes each day's
task results from the recurring and one-time task definitions.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.AddCommand(serveCmd, fanoutCmd, migrateProfilesCmd)
}
