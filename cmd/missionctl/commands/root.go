// Package commands implements the missionctl CLI commands using cobra.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "0.2.0"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "missionctl",
	Short: "Mission-control board engine for an autonomous agent",
	Long: `Missionctl keeps a kanban board of agent tasks in SQLite, decides which
task the agent should pick up next, and reprioritizes tasks as their due
dates approach.

Run 'missionctl serve' to expose the board over HTTP for the dashboard,
or 'missionctl run' to drive the pickup and reprioritization loops.`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config file")
}
