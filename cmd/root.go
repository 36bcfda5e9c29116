package cmd

import (
	"github.com/AndyVanLandhof/psychprep/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "psychprep",
	Short: "A-level exam practice and marking-calibration toolkit",
	Long:  "Psychprep — timed exam practice sessions with AI-generated question sets,\nexaminer-style marking, and offline calibration of the marking model.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PSYCHPREP_DB env var)")

	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(prefetchCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then PSYCHPREP_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
