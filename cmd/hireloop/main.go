package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hireloop/internal/config"
	"hireloop/internal/logging"
)

var (
	// Global flags
	workspace  string
	configPath string
	verbose    bool

	cfg config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hireloop",
	Short: "hireloop - adaptive mock interview engine",
	Long: `hireloop runs timed, two-round mock interviews (Technical, then HR)
that adapt question difficulty to the candidate's performance.

Answers are scored across five dimensions (content, keywords, depth,
communication, confidence) with instant feedback, and a final report with
a hiring recommendation is produced at the end.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if workspace == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve workspace: %w", err)
			}
			workspace = wd
		}

		path := configPath
		if path == "" {
			path = config.FindConfig(workspace)
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Logging.DebugMode = true
		}

		return logging.Initialize(workspace, logging.Settings{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: <workspace>/hireloop.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(interviewCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
