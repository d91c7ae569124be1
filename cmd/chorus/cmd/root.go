// Package cmd implements the chorus command line interface.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// flagViper carries CLI flag bindings into the config loader.
	flagViper = viper.New()

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "chorus",
	Short: "Multi-analyst research report generator",
	Long: `chorus turns a topic into a structured research report. It generates a
panel of analyst personas, pauses for human review of the panel, fans
research out across the approved analysts, and synthesizes their
contributions into a single report exported as docx and pdf.

Sessions are checkpointed after every stage: a run can stop at the
review gate for days and resume exactly where it left off.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion injects build metadata from main.
func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .chorus.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (auto, text, json)")

	_ = flagViper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = flagViper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}
