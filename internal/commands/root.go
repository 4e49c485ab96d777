// Package commands provides the madipath CLI.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFlag   string
	providerFlag string

	// Version info (set at build time)
	Version = "0.1.0"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "madipath",
	Short: "Symptom triage backed by a search-grounded language model",
	Long: `madipath collects a symptom description, asks a hosted model for a
structured triage assessment and shows the risk level, next steps, warning
signs, reference codes and cited sources.

Examples:
  madipath serve                          Start the web UI and JSON API
  madipath bot                            Run the Telegram bot only
  madipath analyze "dry cough for a week" Print an assessment in the terminal
  echo "sore throat" | madipath analyze   Read symptoms from stdin`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to config.yaml (default: ./configs/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "Model provider: gemini or openai (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(analyzeCmd)
}
