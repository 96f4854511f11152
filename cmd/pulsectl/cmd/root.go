// Package cmd contains the CLI commands for pulseboard.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Used for flags
	output string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pulsectl",
	Short: "PulseBoard - Service monitoring and alerting toolkit",
	Long: `pulsectl inspects and validates PulseBoard alert configuration
from the command line.

Examples:
  # Show the structured form of a stored cron schedule
  pulsectl schedule decode "30 8 * * 5"

  # Encode a weekly schedule as a cron expression
  pulsectl schedule encode weekly --hour 8 --minute 30 --weekday 5

  # List threshold presets for a metric family
  pulsectl preset list http_status

  # Detect which preset a rule's threshold matches
  pulsectl preset detect response_time gt 3000

  # Validate a seed rules file before deploying it
  pulsectl rules lint deploy/rules.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}
