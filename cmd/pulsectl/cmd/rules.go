package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulseboard/internal/rules"
	"github.com/good-yellow-bee/pulseboard/internal/schedule"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Work with alert rule seed files",
}

var rulesLintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Validate a seed rules file",
	Long: `Validate a YAML seed rules file and report the rules it would
create, including the preset each rule's threshold maps to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := rules.LoadSeedFile(args[0])
		if err != nil {
			return err
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(loaded, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		for _, r := range loaded {
			preset := rules.Detect(rules.FamilyFor(r.Metric), r.Operator, r.Threshold)
			fmt.Printf("%-30s %-10s %-14s %s %v (%s)\n",
				r.Name, r.Category, r.Metric, r.Operator, r.Threshold, preset)
			if r.Schedule != "" {
				s := schedule.Decode(r.Schedule)
				fmt.Printf("  schedule: %s at %02d:%02d\n", s.Type, s.Hour, s.Minute)
			}
		}
		fmt.Printf("%d rules OK\n", len(loaded))
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesLintCmd)
	rootCmd.AddCommand(rulesCmd)
}
