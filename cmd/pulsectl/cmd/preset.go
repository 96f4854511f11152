package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulseboard/internal/models"
	"github.com/good-yellow-bee/pulseboard/internal/rules"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Inspect alert threshold presets",
}

var presetListCmd = &cobra.Command{
	Use:   "list <family>",
	Short: "List the presets of a family",
	Long: `List the named presets of a threshold family. Families:
http_status, response_time, resource_threshold, endpoint_duration,
resource_duration, cooldown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		family := rules.Family(args[0])
		table := rules.Presets(family)
		if len(table) == 0 {
			return fmt.Errorf("unknown preset family %q", args[0])
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(table, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		for _, p := range table {
			if p.Operator != "" {
				fmt.Printf("%-8s %s %v\n", p.Name, p.Operator, p.Threshold)
			} else {
				fmt.Printf("%-8s %v\n", p.Name, p.Threshold)
			}
		}
		return nil
	},
}

var presetDetectCmd = &cobra.Command{
	Use:   "detect <family> <operator> <threshold>",
	Short: "Detect which preset a field combination matches",
	Long: `Detect the preset name matching an (operator, threshold) pair, or
"custom" when no preset matches exactly. Bare-value families ignore the
operator.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		threshold, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("threshold must be a number, got %q", args[2])
		}

		name := rules.Detect(rules.Family(args[0]), models.Operator(args[1]), threshold)
		fmt.Println(name)
		return nil
	},
}

func init() {
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetDetectCmd)
	rootCmd.AddCommand(presetCmd)
}
