package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulseboard/internal/schedule"
)

var (
	scheduleHour    int
	scheduleMinute  int
	scheduleWeekday int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Convert between cron expressions and structured schedules",
}

var scheduleDecodeCmd = &cobra.Command{
	Use:   "decode <cron>",
	Short: "Decode a stored cron expression into its structured form",
	Long: `Decode a 5-field cron expression into the structured daily/weekly
form the dashboard edits. Expressions outside the two supported shapes
fall back to the default schedule (daily at 09:00).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := args[0]
		s := schedule.Decode(expr)

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(s, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if !schedule.Recognized(expr) {
			fmt.Printf("expression %q is not recognized, showing the fallback\n", expr)
		}
		fmt.Printf("type:    %s\n", s.Type)
		fmt.Printf("time:    %02d:%02d\n", s.Hour, s.Minute)
		if s.Type == schedule.Weekly {
			fmt.Printf("weekday: %d\n", s.Weekday)
		}
		return nil
	},
}

var scheduleEncodeCmd = &cobra.Command{
	Use:   "encode <daily|weekly>",
	Short: "Encode a structured schedule as a cron expression",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if scheduleHour < 0 || scheduleHour > 23 {
			return fmt.Errorf("hour must be 0..23")
		}
		if scheduleMinute < 0 || scheduleMinute > 59 {
			return fmt.Errorf("minute must be 0..59")
		}

		var s schedule.Schedule
		switch schedule.Type(args[0]) {
		case schedule.Daily:
			s = schedule.NewDaily(scheduleHour, scheduleMinute)
		case schedule.Weekly:
			if scheduleWeekday < 0 || scheduleWeekday > 6 {
				return fmt.Errorf("weekday must be 0..6")
			}
			s = schedule.NewWeekly(scheduleHour, scheduleMinute, scheduleWeekday)
		default:
			return fmt.Errorf("schedule type must be daily or weekly, got %q", args[0])
		}

		fmt.Println(schedule.Encode(s))
		return nil
	},
}

var scheduleCheckCmd = &cobra.Command{
	Use:   "check <cron>",
	Short: "Report whether a cron expression round-trips losslessly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		expr := args[0]
		if schedule.Recognized(expr) {
			fmt.Printf("%q is recognized and round-trips losslessly\n", expr)
			return nil
		}
		fallback := schedule.Encode(schedule.Decode(expr))
		fmt.Printf("%q is not recognized; editing it would rewrite it as %q\n", expr, fallback)
		return nil
	},
}

func init() {
	scheduleEncodeCmd.Flags().IntVar(&scheduleHour, "hour", 9, "hour of day (0..23)")
	scheduleEncodeCmd.Flags().IntVar(&scheduleMinute, "minute", 0, "minute of hour (0..59)")
	scheduleEncodeCmd.Flags().IntVar(&scheduleWeekday, "weekday", 1, "day of week (0..6, weekly only)")

	scheduleCmd.AddCommand(scheduleDecodeCmd)
	scheduleCmd.AddCommand(scheduleEncodeCmd)
	scheduleCmd.AddCommand(scheduleCheckCmd)
	rootCmd.AddCommand(scheduleCmd)
}
