package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/models"
	"github.com/kimhsiao/dosetrack/internal/reconcile"
)

var (
	scheduleDate string
	scheduleFrom string
	scheduleTo   string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show doses due on a day or over a range of days",
	Example: `  dosetrack schedule
  dosetrack schedule --date 2024-02-09
  dosetrack schedule --from 2024-02-05 --to 2024-02-11 --format json`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleDate, "date", "", "Day to show, YYYY-MM-DD (default: today)")
	scheduleCmd.Flags().StringVar(&scheduleFrom, "from", "", "First day of a range")
	scheduleCmd.Flags().StringVar(&scheduleTo, "to", "", "Last day of a range")
	scheduleCmd.MarkFlagsMutuallyExclusive("date", "from")
	scheduleCmd.MarkFlagsMutuallyExclusive("date", "to")
	scheduleCmd.MarkFlagsRequiredTogether("from", "to")
	rootCmd.AddCommand(scheduleCmd)
}

// parseDay parses a YYYY-MM-DD flag value.
func parseDay(flag, value string) (time.Time, error) {
	if !models.ValidDate(value) {
		return time.Time{}, invalidInput("--%s must be a date in YYYY-MM-DD form, got %q.", flag, value)
	}
	d, _ := models.ParseDate(value)
	return d, nil
}

// scheduleWindow resolves --date, --from and --to into an inclusive range.
func scheduleWindow() (time.Time, time.Time, error) {
	if scheduleFrom != "" {
		start, err := parseDay("from", scheduleFrom)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := parseDay("to", scheduleTo)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if end.Before(start) {
			return time.Time{}, time.Time{}, invalidInput("--to %s is before --from %s.", scheduleTo, scheduleFrom)
		}
		return start, end, nil
	}

	day := scheduleDate
	if day == "" {
		day = models.FormatDate(now())
	}
	d, err := parseDay("date", day)
	return d, d, err
}

func runSchedule(cmd *cobra.Command, args []string) error {
	start, end, err := scheduleWindow()
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		days, err := reconcile.NewService(a.store, a.logger).Range(ctx, start, end)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(days))
		for day := range days {
			keys = append(keys, day)
		}
		sort.Strings(keys)

		return render(cmd, days, func(w io.Writer) error {
			for i, day := range keys {
				if i > 0 {
					fmt.Fprintln(w)
				}
				if err := writeOccurrences(w, day, days[day]); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
