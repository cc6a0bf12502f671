package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/adherence"
	"github.com/kimhsiao/dosetrack/internal/models"
	"github.com/kimhsiao/dosetrack/internal/reconcile"
)

var (
	adherenceFrom string
	adherenceTo   string
)

var adherenceCmd = &cobra.Command{
	Use:   "adherence",
	Short: "Show the share of recorded doses that were taken",
	Long: `Show the share of recorded doses that were taken between two days,
inclusive. Only doses with an intake record count; a dose nobody marked
either way is not included.`,
	Args: cobra.NoArgs,
	RunE: runAdherence,
}

func init() {
	adherenceCmd.Flags().StringVar(&adherenceFrom, "from", "", "First day, YYYY-MM-DD (default: 6 days before --to)")
	adherenceCmd.Flags().StringVar(&adherenceTo, "to", "", "Last day, YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(adherenceCmd)
}

func runAdherence(cmd *cobra.Command, args []string) error {
	to := adherenceTo
	if to == "" {
		to = models.FormatDate(now())
	}
	end, err := parseDay("to", to)
	if err != nil {
		return err
	}
	start := end.AddDate(0, 0, -6)
	if adherenceFrom != "" {
		if start, err = parseDay("from", adherenceFrom); err != nil {
			return err
		}
	}
	if end.Before(start) {
		return invalidInput("--to %s is before --from %s.", models.FormatDate(end), models.FormatDate(start))
	}

	windowStart, _ := reconcile.DayWindow(start)
	_, windowEnd := reconcile.DayWindow(end)

	return withApp(cmd, func(ctx context.Context, a *app) error {
		summary, err := adherence.NewCalculator(a.store).Summary(ctx, windowStart, windowEnd)
		if err != nil {
			return err
		}
		return render(cmd, summary, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "%s to %s: %.1f%% (%d of %d recorded doses taken)\n",
				models.FormatDate(start), models.FormatDate(end), summary.Rate, summary.Completed, summary.Total)
			return err
		})
	})
}
