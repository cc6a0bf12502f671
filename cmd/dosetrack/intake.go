package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/models"
)

var takeUndo bool

var takeCmd = &cobra.Command{
	Use:   "take <medication-id> <scheduled-time>",
	Short: "Mark a scheduled dose as taken",
	Long: `Mark a scheduled dose as taken, or with --undo as not taken. The scheduled
time is the one shown by "dosetrack schedule", as YYYY-MM-DDTHH:MM or
YYYY-MM-DDTHH:MM:SS. Repeating the command updates the same record.`,
	Example: `  dosetrack take 3f1c... 2024-02-09T08:00
  dosetrack take 3f1c... 2024-02-09T08:00 --undo`,
	Args: cobra.ExactArgs(2),
	RunE: runTake,
}

var completeCmd = &cobra.Command{
	Use:   "complete <record-id>",
	Short: "Mark an existing intake record as taken now",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func init() {
	takeCmd.Flags().BoolVar(&takeUndo, "undo", false, "Mark the dose as not taken")
	rootCmd.AddCommand(takeCmd, completeCmd)
}

// normalizeScheduledTime accepts a scheduled time with or without seconds.
func normalizeScheduledTime(s string) (string, error) {
	if len(s) == len("2006-01-02T15:04") {
		s += ":00"
	}
	if !models.ValidScheduledTime(s) {
		return "", invalidInput("Scheduled time must look like 2024-02-09T08:00, got %q.", s)
	}
	return s, nil
}

func runTake(cmd *cobra.Command, args []string) error {
	scheduled, err := normalizeScheduledTime(args[1])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		def, err := a.store.GetDefinition(ctx, args[0])
		if err != nil {
			return err
		}
		if def == nil {
			return notFound(args[0])
		}

		record, err := a.store.RecordIntake(ctx, def.ID, scheduled, !takeUndo)
		if err != nil {
			return err
		}
		return render(cmd, record, func(w io.Writer) error {
			return writeRecord(w, record)
		})
	})
}

func runComplete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		n, err := a.store.MarkComplete(ctx, args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return apperrors.Newf(apperrors.ErrNotFound, "No intake record with id %s.", args[0])
		}
		record, err := a.store.GetIntakeRecord(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd, record, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Marked %s as taken.\n", record.ScheduledTime)
			return err
		})
	})
}
