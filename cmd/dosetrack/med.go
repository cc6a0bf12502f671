package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/models"
)

var (
	medName     string
	medDosage   string
	medTimes    string
	medStart    string
	medEnd      string
	medClearEnd bool
	medNotes    string
	medActive   bool
)

var medCmd = &cobra.Command{
	Use:   "med",
	Short: "Manage medication definitions",
}

var medAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a medication",
	Example: `  dosetrack med add --name Metformin --dosage 500mg --times 08:00,20:00 --start 2024-01-01
  dosetrack med add --name Amoxicillin --times 08:00,16:00,00:00 --end 2024-01-10`,
	Args: cobra.NoArgs,
	RunE: runMedAdd,
}

var medListCmd = &cobra.Command{
	Use:   "list",
	Short: "List medications",
	Args:  cobra.NoArgs,
	RunE:  runMedList,
}

var medShowCmd = &cobra.Command{
	Use:   "show <medication-id>",
	Short: "Show one medication",
	Args:  cobra.ExactArgs(1),
	RunE:  runMedShow,
}

var medUpdateCmd = &cobra.Command{
	Use:   "update <medication-id>",
	Short: "Change fields of a medication",
	Long: `Change fields of a medication. Only the flags given are changed. Changing
--times also changes the number of doses per day.`,
	Args: cobra.ExactArgs(1),
	RunE: runMedUpdate,
}

var medDeleteCmd = &cobra.Command{
	Use:   "delete <medication-id>",
	Short: "Delete a medication and all of its intake records",
	Args:  cobra.ExactArgs(1),
	RunE:  runMedDelete,
}

func init() {
	medAddCmd.Flags().StringVar(&medName, "name", "", "Medication name (required)")
	medAddCmd.Flags().StringVar(&medDosage, "dosage", "", "Dose per intake, e.g. 500mg")
	medAddCmd.Flags().StringVar(&medTimes, "times", "", "Comma-separated times of day, HH:MM")
	medAddCmd.Flags().StringVar(&medStart, "start", "", "First day, YYYY-MM-DD (default: today)")
	medAddCmd.Flags().StringVar(&medEnd, "end", "", "Last day, YYYY-MM-DD (default: open-ended)")
	medAddCmd.Flags().StringVar(&medNotes, "notes", "", "Free-text notes")

	medListCmd.Flags().BoolVar(&medActive, "active", false, "Only medications that have not ended")

	medUpdateCmd.Flags().StringVar(&medName, "name", "", "New name")
	medUpdateCmd.Flags().StringVar(&medDosage, "dosage", "", "New dosage")
	medUpdateCmd.Flags().StringVar(&medTimes, "times", "", "New comma-separated times of day")
	medUpdateCmd.Flags().StringVar(&medStart, "start", "", "New first day")
	medUpdateCmd.Flags().StringVar(&medEnd, "end", "", "New last day")
	medUpdateCmd.Flags().BoolVar(&medClearEnd, "clear-end", false, "Remove the end date")
	medUpdateCmd.Flags().StringVar(&medNotes, "notes", "", "New notes")

	medCmd.AddCommand(medAddCmd, medListCmd, medShowCmd, medUpdateCmd, medDeleteCmd)
	rootCmd.AddCommand(medCmd)
}

// parseTimes splits a --times value. An empty value means no times.
func parseTimes(s string) []string {
	times := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			times = append(times, part)
		}
	}
	return times
}

func runMedAdd(cmd *cobra.Command, args []string) error {
	start := medStart
	if start == "" {
		start = models.FormatDate(now())
	}
	times := parseTimes(medTimes)
	def := &models.MedicationDefinition{
		Name:      medName,
		Dosage:    medDosage,
		Frequency: len(times),
		Times:     times,
		StartDate: start,
		Notes:     medNotes,
	}
	if medEnd != "" {
		end := medEnd
		def.EndDate = &end
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		if _, err := a.store.CreateDefinition(ctx, def); err != nil {
			return err
		}
		return render(cmd, def, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Added %s (%s)\n", def.Name, def.ID)
			return err
		})
	})
}

func runMedList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		list := a.store.ListDefinitions
		if medActive {
			list = a.store.ListActiveDefinitions
		}
		defs, err := list(ctx)
		if err != nil {
			return err
		}
		return render(cmd, defs, func(w io.Writer) error {
			return writeDefinitions(w, defs)
		})
	})
}

func notFound(id string) error {
	return apperrors.Newf(apperrors.ErrNotFound, "No medication with id %s.", id)
}

func runMedShow(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		def, err := a.store.GetDefinition(ctx, args[0])
		if err != nil {
			return err
		}
		if def == nil {
			return notFound(args[0])
		}
		return render(cmd, def, func(w io.Writer) error {
			return writeDefinition(w, def)
		})
	})
}

// definitionPatch builds a patch from the flags that were set.
func definitionPatch(cmd *cobra.Command) models.DefinitionPatch {
	var patch models.DefinitionPatch
	flags := cmd.Flags()
	if flags.Changed("name") {
		patch.Name = &medName
	}
	if flags.Changed("dosage") {
		patch.Dosage = &medDosage
	}
	if flags.Changed("times") {
		times := parseTimes(medTimes)
		freq := len(times)
		patch.Times = times
		patch.Frequency = &freq
	}
	if flags.Changed("start") {
		patch.StartDate = &medStart
	}
	if flags.Changed("end") {
		patch.EndDate = &medEnd
	}
	patch.ClearEndDate = medClearEnd
	if flags.Changed("notes") {
		patch.Notes = &medNotes
	}
	return patch
}

func runMedUpdate(cmd *cobra.Command, args []string) error {
	patch := definitionPatch(cmd)
	if patch.IsEmpty() {
		return invalidInput("Nothing to update; pass at least one field flag.")
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		n, err := a.store.UpdateDefinition(ctx, args[0], patch)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound(args[0])
		}
		def, err := a.store.GetDefinition(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd, def, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Updated %s (%s)\n", def.Name, def.ID)
			return err
		})
	})
}

func runMedDelete(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		n, err := a.store.DeleteDefinition(ctx, args[0])
		if err != nil {
			return err
		}
		result := map[string]interface{}{"id": args[0], "deleted": n}
		return render(cmd, result, func(w io.Writer) error {
			msg := "Deleted " + args[0] + " and its intake records."
			if n == 0 {
				msg = "Nothing to delete; no medication with id " + args[0] + "."
			}
			_, err := fmt.Fprintln(w, msg)
			return err
		})
	})
}
