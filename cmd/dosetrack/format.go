package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/models"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

func parseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatText, "human", "":
		return FormatText, nil
	default:
		return "", invalidInput("Unsupported output format %q; use text or json.", s)
	}
}

// render writes v as indented JSON or calls human to write text.
func render(cmd *cobra.Command, v interface{}, human func(w io.Writer) error) error {
	format, err := parseOutputFormat(formatFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	return human(out)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeDefinitions(w io.Writer, defs []*models.MedicationDefinition) error {
	if len(defs) == 0 {
		_, err := fmt.Fprintln(w, "No medications.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tDOSAGE\tTIMES\tSTART\tEND")
	for _, def := range defs {
		end := "-"
		if def.HasEndDate() {
			end = *def.EndDate
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			def.ID, def.Name, def.Dosage, strings.Join(def.Times, " "), def.StartDate, end)
	}
	return tw.Flush()
}

func writeDefinition(w io.Writer, def *models.MedicationDefinition) error {
	end := "(open-ended)"
	if def.HasEndDate() {
		end = *def.EndDate
	}
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", def.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", def.Name)
	fmt.Fprintf(tw, "Dosage:\t%s\n", def.Dosage)
	fmt.Fprintf(tw, "Times:\t%s (%d per day)\n", strings.Join(def.Times, ", "), def.Frequency)
	fmt.Fprintf(tw, "Start:\t%s\n", def.StartDate)
	fmt.Fprintf(tw, "End:\t%s\n", end)
	if def.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", def.Notes)
	}
	fmt.Fprintf(tw, "Updated:\t%s\n", def.UpdatedAtTime().UTC().Format(time.RFC3339))
	return tw.Flush()
}

func writeOccurrences(w io.Writer, day string, occs []models.ScheduleOccurrence) error {
	if _, err := fmt.Fprintf(w, "%s\n", day); err != nil {
		return err
	}
	if len(occs) == 0 {
		_, err := fmt.Fprintln(w, "  nothing scheduled")
		return err
	}
	tw := newTable(w)
	for _, o := range occs {
		status := "[ ]"
		taken := ""
		if o.Completed {
			status = "[x]"
			if o.ActualTime != nil {
				taken = "taken " + models.FormatInstant(*o.ActualTime)
			}
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n",
			status, o.ScheduledTime[len(models.DateLayout)+1:], o.MedicationName, o.Dosage, o.MedicationID, taken)
	}
	return tw.Flush()
}

func writeRecord(w io.Writer, r *models.IntakeRecord) error {
	status := "not taken"
	if r.Completed {
		status = "taken"
		if r.ActualTime != nil {
			status += " at " + models.FormatInstant(*r.ActualTime)
		}
	}
	_, err := fmt.Fprintf(w, "Recorded %s for %s (record %s)\n", status, r.ScheduledTime, r.ID)
	return err
}
