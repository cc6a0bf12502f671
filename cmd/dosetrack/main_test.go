package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kimhsiao/dosetrack/internal/advisory"
	"github.com/kimhsiao/dosetrack/internal/adherence"
	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/models"
)

var fixedNow = time.Date(2024, 2, 9, 10, 0, 0, 0, time.UTC)

// resetFlags restores every flag to its default between executions of the
// shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// cli runs dosetrack commands against a fresh data directory.
type cli struct {
	t       *testing.T
	dataDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	prev := now
	now = func() time.Time { return fixedNow }
	t.Cleanup(func() {
		now = prev
		resetFlags(rootCmd)
	})
	return &cli{t: t, dataDir: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--data-dir", c.dataDir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("dosetrack %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func (c *cli) mustJSON(v interface{}, args ...string) {
	c.t.Helper()
	out := c.mustRun(append(args, "--format", "json")...)
	if err := json.Unmarshal([]byte(out), v); err != nil {
		c.t.Fatalf("dosetrack %s: invalid JSON %q: %v", strings.Join(args, " "), out, err)
	}
}

func TestCLI_scheduleTakeAdherence(t *testing.T) {
	c := newCLI(t)

	var def models.MedicationDefinition
	c.mustJSON(&def, "med", "add", "--name", "Aspirin", "--dosage", "81mg", "--times", "20:00,08:00", "--start", "2024-01-01")
	if def.ID == "" || def.Frequency != 2 {
		t.Fatalf("med add = %+v, want an id and two times", def)
	}

	var days map[string][]models.ScheduleOccurrence
	c.mustJSON(&days, "schedule", "--date", "2024-02-09")
	occs := days["2024-02-09"]
	if len(occs) != 2 {
		t.Fatalf("schedule = %d occurrences, want 2", len(occs))
	}
	if occs[0].ID != def.ID+"_2024-02-09T08:00:00" || occs[0].Completed {
		t.Errorf("first occurrence = %+v, want pending 08:00", occs[0])
	}

	out := c.mustRun("take", def.ID, "2024-02-09T08:00")
	if !strings.Contains(out, "taken") {
		t.Errorf("take output = %q", out)
	}

	c.mustJSON(&days, "schedule", "--date", "2024-02-09")
	occs = days["2024-02-09"]
	if !occs[0].Completed || occs[1].Completed {
		t.Errorf("after take: completed = [%v %v], want [true false]", occs[0].Completed, occs[1].Completed)
	}
	if occs[0].ActualTime == nil || !occs[0].ActualTime.Equal(fixedNow) {
		t.Errorf("ActualTime = %v, want %v", occs[0].ActualTime, fixedNow)
	}

	c.mustRun("take", def.ID, "2024-02-09T20:00:00", "--undo")

	var summary adherence.Summary
	c.mustJSON(&summary, "adherence", "--from", "2024-02-09", "--to", "2024-02-09")
	if summary.Total != 2 || summary.Completed != 1 || summary.Rate != 50 {
		t.Errorf("adherence = %+v, want 1 of 2 at 50%%", summary)
	}

	c.mustJSON(&days, "schedule", "--from", "2024-02-08", "--to", "2024-02-10")
	if len(days) != 3 {
		t.Errorf("schedule range = %d days, want 3", len(days))
	}

	text := c.mustRun("schedule", "--date", "2024-02-09")
	if !strings.Contains(text, "[x]") || !strings.Contains(text, "08:00:00") {
		t.Errorf("schedule text output = %q", text)
	}
}

func TestCLI_medLifecycle(t *testing.T) {
	c := newCLI(t)

	var def models.MedicationDefinition
	c.mustJSON(&def, "med", "add", "--name", "Vitamin D", "--times", "09:00", "--end", "2024-03-01")
	if def.StartDate != "2024-02-09" {
		t.Errorf("StartDate = %q, want today 2024-02-09", def.StartDate)
	}

	var updated models.MedicationDefinition
	c.mustJSON(&updated, "med", "update", def.ID, "--dosage", "2000IU", "--clear-end")
	if updated.Dosage != "2000IU" || updated.EndDate != nil || updated.Name != "Vitamin D" {
		t.Errorf("med update = %+v", updated)
	}

	var defs []models.MedicationDefinition
	c.mustJSON(&defs, "med", "list", "--active")
	if len(defs) != 1 {
		t.Errorf("med list --active = %d, want 1", len(defs))
	}

	show := c.mustRun("med", "show", def.ID)
	if !strings.Contains(show, "2000IU") || !strings.Contains(show, "(open-ended)") {
		t.Errorf("med show output = %q", show)
	}

	c.mustRun("take", def.ID, "2024-02-09T09:00")
	if out := c.mustRun("med", "delete", def.ID); !strings.Contains(out, "Deleted") {
		t.Errorf("med delete output = %q", out)
	}
	if out := c.mustRun("med", "delete", def.ID); !strings.Contains(out, "Nothing to delete") {
		t.Errorf("second med delete output = %q", out)
	}
	if out := c.mustRun("med", "list"); !strings.Contains(out, "No medications.") {
		t.Errorf("med list output = %q", out)
	}
}

func TestCLI_scheduleShowsFinalDay(t *testing.T) {
	c := newCLI(t)

	var def models.MedicationDefinition
	c.mustJSON(&def, "med", "add", "--name", "Amoxicillin", "--times", "08:00,20:00", "--start", "2024-02-01", "--end", "2024-02-09")
	c.mustRun("take", def.ID, "2024-02-08T08:00")

	var days map[string][]models.ScheduleOccurrence
	c.mustJSON(&days, "schedule", "--from", "2024-02-08", "--to", "2024-02-10")
	if n := len(days["2024-02-09"]); n != 2 {
		t.Errorf("final day = %d occurrences, want 2", n)
	}
	if occs := days["2024-02-08"]; len(occs) != 2 || !occs[0].Completed {
		t.Errorf("2024-02-08 = %+v, want the 08:00 dose completed", occs)
	}
	if n := len(days["2024-02-10"]); n != 0 {
		t.Errorf("day after the end = %d occurrences, want 0", n)
	}

	var defs []models.MedicationDefinition
	c.mustJSON(&defs, "med", "list", "--active")
	if len(defs) != 0 {
		t.Errorf("med list --active = %d, want 0 on the final day", len(defs))
	}
}

func TestCLI_exportImport(t *testing.T) {
	c := newCLI(t)

	var def models.MedicationDefinition
	c.mustJSON(&def, "med", "add", "--name", "Aspirin", "--times", "08:00", "--start", "2024-01-01")
	c.mustRun("take", def.ID, "2024-02-09T08:00")

	backup := filepath.Join(t.TempDir(), "backup.yaml.gz")
	if out := c.mustRun("export", backup); !strings.Contains(out, "Exported 1 medications and 1 intake records") {
		t.Errorf("export output = %q", out)
	}

	other := &cli{t: t, dataDir: t.TempDir()}
	if out := other.mustRun("import", backup); !strings.Contains(out, "Imported 1 medications and 1 intake records") {
		t.Errorf("import output = %q", out)
	}
	var days map[string][]models.ScheduleOccurrence
	other.mustJSON(&days, "schedule")
	if occs := days["2024-02-09"]; len(occs) != 1 || !occs[0].Completed {
		t.Errorf("schedule after import = %+v, want one completed dose", occs)
	}
}

func TestCLI_errors(t *testing.T) {
	c := newCLI(t)

	tests := []struct {
		name string
		args []string
		code apperrors.ErrorCode
	}{
		{"show missing", []string{"med", "show", "nope"}, apperrors.ErrNotFound},
		{"update without fields", []string{"med", "update", "nope"}, apperrors.ErrInvalid},
		{"add without name", []string{"med", "add", "--times", "08:00"}, apperrors.ErrValidation},
		{"add end before start", []string{"med", "add", "--name", "x", "--start", "2024-02-01", "--end", "2024-01-01"}, apperrors.ErrValidation},
		{"bad date", []string{"schedule", "--date", "09/02/2024"}, apperrors.ErrInvalid},
		{"inverted range", []string{"schedule", "--from", "2024-02-10", "--to", "2024-02-09"}, apperrors.ErrInvalid},
		{"take unknown medication", []string{"take", "nope", "2024-02-09T08:00"}, apperrors.ErrNotFound},
		{"take bad time", []string{"take", "nope", "8am"}, apperrors.ErrInvalid},
		{"complete unknown record", []string{"complete", "nope"}, apperrors.ErrNotFound},
		{"bad format", []string{"med", "list", "--format", "xml"}, apperrors.ErrInvalid},
		{"import missing file", []string{"import", filepath.Join(t.TempDir(), "none.yaml")}, apperrors.ErrImportFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run(tt.args...)
			if !apperrors.Is(err, tt.code) {
				t.Errorf("dosetrack %s error = %v, want %s", strings.Join(tt.args, " "), err, tt.code)
			}
			if msg := errorMessage(err); msg == "" || strings.Contains(msg, string(tt.code)) {
				t.Errorf("errorMessage() = %q, want a display message without the code", msg)
			}
		})
	}

	if _, err := c.run("med", "show"); err == nil {
		t.Error("med show without an id should fail")
	}
}

func TestCLI_weatherCheck(t *testing.T) {
	c := newCLI(t)

	var report advisory.Report
	c.mustJSON(&report, "weather-check", "--temperature", "31", "--humidity", "50",
		"--measured-at", fixedNow.Add(-30*time.Hour).Format(time.RFC3339))
	if !report.Stale {
		t.Error("30-hour-old reading should be stale")
	}
	if len(report.Advisories) != 1 || report.Advisories[0] != advisory.HeatAdvisory {
		t.Errorf("Advisories = %v, want heat advisory", report.Advisories)
	}

	out := c.mustRun("weather-check", "--temperature", "20", "--humidity", "40")
	if !strings.Contains(out, "favorable") || strings.Contains(out, "Warning") {
		t.Errorf("weather-check output = %q", out)
	}

	if _, err := c.run("weather-check", "--temperature", "20"); err == nil {
		t.Error("weather-check without --humidity should fail")
	}
}

func TestCLI_migrate(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("migrate")
	if !strings.Contains(out, "Schema version: 1") {
		t.Errorf("migrate output = %q", out)
	}
	out = c.mustRun("migrate", "--down")
	if !strings.Contains(out, "Schema version: 0") {
		t.Errorf("migrate --down output = %q", out)
	}
}

func TestErrorMessage(t *testing.T) {
	coded := apperrors.New(apperrors.ErrStorage, "Local storage is full.")
	if got := errorMessage(coded); got != "Local storage is full." {
		t.Errorf("errorMessage(coded) = %q", got)
	}
	if got := errorMessage(errors.New(`unknown flag: --bogus`)); got != "unknown flag: --bogus" {
		t.Errorf("errorMessage(plain) = %q", got)
	}
}
