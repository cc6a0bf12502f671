package adherence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kimhsiao/dosetrack/internal/models"
)

func records(total, completed int) []*models.IntakeRecord {
	out := make([]*models.IntakeRecord, 0, total)
	for i := 0; i < total; i++ {
		out = append(out, &models.IntakeRecord{
			ID:            fmt.Sprintf("r%d", i),
			MedicationID:  "m",
			ScheduledTime: fmt.Sprintf("2024-01-%02dT08:00:00", i%28+1),
			Completed:     i < completed,
		})
	}
	return out
}

func TestRate(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		completed int
		want      float64
	}{
		{"no records", 0, 0, 0},
		{"none taken", 4, 0, 0},
		{"all taken", 4, 4, 100},
		{"half", 4, 2, 50},
		{"one third", 3, 1, 33.3},
		{"two thirds", 3, 2, 66.7},
		{"one sixth", 6, 1, 16.7},
		// 1/8 = 125 per mille exactly: rounds to 12.5
		{"one eighth", 8, 1, 12.5},
		// 1/16 = 62.5 per mille: half away from zero gives 6.3
		{"one sixteenth", 16, 1, 6.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rate(records(tt.total, tt.completed))
			if got != tt.want {
				t.Errorf("Rate(%d/%d) = %v, want %v", tt.completed, tt.total, got, tt.want)
			}
		})
	}
}

func TestRate_neverNaN(t *testing.T) {
	for _, rs := range [][]*models.IntakeRecord{nil, {}, {nil}} {
		got := Rate(rs)
		if math.IsNaN(got) || got != 0 {
			t.Errorf("Rate(%v) = %v, want 0", rs, got)
		}
	}
}

type stubSource struct {
	records    []*models.IntakeRecord
	err        error
	start, end string
}

func (s *stubSource) GetRecordsByTimeRange(ctx context.Context, start, end string) ([]*models.IntakeRecord, error) {
	s.start, s.end = start, end
	return s.records, s.err
}

func TestCalculator_Summary(t *testing.T) {
	src := &stubSource{records: records(3, 2)}
	calc := NewCalculator(src)

	got, err := calc.Summary(context.Background(), "2024-01-01T00:00:00", "2024-01-31T23:59:59")
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	want := &Summary{
		Start:     "2024-01-01T00:00:00",
		End:       "2024-01-31T23:59:59",
		Total:     3,
		Completed: 2,
		Rate:      66.7,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
	if src.start != want.Start || src.end != want.End {
		t.Errorf("source queried with [%s, %s], want the window unchanged", src.start, src.end)
	}
}

func TestCalculator_Rate(t *testing.T) {
	calc := NewCalculator(&stubSource{})
	got, err := calc.Rate(context.Background(), "2024-01-01T00:00:00", "2024-01-01T23:59:59")
	if err != nil {
		t.Fatalf("Rate() failed: %v", err)
	}
	if got != 0 {
		t.Errorf("Rate(empty window) = %v, want 0", got)
	}

	calc = NewCalculator(&stubSource{err: errors.New("storage offline")})
	if _, err := calc.Rate(context.Background(), "a", "b"); err == nil {
		t.Error("Rate() should surface source errors")
	}
}
