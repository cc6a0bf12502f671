package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kimhsiao/dosetrack/internal/logging"
	"github.com/kimhsiao/dosetrack/internal/models"
	"github.com/kimhsiao/dosetrack/internal/schedule"
)

// Source is the slice of the Store the Service reads from.
type Source interface {
	ListDefinitionsInRange(ctx context.Context, start, end string) ([]*models.MedicationDefinition, error)
	GetRecordsByTimeRange(ctx context.Context, start, end string) ([]*models.IntakeRecord, error)
}

// Service produces reconciled schedules for display: the definitions covering
// the requested days are expanded and overlaid with the records in the same
// window. Definitions that have since ended still show the days they covered.
type Service struct {
	source Source
	logger *logging.Logger
}

// NewService creates a Service. A nil logger discards output.
func NewService(source Source, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{source: source, logger: logger}
}

// Day returns the reconciled occurrences for one calendar date.
func (s *Service) Day(ctx context.Context, date string) ([]models.ScheduleOccurrence, error) {
	d, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	days, err := s.Range(ctx, d, d)
	if err != nil {
		return nil, err
	}
	return days[models.FormatDate(d)], nil
}

// Range returns the reconciled occurrences for every date in [start, end],
// keyed by YYYY-MM-DD.
func (s *Service) Range(ctx context.Context, start, end time.Time) (map[string][]models.ScheduleOccurrence, error) {
	windowStart, _ := DayWindow(start)
	_, windowEnd := DayWindow(end)

	defs, err := s.source.ListDefinitionsInRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	records, err := s.source.GetRecordsByTimeRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load intake records: %w", err)
	}
	s.reportDuplicates(records)

	days := schedule.GenerateRange(defs, start, end)
	for day, occs := range days {
		days[day] = Merge(occs, records)
	}
	return days, nil
}

func (s *Service) reportDuplicates(records []*models.IntakeRecord) {
	dups := Duplicates(records)
	if len(dups) == 0 {
		return
	}

	keys := make([]string, 0, len(dups))
	for key := range dups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		ids := make([]string, 0, len(dups[key]))
		for _, r := range dups[key] {
			ids = append(ids, r.ID)
		}
		s.logger.Warn("duplicate intake records for one occurrence; the last one is shown", map[string]interface{}{
			"occurrence": key,
			"record_ids": ids,
		})
	}
}

// DayWindow returns the first and last ScheduledLayout timestamps of the
// calendar date of t.
func DayWindow(t time.Time) (string, string) {
	day := models.FormatDate(t)
	return day + "T00:00:00", day + "T23:59:59"
}
