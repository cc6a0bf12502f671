// Package adherence computes how many recorded doses in a window were taken.
//
// The denominator is the number of intake records in the window, not the
// number of generated occurrences: a dose nobody acted on is not counted.
package adherence

import (
	"context"
	"fmt"
	"math"

	"github.com/kimhsiao/dosetrack/internal/models"
)

// RecordSource loads the intake records scheduled in [start, end], inclusive.
type RecordSource interface {
	GetRecordsByTimeRange(ctx context.Context, start, end string) ([]*models.IntakeRecord, error)
}

// Summary is the adherence of one window.
type Summary struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"rate"`
}

// Rate returns the completed share of records as a percentage rounded to one
// decimal place, half away from zero. No records yields 0.
func Rate(records []*models.IntakeRecord) float64 {
	total, completed := count(records)
	return rate(total, completed)
}

func count(records []*models.IntakeRecord) (total, completed int) {
	for _, r := range records {
		if r == nil {
			continue
		}
		total++
		if r.Completed {
			completed++
		}
	}
	return total, completed
}

func rate(total, completed int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// Calculator computes adherence over the records of a RecordSource.
type Calculator struct {
	source RecordSource
}

// NewCalculator creates a Calculator.
func NewCalculator(source RecordSource) *Calculator {
	return &Calculator{source: source}
}

// Rate returns the adherence percentage for records scheduled in
// [windowStart, windowEnd]. Both bounds are ScheduledLayout timestamps.
func (c *Calculator) Rate(ctx context.Context, windowStart, windowEnd string) (float64, error) {
	s, err := c.Summary(ctx, windowStart, windowEnd)
	if err != nil {
		return 0, err
	}
	return s.Rate, nil
}

// Summary returns the counts behind Rate for the same window.
func (c *Calculator) Summary(ctx context.Context, windowStart, windowEnd string) (*Summary, error) {
	records, err := c.source.GetRecordsByTimeRange(ctx, windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load intake records: %w", err)
	}

	total, completed := count(records)
	return &Summary{
		Start:     windowStart,
		End:       windowEnd,
		Total:     total,
		Completed: completed,
		Rate:      rate(total, completed),
	}, nil
}
