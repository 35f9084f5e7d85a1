package ops

import (
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// GapTable flattens the relation-mismatch report.
func GapTable(rows []GapRow) models.Table {
	t := models.Table{
		Name:    "ops_gap_report",
		Columns: []string{"gap_type", "user_count", "notes"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.GapType, r.UserCount, r.Notes})
	}
	return t
}

// ExceptionSummaryTable flattens exception durations per reason.
func ExceptionSummaryTable(rows []ExceptionSummaryRow) models.Table {
	t := models.Table{
		Name:    "exception_duration_summary",
		Columns: []string{"reason", "count", "mean_days", "median_days"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Reason, r.Count, floatCell(r.MeanDays), floatCell(r.MedianDays)})
	}
	return t
}

// TimelineTable flattens the bounded-exception timeline.
func TimelineTable(rows []TimelineRow) models.Table {
	t := models.Table{
		Name:    "exception_timeline",
		Columns: []string{"id", "user_id", "reason", "start_date", "end_date", "duration_days"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.ID, r.UserID, r.Reason, r.StartDate, r.EndDate, r.DurationDays})
	}
	return t
}

// SalesLagTable flattens submission-to-first-sale lags.
func SalesLagTable(rows []SalesLagRow) models.Table {
	t := models.Table{
		Name:    "sales_lag",
		Columns: []string{"submission_id", "email", "submitted_at", "paid_at", "amount", "sales_lag_days"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.SubmissionID, r.Email, timeCell(r.SubmittedAt), timeCell(r.PaidAt), floatCell(r.Amount), intCell(r.SalesLagDays)})
	}
	return t
}

func floatCell(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func intCell(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func timeCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
