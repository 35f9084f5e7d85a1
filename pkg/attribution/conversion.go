package attribution

import (
	"fmt"
	"sort"

	"github.com/mentorlane/insights/pkg/models"
)

// Cohort names, in reporting order.
var CohortNames = []string{"newcomer_A", "newcomer_B", "newcomer_C", "newcomer_strict"}

// DefaultWindows are the fixed conversion windows, in days.
var DefaultWindows = []int{1, 3, 7, 14, 30}

// DefaultCurveHorizon is the last day of the conversion curve.
const DefaultCurveHorizon = 30

// WindowStat holds conversion counts and rates for one window.
type WindowStat struct {
	Days               int
	AnyPaid            int
	AnyPaidRate        *float64
	MentorshipPaid     int
	MentorshipPaidRate *float64
}

// SummaryRow is windowed conversion for one cohort. Rates and medians
// are nil when the cohort is empty or no conversions exist.
type SummaryRow struct {
	Cohort                   string
	CohortSize               int
	Windows                  []WindowStat
	MedianDaysAnyPaid        *float64
	MedianDaysMentorshipPaid *float64
}

// CurvePoint is one day of the mentorship conversion curve. Rates are
// cumulative (at or before Day), so each cohort's curve is a
// non-decreasing step function.
type CurvePoint struct {
	Cohort                   string
	Day                      int
	MentorshipConversionRate float64
}

func inCohort(t TouchRecord, cohort string) bool {
	switch cohort {
	case "newcomer_A":
		return t.NewcomerA
	case "newcomer_B":
		return t.NewcomerB
	case "newcomer_C":
		return t.NewcomerC
	case "newcomer_strict":
		return t.NewcomerStrict
	}
	return false
}

// ConversionSummary computes the windowed conversion table. Every
// cohort appears, including empty ones (with nil rates).
func ConversionSummary(touches []TouchRecord, windows []int) []SummaryRow {
	if len(windows) == 0 {
		windows = DefaultWindows
	}

	rows := make([]SummaryRow, 0, len(CohortNames))
	for _, cohort := range CohortNames {
		var members []TouchRecord
		for _, t := range touches {
			if inCohort(t, cohort) {
				members = append(members, t)
			}
		}
		size := len(members)

		row := SummaryRow{Cohort: cohort, CohortSize: size}
		for _, w := range windows {
			stat := WindowStat{Days: w}
			for _, m := range members {
				if m.DaysToAnyPaid != nil && *m.DaysToAnyPaid <= w {
					stat.AnyPaid++
				}
				if m.DaysToMentorshipPaid != nil && *m.DaysToMentorshipPaid <= w {
					stat.MentorshipPaid++
				}
			}
			if size > 0 {
				stat.AnyPaidRate = ratePtr(stat.AnyPaid, size)
				stat.MentorshipPaidRate = ratePtr(stat.MentorshipPaid, size)
			}
			row.Windows = append(row.Windows, stat)
		}

		row.MedianDaysAnyPaid = medianDelta(members, func(t TouchRecord) *int { return t.DaysToAnyPaid })
		row.MedianDaysMentorshipPaid = medianDelta(members, func(t TouchRecord) *int { return t.DaysToMentorshipPaid })
		rows = append(rows, row)
	}
	return rows
}

// ConversionCurve computes the daily mentorship conversion curve from
// day 0 through horizon inclusive, per cohort. Empty cohorts emit no
// points.
func ConversionCurve(touches []TouchRecord, horizon int) []CurvePoint {
	if horizon <= 0 {
		horizon = DefaultCurveHorizon
	}

	var points []CurvePoint
	for _, cohort := range CohortNames {
		var members []TouchRecord
		for _, t := range touches {
			if inCohort(t, cohort) {
				members = append(members, t)
			}
		}
		if len(members) == 0 {
			continue
		}
		for day := 0; day <= horizon; day++ {
			converted := 0
			for _, m := range members {
				if m.DaysToMentorshipPaid != nil && *m.DaysToMentorshipPaid <= day {
					converted++
				}
			}
			points = append(points, CurvePoint{
				Cohort:                   cohort,
				Day:                      day,
				MentorshipConversionRate: float64(converted) / float64(len(members)),
			})
		}
	}
	return points
}

func ratePtr(num, den int) *float64 {
	r := float64(num) / float64(den)
	return &r
}

// medianDelta computes the median over non-nil deltas; nil when none.
func medianDelta(members []TouchRecord, pick func(TouchRecord) *int) *float64 {
	var vals []float64
	for _, m := range members {
		if d := pick(m); d != nil {
			vals = append(vals, float64(*d))
		}
	}
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	var med float64
	if len(vals)%2 == 1 {
		med = vals[mid]
	} else {
		med = (vals[mid-1] + vals[mid]) / 2
	}
	return &med
}

// SummaryTable flattens the conversion summary into an export table.
func SummaryTable(rows []SummaryRow) models.Table {
	t := models.Table{Name: "gateway_conversion_summary"}
	t.Columns = []string{"cohort", "cohort_size"}
	if len(rows) > 0 {
		for _, w := range rows[0].Windows {
			t.Columns = append(t.Columns,
				fmt.Sprintf("any_paid_%dd", w.Days),
				fmt.Sprintf("any_paid_%dd_rate", w.Days),
				fmt.Sprintf("mentorship_paid_%dd", w.Days),
				fmt.Sprintf("mentorship_paid_%dd_rate", w.Days),
			)
		}
	}
	t.Columns = append(t.Columns, "median_days_any_paid", "median_days_mentorship_paid")

	for _, r := range rows {
		row := []any{r.Cohort, r.CohortSize}
		for _, w := range r.Windows {
			row = append(row, w.AnyPaid, floatCell(w.AnyPaidRate), w.MentorshipPaid, floatCell(w.MentorshipPaidRate))
		}
		row = append(row, floatCell(r.MedianDaysAnyPaid), floatCell(r.MedianDaysMentorshipPaid))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CurveTable flattens the conversion curve into an export table.
func CurveTable(points []CurvePoint) models.Table {
	t := models.Table{
		Name:    "gateway_conversion_curve",
		Columns: []string{"cohort", "day", "mentorship_conversion_rate"},
	}
	for _, p := range points {
		t.Rows = append(t.Rows, []any{p.Cohort, p.Day, p.MentorshipConversionRate})
	}
	return t
}

// TouchTable flattens touch records into an export table.
func TouchTable(touches []TouchRecord) models.Table {
	t := models.Table{
		Name: "gateway_touch_attribution",
		Columns: []string{
			"user_id", "first_touch_time", "first_touch_type", "gateway_asset_name",
			"gateway_session_id", "gateway_session_title", "gateway_product_id", "gateway_product_title",
			"is_newcomer_A", "is_newcomer_B", "is_newcomer_C", "is_newcomer_strict",
			"days_to_any_paid", "days_to_mentorship_paid",
		},
	}
	for _, r := range touches {
		t.Rows = append(t.Rows, []any{
			r.UserID, r.FirstTouchTime, r.FirstTouchType, r.AssetName,
			strCell(r.GatewaySessionID), strCell(r.GatewaySessionTitle),
			strCell(r.GatewayProductID), strCell(r.GatewayProductTitle),
			r.NewcomerA, r.NewcomerB, r.NewcomerC, r.NewcomerStrict,
			intCell(r.DaysToAnyPaid), intCell(r.DaysToMentorshipPaid),
		})
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

func strCell(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
