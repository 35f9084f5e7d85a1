// Package ops builds operational health tables: data gaps between the
// payment and enrollment relations, payment-exception timelines and
// the lag between an intake submission and the first sale.
package ops

import (
	"sort"
	"strings"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// GapRow is one class of mismatch between relations.
type GapRow struct {
	GapType   string
	UserCount int
	Notes     string
}

// GapReport cross-checks succeeded payments against product accesses
// and flags enrolled users without a recent successful login. asOf is
// the run-wide maximum observed timestamp.
func GapReport(accesses []models.ProductAccess, payments []models.Payment, logins []models.LoginEvent, asOf time.Time) []GapRow {
	type pair struct{ userID, productID string }

	paid := map[pair]bool{}
	for _, p := range payments {
		if p.Status == models.PaymentSucceeded {
			paid[pair{p.UserID, p.ProductID}] = true
		}
	}
	enrolled := map[pair]bool{}
	for _, a := range accesses {
		enrolled[pair{a.UserID, a.ProductID}] = true
	}

	paidNotAssigned := map[string]bool{}
	for k := range paid {
		if !enrolled[k] {
			paidNotAssigned[k.userID] = true
		}
	}
	assignedNotPaid := map[string]bool{}
	for k := range enrolled {
		if !paid[k] {
			assignedNotPaid[k.userID] = true
		}
	}

	lastLogin := map[string]time.Time{}
	for _, l := range logins {
		if l.Status != models.LoginSuccess || l.Timestamp == nil {
			continue
		}
		if prev, ok := lastLogin[l.UserID]; !ok || l.Timestamp.After(prev) {
			lastLogin[l.UserID] = *l.Timestamp
		}
	}
	cutoff := asOf.Add(-30 * 24 * time.Hour)
	staleAccess := map[string]bool{}
	for _, a := range accesses {
		if last, ok := lastLogin[a.UserID]; ok && last.Before(cutoff) {
			staleAccess[a.UserID] = true
		}
	}

	return []GapRow{
		{GapType: "paid_not_assigned", UserCount: len(paidNotAssigned), Notes: "Succeeded payment without enrollment record"},
		{GapType: "assigned_not_paid", UserCount: len(assignedNotPaid), Notes: "Enrollment without a succeeded payment"},
		{GapType: "active_access_no_recent_login", UserCount: len(staleAccess), Notes: "Enrollment with no login in last 30 days"},
	}
}

// ExceptionSummaryRow aggregates exception durations per reason.
type ExceptionSummaryRow struct {
	Reason     string
	Count      int
	MeanDays   *float64
	MedianDays *float64
}

// ExceptionDurations groups payment exceptions by reason. Blank
// reasons collapse into "Unknown"; exceptions missing either bound
// still count but contribute no duration.
func ExceptionDurations(exceptions []models.PaymentException) []ExceptionSummaryRow {
	durations := map[string][]float64{}
	counts := map[string]int{}
	for _, e := range exceptions {
		reason := strings.TrimSpace(e.Reason)
		if reason == "" {
			reason = "Unknown"
		}
		counts[reason]++
		if e.StartDate != nil && e.EndDate != nil {
			days := float64(wholeDays(e.EndDate.Sub(*e.StartDate)))
			durations[reason] = append(durations[reason], days)
		}
	}

	rows := make([]ExceptionSummaryRow, 0, len(counts))
	for reason, n := range counts {
		row := ExceptionSummaryRow{Reason: reason, Count: n}
		if ds := durations[reason]; len(ds) > 0 {
			mean := meanOf(ds)
			median := medianOf(ds)
			row.MeanDays = &mean
			row.MedianDays = &median
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Reason < rows[j].Reason })
	return rows
}

// TimelineRow is one bounded payment exception, ordered by start.
type TimelineRow struct {
	ID           string
	UserID       string
	Reason       string
	StartDate    time.Time
	EndDate      time.Time
	DurationDays int
}

// ExceptionTimeline lists exceptions with both bounds present, sorted
// by start date.
func ExceptionTimeline(exceptions []models.PaymentException) []TimelineRow {
	rows := make([]TimelineRow, 0, len(exceptions))
	for _, e := range exceptions {
		if e.StartDate == nil || e.EndDate == nil {
			continue
		}
		rows = append(rows, TimelineRow{
			ID:           e.ID,
			UserID:       e.UserID,
			Reason:       e.Reason,
			StartDate:    *e.StartDate,
			EndDate:      *e.EndDate,
			DurationDays: wholeDays(e.EndDate.Sub(*e.StartDate)),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].StartDate.Equal(rows[j].StartDate) {
			return rows[i].StartDate.Before(rows[j].StartDate)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// SalesLead is the slice of an intake submission that sales-lag needs.
type SalesLead struct {
	SubmissionID string
	Email        string
	SubmittedAt  *time.Time
}

// SalesLagRow ties one intake submission to the submitter's first sale.
type SalesLagRow struct {
	SubmissionID string
	Email        string
	SubmittedAt  *time.Time
	PaidAt       *time.Time
	Amount       *float64
	SalesLagDays *int
}

// SalesLag joins leads to users by email and measures whole days from
// submission to the user's first succeeded payment. Leads without a
// matching user or sale keep nil payment fields.
func SalesLag(leadRows []SalesLead, users []models.User, payments []models.Payment) []SalesLagRow {
	userByEmail := map[string]string{}
	for _, u := range users {
		email := strings.ToLower(strings.TrimSpace(u.Email))
		if email == "" {
			continue
		}
		if _, ok := userByEmail[email]; !ok {
			userByEmail[email] = u.ID
		}
	}

	type firstSale struct {
		paidAt time.Time
		amount float64
	}
	firstByUser := map[string]firstSale{}
	for _, p := range payments {
		if p.Status != models.PaymentSucceeded || p.PaidAt == nil {
			continue
		}
		if prev, ok := firstByUser[p.UserID]; !ok || p.PaidAt.Before(prev.paidAt) {
			firstByUser[p.UserID] = firstSale{paidAt: *p.PaidAt, amount: p.Amount}
		}
	}

	rows := make([]SalesLagRow, 0, len(leadRows))
	for _, lead := range leadRows {
		row := SalesLagRow{SubmissionID: lead.SubmissionID, Email: lead.Email, SubmittedAt: lead.SubmittedAt}
		userID, ok := userByEmail[strings.ToLower(strings.TrimSpace(lead.Email))]
		if ok {
			if sale, sold := firstByUser[userID]; sold {
				paidAt := sale.paidAt
				amount := sale.amount
				row.PaidAt = &paidAt
				row.Amount = &amount
				if lead.SubmittedAt != nil {
					lag := wholeDays(paidAt.Sub(*lead.SubmittedAt))
					row.SalesLagDays = &lag
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// wholeDays floors a duration to whole days, matching integer floor
// division for negative spans.
func wholeDays(d time.Duration) int {
	day := 24 * time.Hour
	n := int(d / day)
	if d%day < 0 {
		n--
	}
	return n
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func medianOf(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
