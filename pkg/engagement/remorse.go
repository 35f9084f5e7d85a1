package engagement

import (
	"sort"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// Behavioral windows after a payment, in days from paidAt. Both ends
// inclusive.
const (
	week1Start = 0
	week1End   = 7
	week4Start = 22
	week4End   = 28
)

// RemorseRow counts behavioral events in the first and fourth week
// after one succeeded payment. One row per payment event: a user with
// several payments gets several rows, each windowed from its own
// paidAt. Absent activity is zero, never null.
type RemorseRow struct {
	PaymentID        string
	UserID           string
	PaidAt           time.Time
	Week1Attendance  int
	Week4Attendance  int
	Week1Submissions int
	Week4Submissions int
	Week1Logins      int
	Week4Logins      int
}

// BehavioralDeltas computes post-payment engagement windows for every
// succeeded payment carrying a paid-at timestamp. Pending payments and
// payments with no usable timestamp are skipped.
func BehavioralDeltas(
	payments []models.Payment,
	attendance []models.SessionAttendance,
	submissions []models.AssignmentSubmission,
	logins []models.LoginEvent,
) []RemorseRow {
	attendanceTimes := map[string][]time.Time{}
	for _, a := range attendance {
		if a.AttendedAt != nil {
			attendanceTimes[a.StudentID] = append(attendanceTimes[a.StudentID], *a.AttendedAt)
		}
	}
	submissionTimes := map[string][]time.Time{}
	for _, s := range submissions {
		if s.SubmittedAt != nil {
			submissionTimes[s.StudentID] = append(submissionTimes[s.StudentID], *s.SubmittedAt)
		}
	}
	loginTimes := map[string][]time.Time{}
	for _, l := range logins {
		if l.Status == models.LoginSuccess && l.Timestamp != nil {
			loginTimes[l.UserID] = append(loginTimes[l.UserID], *l.Timestamp)
		}
	}

	var rows []RemorseRow
	for _, p := range payments {
		if p.Status != models.PaymentSucceeded || p.PaidAt == nil {
			continue
		}
		paidAt := *p.PaidAt
		rows = append(rows, RemorseRow{
			PaymentID:        p.ID,
			UserID:           p.UserID,
			PaidAt:           paidAt,
			Week1Attendance:  countInWindow(attendanceTimes[p.UserID], paidAt, week1Start, week1End),
			Week4Attendance:  countInWindow(attendanceTimes[p.UserID], paidAt, week4Start, week4End),
			Week1Submissions: countInWindow(submissionTimes[p.UserID], paidAt, week1Start, week1End),
			Week4Submissions: countInWindow(submissionTimes[p.UserID], paidAt, week4Start, week4End),
			Week1Logins:      countInWindow(loginTimes[p.UserID], paidAt, week1Start, week1End),
			Week4Logins:      countInWindow(loginTimes[p.UserID], paidAt, week4Start, week4End),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].PaidAt.Equal(rows[j].PaidAt) {
			return rows[i].PaidAt.Before(rows[j].PaidAt)
		}
		return rows[i].PaymentID < rows[j].PaymentID
	})
	return rows
}

// countInWindow counts events in [anchor+startDays, anchor+endDays],
// inclusive on both ends.
func countInWindow(events []time.Time, anchor time.Time, startDays, endDays int) int {
	start := anchor.Add(time.Duration(startDays) * 24 * time.Hour)
	end := anchor.Add(time.Duration(endDays) * 24 * time.Hour)
	count := 0
	for _, e := range events {
		if !e.Before(start) && !e.After(end) {
			count++
		}
	}
	return count
}
