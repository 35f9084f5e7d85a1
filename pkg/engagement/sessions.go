package engagement

import (
	"sort"
	"time"

	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/models"
)

// SessionSummary is per-session fill and new-face counts across all
// sessions, gateway or not.
type SessionSummary struct {
	SessionID     string
	Title         string
	ScheduledAt   *time.Time
	CreatedByID   string
	IsGateway     bool
	AssignedCount int
	AttendedCount int
	JoinRate      *float64
	NewFaces      int
	NewFaceRate   *float64
}

// SessionSummaries computes assigned/attended counts, join rates and
// first-ever-attendance counts per session.
func SessionSummaries(sessions []classify.SessionFlag, assigned []models.SessionAssignment, attendance []models.SessionAttendance) []SessionSummary {
	assignedPer := map[string]map[string]bool{}
	for _, a := range assigned {
		set, ok := assignedPer[a.LiveSessionID]
		if !ok {
			set = map[string]bool{}
			assignedPer[a.LiveSessionID] = set
		}
		set[a.UserID] = true
	}
	attendedPer := map[string]map[string]bool{}
	for _, a := range attendance {
		set, ok := attendedPer[a.LiveSessionID]
		if !ok {
			set = map[string]bool{}
			attendedPer[a.LiveSessionID] = set
		}
		set[a.StudentID] = true
	}

	firstAttendance := map[string]time.Time{}
	for _, a := range attendance {
		if a.AttendedAt == nil {
			continue
		}
		if cur, ok := firstAttendance[a.StudentID]; !ok || a.AttendedAt.Before(cur) {
			firstAttendance[a.StudentID] = *a.AttendedAt
		}
	}
	newFaces := map[string]int{}
	for _, a := range attendance {
		if a.AttendedAt == nil {
			continue
		}
		if first, ok := firstAttendance[a.StudentID]; ok && a.AttendedAt.Equal(first) {
			newFaces[a.LiveSessionID]++
		}
	}

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		row := SessionSummary{
			SessionID:     s.SessionID,
			Title:         s.Title,
			ScheduledAt:   s.ScheduledAt,
			CreatedByID:   s.CreatedByID,
			IsGateway:     s.IsGateway,
			AssignedCount: len(assignedPer[s.SessionID]),
			AttendedCount: len(attendedPer[s.SessionID]),
			NewFaces:      newFaces[s.SessionID],
		}
		if row.AssignedCount > 0 {
			r := float64(row.AttendedCount) / float64(row.AssignedCount)
			row.JoinRate = &r
		}
		if row.AttendedCount > 0 {
			r := float64(row.NewFaces) / float64(row.AttendedCount)
			row.NewFaceRate = &r
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// InstructorRow aggregates session performance by session creator.
type InstructorRow struct {
	CreatedByID string
	Sessions    int
	Assigned    int
	Attended    int
	AvgJoinRate *float64
}

// InstructorPerformance rolls session summaries up by instructor. The
// average join rate ignores sessions with no assignments (their rate
// is unknown).
func InstructorPerformance(summaries []SessionSummary) []InstructorRow {
	type agg struct {
		sessions, assigned, attended int
		rateSum                      float64
		rated                        int
	}
	perInstructor := map[string]*agg{}
	for _, s := range summaries {
		a, ok := perInstructor[s.CreatedByID]
		if !ok {
			a = &agg{}
			perInstructor[s.CreatedByID] = a
		}
		a.sessions++
		a.assigned += s.AssignedCount
		a.attended += s.AttendedCount
		if s.JoinRate != nil {
			a.rateSum += *s.JoinRate
			a.rated++
		}
	}

	rows := make([]InstructorRow, 0, len(perInstructor))
	for id, a := range perInstructor {
		row := InstructorRow{
			CreatedByID: id,
			Sessions:    a.sessions,
			Assigned:    a.assigned,
			Attended:    a.attended,
		}
		if a.rated > 0 {
			r := a.rateSum / float64(a.rated)
			row.AvgJoinRate = &r
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedByID < rows[j].CreatedByID })
	return rows
}

// AgreementComplianceRow summarizes how quickly students agree to an
// assignment after it is published.
type AgreementComplianceRow struct {
	AssignmentID string
	Count        int
	MeanHours    float64
	MedianHours  float64
}

// AgreementCompliance computes hours from assignment publication
// (publishedAt falling back to createdAt) to each student agreement,
// aggregated per assignment. Rows lacking either timestamp are
// dropped.
func AgreementCompliance(assignments []models.Assignment, agreements []models.AssignmentAgreement) []AgreementComplianceRow {
	publishedAt := make(map[string]*time.Time, len(assignments))
	for _, a := range assignments {
		publishedAt[a.ID] = a.EffectivePublishedAt()
	}

	hoursPer := map[string][]float64{}
	for _, ag := range agreements {
		pub, known := publishedAt[ag.AssignmentID]
		if !known || pub == nil || ag.AgreedAt == nil {
			continue
		}
		hoursPer[ag.AssignmentID] = append(hoursPer[ag.AssignmentID], ag.AgreedAt.Sub(*pub).Hours())
	}

	rows := make([]AgreementComplianceRow, 0, len(hoursPer))
	for id, hours := range hoursPer {
		sort.Float64s(hours)
		var sum float64
		for _, h := range hours {
			sum += h
		}
		mid := len(hours) / 2
		median := hours[mid]
		if len(hours)%2 == 0 {
			median = (hours[mid-1] + hours[mid]) / 2
		}
		rows = append(rows, AgreementComplianceRow{
			AssignmentID: id,
			Count:        len(hours),
			MeanHours:    sum / float64(len(hours)),
			MedianHours:  median,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AssignmentID < rows[j].AssignmentID })
	return rows
}
