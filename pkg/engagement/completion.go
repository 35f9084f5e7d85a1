// Package engagement scores per-user course engagement: assignment
// completion, session attendance, completion and absconded flags, and
// post-payment behavioral windows.
package engagement

import (
	"sort"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// Completion thresholds. A pair is complete when both rates reach
// CompleteThreshold and absconded when both fall below
// AbscondThreshold with no recent login; the gap between the two means
// the flags can never both hold for the same row.
const (
	CompleteThreshold = 0.7
	AbscondThreshold  = 0.1

	// InactivityWindow is how far back from the as-of time a successful
	// login still counts as recent.
	InactivityWindow = 30 * 24 * time.Hour
)

// AssignmentRate is the per (user, course) assignment completion rate.
// Rate is nil when the course has no assignments on record: without a
// denominator the rate is unknown, not zero.
type AssignmentRate struct {
	UserID           string
	CourseID         string
	Submitted        int
	TotalAssignments int
	Rate             *float64
}

// AssignmentRates computes distinct submitted assignments per (user,
// course) against distinct assignments per course. Only users with at
// least one submission appear; enrollment-level zero-filling happens in
// BuildCompletion.
func AssignmentRates(assignments []models.Assignment, submissions []models.AssignmentSubmission, modules []models.Module) []AssignmentRate {
	courseByModule := make(map[string]string, len(modules))
	for _, m := range modules {
		courseByModule[m.ID] = m.CourseID
	}
	courseByAssignment := make(map[string]string, len(assignments))
	perCourse := map[string]map[string]bool{}
	for _, a := range assignments {
		courseID := courseByModule[a.ModuleID]
		courseByAssignment[a.ID] = courseID
		set, ok := perCourse[courseID]
		if !ok {
			set = map[string]bool{}
			perCourse[courseID] = set
		}
		set[a.ID] = true
	}

	type key struct{ userID, courseID string }
	submitted := map[key]map[string]bool{}
	for _, s := range submissions {
		courseID, known := courseByAssignment[s.AssignmentID]
		if !known {
			// Submission for an assignment outside the snapshot; keep it
			// under the empty course like an unmatched left join would.
			courseID = ""
		}
		k := key{s.StudentID, courseID}
		set, ok := submitted[k]
		if !ok {
			set = map[string]bool{}
			submitted[k] = set
		}
		set[s.AssignmentID] = true
	}

	rates := make([]AssignmentRate, 0, len(submitted))
	for k, set := range submitted {
		r := AssignmentRate{
			UserID:           k.userID,
			CourseID:         k.courseID,
			Submitted:        len(set),
			TotalAssignments: len(perCourse[k.courseID]),
		}
		if r.TotalAssignments > 0 {
			rate := float64(r.Submitted) / float64(r.TotalAssignments)
			r.Rate = &rate
		}
		rates = append(rates, r)
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].UserID != rates[j].UserID {
			return rates[i].UserID < rates[j].UserID
		}
		return rates[i].CourseID < rates[j].CourseID
	})
	return rates
}

// AttendanceRate is the per-user session attendance rate over assigned
// sessions. Rate is nil when the user has no assigned sessions.
type AttendanceRate struct {
	UserID           string
	AssignedSessions int
	AttendedSessions int
	Rate             *float64
}

// AttendanceRates computes distinct attended vs assigned sessions per
// user. Only users with at least one assigned session appear.
func AttendanceRates(assigned []models.SessionAssignment, attendance []models.SessionAttendance) []AttendanceRate {
	assignedPer := map[string]map[string]bool{}
	for _, a := range assigned {
		set, ok := assignedPer[a.UserID]
		if !ok {
			set = map[string]bool{}
			assignedPer[a.UserID] = set
		}
		set[a.LiveSessionID] = true
	}
	attendedPer := map[string]map[string]bool{}
	for _, a := range attendance {
		set, ok := attendedPer[a.StudentID]
		if !ok {
			set = map[string]bool{}
			attendedPer[a.StudentID] = set
		}
		set[a.LiveSessionID] = true
	}

	rates := make([]AttendanceRate, 0, len(assignedPer))
	for userID, assignedSet := range assignedPer {
		r := AttendanceRate{
			UserID:           userID,
			AssignedSessions: len(assignedSet),
			AttendedSessions: len(attendedPer[userID]),
		}
		if r.AssignedSessions > 0 {
			rate := float64(r.AttendedSessions) / float64(r.AssignedSessions)
			r.Rate = &rate
		}
		rates = append(rates, r)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].UserID < rates[j].UserID })
	return rates
}

// EnrollmentPair is one (user, course) enrollment derived from product
// accesses and the product-to-course map.
type EnrollmentPair struct {
	UserID   string
	CourseID string
}

// EnrollmentPairs derives distinct (user, course) pairs from product
// accesses. Accesses to products granting no course map to the empty
// course id, mirroring an unmatched left join.
func EnrollmentPairs(accesses []models.ProductAccess, courseByProduct map[string]string) []EnrollmentPair {
	seen := map[EnrollmentPair]bool{}
	var pairs []EnrollmentPair
	for _, a := range accesses {
		p := EnrollmentPair{UserID: a.UserID, CourseID: courseByProduct[a.ProductID]}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].UserID != pairs[j].UserID {
			return pairs[i].UserID < pairs[j].UserID
		}
		return pairs[i].CourseID < pairs[j].CourseID
	})
	return pairs
}

// CompletionRecord flags one enrollment as complete. Rates here are
// zero-filled: an enrollment with no recorded activity is zero
// engagement, not unknown.
type CompletionRecord struct {
	UserID                   string
	CourseID                 string
	AssignmentCompletionRate float64
	AttendanceRate           float64
	IsComplete               bool
}

// AbscondedRecord flags one enrollment as absconded: minimal engagement
// on both rates and no successful login inside the inactivity window
// before the as-of time.
type AbscondedRecord struct {
	UserID                   string
	CourseID                 string
	AssignmentCompletionRate float64
	AttendanceRate           float64
	LastLogin                *time.Time
	Inactive30               bool
	IsAbsconded              bool
}

// BuildCompletion joins enrollments with assignment and attendance
// rates and evaluates both flags against asOf (the run-wide maximum
// observed timestamp, never the wall clock).
func BuildCompletion(
	enrollments []EnrollmentPair,
	assignmentRates []AssignmentRate,
	attendanceRates []AttendanceRate,
	logins []models.LoginEvent,
	asOf time.Time,
) ([]CompletionRecord, []AbscondedRecord) {
	type key struct{ userID, courseID string }
	assignRate := make(map[key]float64, len(assignmentRates))
	for _, r := range assignmentRates {
		if r.Rate != nil {
			assignRate[key{r.UserID, r.CourseID}] = *r.Rate
		}
	}
	attendRate := make(map[string]float64, len(attendanceRates))
	for _, r := range attendanceRates {
		if r.Rate != nil {
			attendRate[r.UserID] = *r.Rate
		}
	}

	lastLogin := map[string]time.Time{}
	for _, l := range logins {
		if l.Status != models.LoginSuccess || l.Timestamp == nil {
			continue
		}
		if cur, ok := lastLogin[l.UserID]; !ok || l.Timestamp.After(cur) {
			lastLogin[l.UserID] = *l.Timestamp
		}
	}
	cutoff := asOf.Add(-InactivityWindow)

	completion := make([]CompletionRecord, 0, len(enrollments))
	absconded := make([]AbscondedRecord, 0, len(enrollments))
	for _, e := range enrollments {
		ar := assignRate[key{e.UserID, e.CourseID}]
		att := attendRate[e.UserID]

		completion = append(completion, CompletionRecord{
			UserID:                   e.UserID,
			CourseID:                 e.CourseID,
			AssignmentCompletionRate: ar,
			AttendanceRate:           att,
			IsComplete:               ar >= CompleteThreshold && att >= CompleteThreshold,
		})

		rec := AbscondedRecord{
			UserID:                   e.UserID,
			CourseID:                 e.CourseID,
			AssignmentCompletionRate: ar,
			AttendanceRate:           att,
		}
		if t, ok := lastLogin[e.UserID]; ok {
			lt := t
			rec.LastLogin = &lt
			rec.Inactive30 = t.Before(cutoff)
		} else {
			rec.Inactive30 = true
		}
		rec.IsAbsconded = ar < AbscondThreshold && att < AbscondThreshold && rec.Inactive30
		absconded = append(absconded, rec)
	}
	return completion, absconded
}

// ThresholdRow is one line of the completion-threshold breakdown,
// explaining how many enrollments meet each threshold separately vs
// combined.
type ThresholdRow struct {
	Metric string
	Users  int
	Rate   *float64
}

// ThresholdBreakdown contextualizes strict completion: counts and
// rates of enrollments meeting the attendance threshold, the
// assignments threshold, and both.
func ThresholdBreakdown(completion []CompletionRecord) []ThresholdRow {
	var att, asg, both int
	for _, c := range completion {
		meetsAtt := c.AttendanceRate >= CompleteThreshold
		meetsAsg := c.AssignmentCompletionRate >= CompleteThreshold
		if meetsAtt {
			att++
		}
		if meetsAsg {
			asg++
		}
		if meetsAtt && meetsAsg {
			both++
		}
	}
	total := len(completion)
	mk := func(metric string, users int) ThresholdRow {
		row := ThresholdRow{Metric: metric, Users: users}
		if total > 0 {
			r := float64(users) / float64(total)
			row.Rate = &r
		}
		return row
	}
	return []ThresholdRow{
		mk("Meet attendance >=70%", att),
		mk("Meet assignments >=70%", asg),
		mk("Meet both (strict completion)", both),
	}
}

// CourseRate is a per-course mean of a boolean flag.
type CourseRate struct {
	CourseID string
	Rate     float64
	Pairs    int
}

// CompletionByCourse averages IsComplete per course.
func CompletionByCourse(completion []CompletionRecord) []CourseRate {
	return courseMean(func(yield func(courseID string, flag bool)) {
		for _, c := range completion {
			yield(c.CourseID, c.IsComplete)
		}
	})
}

// AbscondedByCourse averages IsAbsconded per course.
func AbscondedByCourse(absconded []AbscondedRecord) []CourseRate {
	return courseMean(func(yield func(courseID string, flag bool)) {
		for _, a := range absconded {
			yield(a.CourseID, a.IsAbsconded)
		}
	})
}

func courseMean(iter func(yield func(courseID string, flag bool))) []CourseRate {
	type agg struct{ hits, total int }
	perCourse := map[string]*agg{}
	iter(func(courseID string, flag bool) {
		a, ok := perCourse[courseID]
		if !ok {
			a = &agg{}
			perCourse[courseID] = a
		}
		a.total++
		if flag {
			a.hits++
		}
	})

	rates := make([]CourseRate, 0, len(perCourse))
	for courseID, a := range perCourse {
		rates = append(rates, CourseRate{
			CourseID: courseID,
			Rate:     float64(a.hits) / float64(a.total),
			Pairs:    a.total,
		})
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].CourseID < rates[j].CourseID })
	return rates
}
