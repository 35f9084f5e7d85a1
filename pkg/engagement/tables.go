package engagement

import "github.com/mentorlane/insights/pkg/models"

// CompletionTable flattens completion records into an export table.
func CompletionTable(records []CompletionRecord) models.Table {
	t := models.Table{
		Name:    "completion_detail",
		Columns: []string{"user_id", "course_id", "assignment_completion_rate", "attendance_rate", "is_complete"},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []any{r.UserID, r.CourseID, r.AssignmentCompletionRate, r.AttendanceRate, r.IsComplete})
	}
	return t
}

// AbscondedTable flattens absconded records into an export table.
func AbscondedTable(records []AbscondedRecord) models.Table {
	t := models.Table{
		Name:    "absconded_detail",
		Columns: []string{"user_id", "course_id", "assignment_completion_rate", "attendance_rate", "last_login", "inactive_30d", "is_absconded"},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []any{r.UserID, r.CourseID, r.AssignmentCompletionRate, r.AttendanceRate, r.LastLogin, r.Inactive30, r.IsAbsconded})
	}
	return t
}

// ThresholdTable flattens the completion-threshold breakdown.
func ThresholdTable(rows []ThresholdRow) models.Table {
	t := models.Table{
		Name:    "completion_threshold_breakdown",
		Columns: []string{"metric", "users", "rate"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Metric, r.Users, floatCell(r.Rate)})
	}
	return t
}

// RemorseTable flattens buyer's-remorse windows into an export table.
func RemorseTable(rows []RemorseRow) models.Table {
	t := models.Table{
		Name: "buyers_remorse_windows",
		Columns: []string{
			"payment_id", "user_id", "paid_at",
			"week1_attendance", "week4_attendance",
			"week1_submissions", "week4_submissions",
			"week1_logins", "week4_logins",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.PaymentID, r.UserID, r.PaidAt,
			r.Week1Attendance, r.Week4Attendance,
			r.Week1Submissions, r.Week4Submissions,
			r.Week1Logins, r.Week4Logins,
		})
	}
	return t
}

// AttendanceTable flattens per-user attendance rates.
func AttendanceTable(rates []AttendanceRate) models.Table {
	t := models.Table{
		Name:    "user_attendance",
		Columns: []string{"user_id", "assigned_sessions", "attended_sessions", "attendance_rate"},
	}
	for _, r := range rates {
		t.Rows = append(t.Rows, []any{r.UserID, r.AssignedSessions, r.AttendedSessions, floatCell(r.Rate)})
	}
	return t
}

// SessionSummaryTable flattens per-session summaries.
func SessionSummaryTable(rows []SessionSummary) models.Table {
	t := models.Table{
		Name: "session_summary",
		Columns: []string{
			"live_session_id", "session_title", "scheduled_at", "created_by_id", "is_gateway_session",
			"assigned_count", "attended_count", "join_rate", "new_faces", "new_face_rate",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.SessionID, r.Title, r.ScheduledAt, r.CreatedByID, r.IsGateway,
			r.AssignedCount, r.AttendedCount, floatCell(r.JoinRate), r.NewFaces, floatCell(r.NewFaceRate),
		})
	}
	return t
}

// InstructorTable flattens instructor performance.
func InstructorTable(rows []InstructorRow) models.Table {
	t := models.Table{
		Name:    "instructor_performance",
		Columns: []string{"created_by_id", "sessions", "assigned", "attended", "avg_join_rate"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.CreatedByID, r.Sessions, r.Assigned, r.Attended, floatCell(r.AvgJoinRate)})
	}
	return t
}

// AgreementTable flattens agreement compliance.
func AgreementTable(rows []AgreementComplianceRow) models.Table {
	t := models.Table{
		Name:    "agreement_compliance",
		Columns: []string{"assignment_id", "count", "mean_hours", "median_hours"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.AssignmentID, r.Count, r.MeanHours, r.MedianHours})
	}
	return t
}

// CourseRateTable flattens a per-course rate rollup under the given
// table name and rate column.
func CourseRateTable(name, rateColumn string, rows []CourseRate) models.Table {
	t := models.Table{
		Name:    name,
		Columns: []string{"course_id", rateColumn, "pairs"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.CourseID, r.Rate, r.Pairs})
	}
	return t
}

func floatCell(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
