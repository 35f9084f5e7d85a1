package engagement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlane/insights/pkg/models"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func tptr(t time.Time) *time.Time { return &t }

func TestAssignmentRates(t *testing.T) {
	modules := []models.Module{{ID: "m1", CourseID: "c1"}}
	assignments := []models.Assignment{
		{ID: "a1", ModuleID: "m1"},
		{ID: "a2", ModuleID: "m1"},
		{ID: "a3", ModuleID: "m1"},
		{ID: "a4", ModuleID: "m1"},
	}

	t.Run("Distinct submissions against distinct assignments", func(t *testing.T) {
		subs := []models.AssignmentSubmission{
			{ID: "s1", AssignmentID: "a1", StudentID: "u1"},
			{ID: "s2", AssignmentID: "a1", StudentID: "u1"}, // resubmission, still one
			{ID: "s3", AssignmentID: "a2", StudentID: "u1"},
		}
		rates := AssignmentRates(assignments, subs, modules)
		require.Len(t, rates, 1)
		assert.Equal(t, 2, rates[0].Submitted)
		assert.Equal(t, 4, rates[0].TotalAssignments)
		require.NotNil(t, rates[0].Rate)
		assert.InDelta(t, 0.5, *rates[0].Rate, 1e-9)
	})

	t.Run("Submission for unknown assignment keeps nil rate", func(t *testing.T) {
		subs := []models.AssignmentSubmission{{ID: "s1", AssignmentID: "ghost", StudentID: "u1"}}
		rates := AssignmentRates(assignments, subs, modules)
		require.Len(t, rates, 1)
		assert.Equal(t, "", rates[0].CourseID)
		assert.Nil(t, rates[0].Rate)
	})
}

func TestAttendanceRates(t *testing.T) {
	assigned := []models.SessionAssignment{
		{LiveSessionID: "s1", UserID: "u1"},
		{LiveSessionID: "s2", UserID: "u1"},
	}
	attendance := []models.SessionAttendance{
		{LiveSessionID: "s1", StudentID: "u1"},
	}

	rates := AttendanceRates(assigned, attendance)
	require.Len(t, rates, 1)
	assert.Equal(t, 2, rates[0].AssignedSessions)
	assert.Equal(t, 1, rates[0].AttendedSessions)
	require.NotNil(t, rates[0].Rate)
	assert.InDelta(t, 0.5, *rates[0].Rate, 1e-9)
}

func TestEnrollmentPairs(t *testing.T) {
	accesses := []models.ProductAccess{
		{UserID: "u1", ProductID: "p1"},
		{UserID: "u1", ProductID: "p1"}, // duplicate access
		{UserID: "u1", ProductID: "orphan"},
	}
	pairs := EnrollmentPairs(accesses, map[string]string{"p1": "c1"})
	require.Len(t, pairs, 2)
	assert.Equal(t, EnrollmentPair{UserID: "u1", CourseID: ""}, pairs[0])
	assert.Equal(t, EnrollmentPair{UserID: "u1", CourseID: "c1"}, pairs[1])
}

func buildOne(t *testing.T, assignRate, attendRate float64, lastLogin *time.Time) (CompletionRecord, AbscondedRecord) {
	t.Helper()
	enrollments := []EnrollmentPair{{UserID: "u1", CourseID: "c1"}}
	aRates := []AssignmentRate{{UserID: "u1", CourseID: "c1", Rate: &assignRate}}
	attRates := []AttendanceRate{{UserID: "u1", Rate: &attendRate}}
	var logins []models.LoginEvent
	if lastLogin != nil {
		logins = []models.LoginEvent{{UserID: "u1", Status: models.LoginSuccess, Timestamp: lastLogin}}
	}
	completion, absconded := BuildCompletion(enrollments, aRates, attRates, logins, asOf)
	require.Len(t, completion, 1)
	require.Len(t, absconded, 1)
	return completion[0], absconded[0]
}

func TestBuildCompletion(t *testing.T) {
	recent := asOf.Add(-24 * time.Hour)
	stale := asOf.Add(-31 * 24 * time.Hour)

	t.Run("Complete at exactly the threshold on both rates", func(t *testing.T) {
		c, a := buildOne(t, 0.7, 0.7, &recent)
		assert.True(t, c.IsComplete)
		assert.False(t, a.IsAbsconded)
	})

	t.Run("One rate below threshold is not complete", func(t *testing.T) {
		c, _ := buildOne(t, 0.7, 0.69, &recent)
		assert.False(t, c.IsComplete)
	})

	t.Run("Absconded needs both rates below threshold and inactivity", func(t *testing.T) {
		_, a := buildOne(t, 0.05, 0.05, &stale)
		assert.True(t, a.Inactive30)
		assert.True(t, a.IsAbsconded)
	})

	t.Run("Rate exactly at the abscond threshold is not absconded", func(t *testing.T) {
		_, a := buildOne(t, 0.1, 0.05, &stale)
		assert.False(t, a.IsAbsconded)
	})

	t.Run("Recent login blocks absconded", func(t *testing.T) {
		_, a := buildOne(t, 0.0, 0.0, &recent)
		assert.False(t, a.Inactive30)
		assert.False(t, a.IsAbsconded)
	})

	t.Run("No login at all counts as inactive", func(t *testing.T) {
		_, a := buildOne(t, 0.0, 0.0, nil)
		assert.True(t, a.Inactive30)
		assert.True(t, a.IsAbsconded)
		assert.Nil(t, a.LastLogin)
	})

	t.Run("Missing rates zero-fill", func(t *testing.T) {
		completion, absconded := BuildCompletion(
			[]EnrollmentPair{{UserID: "u9", CourseID: "c1"}}, nil, nil, nil, asOf)
		require.Len(t, completion, 1)
		assert.Equal(t, 0.0, completion[0].AssignmentCompletionRate)
		assert.Equal(t, 0.0, completion[0].AttendanceRate)
		assert.False(t, completion[0].IsComplete)
		assert.True(t, absconded[0].IsAbsconded)
	})

	t.Run("Flags never both hold", func(t *testing.T) {
		for _, rate := range []float64{0, 0.05, 0.1, 0.5, 0.7, 1} {
			c, a := buildOne(t, rate, rate, nil)
			assert.False(t, c.IsComplete && a.IsAbsconded, "rate %v", rate)
		}
	})
}

func TestThresholdBreakdown(t *testing.T) {
	completion := []CompletionRecord{
		{UserID: "u1", AssignmentCompletionRate: 0.9, AttendanceRate: 0.9, IsComplete: true},
		{UserID: "u2", AssignmentCompletionRate: 0.9, AttendanceRate: 0.2},
		{UserID: "u3", AssignmentCompletionRate: 0.1, AttendanceRate: 0.8},
		{UserID: "u4", AssignmentCompletionRate: 0.1, AttendanceRate: 0.1},
	}

	rows := ThresholdBreakdown(completion)
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[0].Users) // attendance
	assert.Equal(t, 2, rows[1].Users) // assignments
	assert.Equal(t, 1, rows[2].Users) // both
	require.NotNil(t, rows[2].Rate)
	assert.InDelta(t, 0.25, *rows[2].Rate, 1e-9)
}

func TestCourseRates(t *testing.T) {
	completion := []CompletionRecord{
		{UserID: "u1", CourseID: "c1", IsComplete: true},
		{UserID: "u2", CourseID: "c1", IsComplete: false},
		{UserID: "u3", CourseID: "c2", IsComplete: true},
	}
	rates := CompletionByCourse(completion)
	require.Len(t, rates, 2)
	assert.Equal(t, "c1", rates[0].CourseID)
	assert.InDelta(t, 0.5, rates[0].Rate, 1e-9)
	assert.Equal(t, 2, rates[0].Pairs)
	assert.InDelta(t, 1.0, rates[1].Rate, 1e-9)
}
