package attribution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/models"
)

func ts(day, hour int) *time.Time {
	t := time.Date(2025, 1, day, hour, 0, 0, 0, time.UTC)
	return &t
}

func gatewaySession(id, title string) classify.SessionFlag {
	return classify.SessionFlag{SessionID: id, Title: title, IsGateway: true}
}

func TestBuildTouches(t *testing.T) {
	sessions := []classify.SessionFlag{
		gatewaySession("s1", "Info Session"),
		{SessionID: "s2", Title: "Cohort Deep Dive", IsGateway: false},
	}
	products := []classify.ProductFlag{
		{ProductID: "gw", Title: "Interview Prep", IsGateway: true},
		{ProductID: "mentor", Title: "Mentorship Program", IsMentorship: true},
	}

	t.Run("Session touch only", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)}},
		})
		require.Len(t, touches, 1)
		rec := touches[0]
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, TouchSession, rec.FirstTouchType)
		assert.Equal(t, "Info Session", rec.AssetName)
		assert.True(t, rec.NewcomerA)
		assert.True(t, rec.NewcomerB)
		assert.True(t, rec.NewcomerC)
		assert.True(t, rec.NewcomerStrict)
		assert.Nil(t, rec.DaysToAnyPaid)
		assert.Nil(t, rec.DaysToMentorshipPaid)
	})

	t.Run("Tie between session and product resolves to session", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)}},
			Payments: []models.Payment{
				{ID: "pay1", UserID: "u1", ProductID: "gw", Status: models.PaymentSucceeded, PaidAt: ts(5, 10)},
			},
		})
		require.Len(t, touches, 1)
		assert.Equal(t, TouchSession, touches[0].FirstTouchType)
		require.NotNil(t, touches[0].GatewayProductID)
		assert.Equal(t, "gw", *touches[0].GatewayProductID)
	})

	t.Run("Earlier product purchase wins", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)}},
			Payments: []models.Payment{
				{ID: "pay1", UserID: "u1", ProductID: "gw", Status: models.PaymentSucceeded, PaidAt: ts(3, 9)},
			},
		})
		require.Len(t, touches, 1)
		assert.Equal(t, TouchProduct, touches[0].FirstTouchType)
		assert.Equal(t, "Interview Prep", touches[0].AssetName)
	})

	t.Run("Non-gateway attendance produces no touch", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s2", StudentID: "u1", AttendedAt: ts(5, 10)}},
		})
		assert.Empty(t, touches)
	})

	t.Run("Prior payment clears newcomer A but not B or C", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(10, 10)}},
			Payments: []models.Payment{
				{ID: "pay1", UserID: "u1", ProductID: "other", Status: models.PaymentSucceeded, PaidAt: ts(2, 9)},
			},
		})
		require.Len(t, touches, 1)
		rec := touches[0]
		assert.False(t, rec.NewcomerA)
		assert.True(t, rec.NewcomerB)
		assert.True(t, rec.NewcomerC)
		assert.False(t, rec.NewcomerStrict)
	})

	t.Run("Signal exactly at touch time keeps newcomer status", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(10, 10)}},
			ProductAccesses: []models.ProductAccess{
				{UserID: "u1", ProductID: "mentor", StartDate: ts(10, 10)},
			},
		})
		require.Len(t, touches, 1)
		assert.True(t, touches[0].NewcomerC)
		assert.True(t, touches[0].NewcomerStrict)
	})

	t.Run("Conversion must be strictly after the touch", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)}},
			Payments: []models.Payment{
				{ID: "pay1", UserID: "u1", ProductID: "mentor", Status: models.PaymentSucceeded, PaidAt: ts(5, 10)},
			},
		})
		require.Len(t, touches, 1)
		assert.Nil(t, touches[0].DaysToAnyPaid)
		assert.Nil(t, touches[0].DaysToMentorshipPaid)
	})

	t.Run("Whole-day deltas floor partial days", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)}},
			Payments: []models.Payment{
				// 2 days 6 hours later: floors to 2.
				{ID: "pay1", UserID: "u1", ProductID: "mentor", Status: models.PaymentSucceeded, PaidAt: ts(7, 16)},
			},
		})
		require.Len(t, touches, 1)
		require.NotNil(t, touches[0].DaysToAnyPaid)
		assert.Equal(t, 2, *touches[0].DaysToAnyPaid)
		require.NotNil(t, touches[0].DaysToMentorshipPaid)
		assert.Equal(t, 2, *touches[0].DaysToMentorshipPaid)
	})

	t.Run("Pending payments never count", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions:   sessions,
			Products:   products,
			Attendance: []models.SessionAttendance{{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)}},
			Payments: []models.Payment{
				{ID: "pay1", UserID: "u1", ProductID: "mentor", Status: models.PaymentPending, PaidAt: ts(8, 10)},
			},
		})
		require.Len(t, touches, 1)
		assert.Nil(t, touches[0].DaysToAnyPaid)
		assert.True(t, touches[0].NewcomerStrict)
	})

	t.Run("Records ordered by user id", func(t *testing.T) {
		touches := BuildTouches(Inputs{
			Sessions: sessions,
			Products: products,
			Attendance: []models.SessionAttendance{
				{LiveSessionID: "s1", StudentID: "u2", AttendedAt: ts(6, 10)},
				{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(5, 10)},
			},
		})
		require.Len(t, touches, 2)
		assert.Equal(t, "u1", touches[0].UserID)
		assert.Equal(t, "u2", touches[1].UserID)
	})
}

func TestAssetConversion(t *testing.T) {
	title := "Info Session"
	conv := 3
	far := 20
	touches := []TouchRecord{
		{UserID: "u1", FirstTouchType: TouchSession, GatewaySessionTitle: &title, NewcomerStrict: true, DaysToMentorshipPaid: &conv},
		{UserID: "u2", FirstTouchType: TouchSession, GatewaySessionTitle: &title, NewcomerStrict: true, DaysToMentorshipPaid: &far},
		{UserID: "u3", FirstTouchType: TouchSession, GatewaySessionTitle: &title, NewcomerStrict: false, DaysToMentorshipPaid: &conv},
	}

	rows := AssetConversion(touches)
	require.Len(t, rows, 1)
	// Non-strict touches are excluded; only u1 converts within 14 days.
	assert.Equal(t, 2, rows[0].Touches)
	assert.Equal(t, 1, rows[0].MentorshipConv14)
	require.NotNil(t, rows[0].ConversionRate14)
	assert.InDelta(t, 0.5, *rows[0].ConversionRate14, 1e-9)
}

func TestSessionMix(t *testing.T) {
	sessions := []classify.SessionFlag{
		gatewaySession("s1", "Open Day"),
		{SessionID: "s2", Title: "Cohort Only", IsGateway: false},
	}
	products := []classify.ProductFlag{
		{ProductID: "mentor", Title: "Mentorship", IsMentorship: true},
	}

	rows := SessionMix(SessionMixInputs{
		Sessions: sessions,
		Assigned: []models.SessionAssignment{
			{LiveSessionID: "s1", UserID: "u1"},
			{LiveSessionID: "s1", UserID: "u2"},
		},
		Attendance: []models.SessionAttendance{
			{LiveSessionID: "s1", StudentID: "u1", AttendedAt: ts(10, 10)},
			{LiveSessionID: "s1", StudentID: "u2", AttendedAt: ts(10, 10)},
		},
		Payments: []models.Payment{
			// u2 bought mentorship before attending.
			{ID: "pay1", UserID: "u2", ProductID: "mentor", Status: models.PaymentSucceeded, PaidAt: ts(2, 9)},
		},
		Products: products,
	})

	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, "s1", row.SessionID)
	assert.Equal(t, 2, row.AssignedCount)
	assert.Equal(t, 2, row.AttendedCount)
	require.NotNil(t, row.JoinRate)
	assert.InDelta(t, 1.0, *row.JoinRate, 1e-9)
	require.NotNil(t, row.ExistingMentorRate)
	assert.InDelta(t, 0.5, *row.ExistingMentorRate, 1e-9)
	require.NotNil(t, row.NewcomerStrictRate)
	assert.InDelta(t, 0.5, *row.NewcomerStrictRate, 1e-9)
}
