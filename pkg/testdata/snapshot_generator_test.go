package testdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlane/insights/pkg/leads"
)

var anchor = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	cfg := DefaultSnapshotConfig(anchor)
	snap := NewGenerator(cfg).Generate()

	t.Run("Success - cohort sizes match config", func(t *testing.T) {
		assert.Len(t, snap.Users, cfg.Students+cfg.Admins)
		assert.Len(t, snap.Courses, cfg.Courses)
		assert.Len(t, snap.LiveSessions, cfg.LiveSessions)
		assert.Len(t, snap.Products, cfg.Products)
		assert.Len(t, snap.FormSubmissions, cfg.Leads)
		assert.NotEmpty(t, snap.SessionAttendance)
		assert.NotEmpty(t, snap.Payments)
	})

	t.Run("Success - referential integrity", func(t *testing.T) {
		users := map[string]bool{}
		for _, u := range snap.Users {
			users[u.ID] = true
		}
		products := map[string]bool{}
		for _, p := range snap.Products {
			products[p.ID] = true
		}
		for _, p := range snap.Payments {
			assert.True(t, users[p.UserID], p.UserID)
			assert.True(t, products[p.ProductID], p.ProductID)
			require.NotNil(t, p.PaidAt)
			assert.False(t, p.PaidAt.After(anchor))
		}
		for _, a := range snap.ProductAccesses {
			assert.True(t, users[a.UserID], a.UserID)
			assert.True(t, products[a.ProductID], a.ProductID)
		}
	})

	t.Run("Success - students only buy", func(t *testing.T) {
		students := snap.StudentIDs()
		for _, p := range snap.Payments {
			assert.True(t, students[p.UserID], p.UserID)
		}
	})

	t.Run("Success - submissions parse as leads", func(t *testing.T) {
		rows := leads.Parse(snap.FormSubmissions, snap.Forms, "US")
		require.Len(t, rows, cfg.Leads)
		assert.Equal(t, "Career Intake", rows[0].FormTitle)
		assert.NotEmpty(t, rows[0].Email)
		assert.NotEmpty(t, rows[0].IntentTags)
	})
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultSnapshotConfig(anchor)
	a := NewGenerator(cfg).Generate()
	b := NewGenerator(cfg).Generate()

	assert.Equal(t, len(a.Payments), len(b.Payments))
	require.NotEmpty(t, a.Payments)
	assert.Equal(t, a.Payments[0], b.Payments[0])
	assert.Equal(t, a.Users[3].Email, b.Users[3].Email)
}
