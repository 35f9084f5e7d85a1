package attribution

import (
	"sort"
	"time"

	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/models"
)

// AssetConversionRow reports 14-day mentorship conversion per gateway
// asset (session or product title), over strict newcomers only.
type AssetConversionRow struct {
	AssetType        string
	AssetName        string
	Touches          int
	MentorshipConv14 int
	ConversionRate14 *float64
}

// AssetConversion groups strict-newcomer touches by the asset that
// produced them and reports 14-day mentorship conversion per asset.
func AssetConversion(touches []TouchRecord) []AssetConversionRow {
	type key struct{ assetType, name string }
	counts := map[key]*AssetConversionRow{}

	for _, t := range touches {
		if !t.NewcomerStrict {
			continue
		}
		var name string
		switch t.FirstTouchType {
		case TouchSession:
			if t.GatewaySessionTitle != nil {
				name = *t.GatewaySessionTitle
			}
		case TouchProduct:
			if t.GatewayProductTitle != nil {
				name = *t.GatewayProductTitle
			}
		}
		k := key{t.FirstTouchType, name}
		row, ok := counts[k]
		if !ok {
			row = &AssetConversionRow{AssetType: t.FirstTouchType, AssetName: name}
			counts[k] = row
		}
		row.Touches++
		if t.DaysToMentorshipPaid != nil && *t.DaysToMentorshipPaid <= 14 {
			row.MentorshipConv14++
		}
	}

	rows := make([]AssetConversionRow, 0, len(counts))
	for _, row := range counts {
		if row.Touches > 0 {
			row.ConversionRate14 = ratePtr(row.MentorshipConv14, row.Touches)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AssetType != rows[j].AssetType {
			return rows[i].AssetType < rows[j].AssetType
		}
		return rows[i].AssetName < rows[j].AssetName
	})
	return rows
}

// SessionMixRow summarizes the audience composition of one gateway
// session: how full it was, how many first-ever attendees it drew, and
// the split between existing mentorship customers and strict newcomers
// at the time they attended.
type SessionMixRow struct {
	SessionID          string
	Title              string
	ScheduledAt        *time.Time
	AssignedCount      int
	AttendedCount      int
	JoinRate           *float64
	NewFaceRate        *float64
	ExistingMentorRate *float64
	NewcomerStrictRate *float64
}

// SessionMixInputs bundles the relations the session-mix table needs.
type SessionMixInputs struct {
	Sessions        []classify.SessionFlag
	Assigned        []models.SessionAssignment
	Attendance      []models.SessionAttendance
	Payments        []models.Payment
	Products        []classify.ProductFlag
	ProductAccesses []models.ProductAccess
}

// SessionMix computes the session-mix table over gateway sessions,
// ordered by session id.
func SessionMix(in SessionMixInputs) []SessionMixRow {
	productByID := make(map[string]classify.ProductFlag, len(in.Products))
	for _, p := range in.Products {
		productByID[p.ProductID] = p
	}

	assignedUsers := map[string]map[string]bool{}
	for _, a := range in.Assigned {
		set, ok := assignedUsers[a.LiveSessionID]
		if !ok {
			set = map[string]bool{}
			assignedUsers[a.LiveSessionID] = set
		}
		set[a.UserID] = true
	}

	attendedUsers := map[string]map[string]bool{}
	for _, a := range in.Attendance {
		set, ok := attendedUsers[a.LiveSessionID]
		if !ok {
			set = map[string]bool{}
			attendedUsers[a.LiveSessionID] = set
		}
		set[a.StudentID] = true
	}

	// First-ever attendance per student, over all sessions.
	firstAttendance := map[string]time.Time{}
	for _, a := range in.Attendance {
		if a.AttendedAt == nil {
			continue
		}
		if cur, ok := firstAttendance[a.StudentID]; !ok || a.AttendedAt.Before(cur) {
			firstAttendance[a.StudentID] = *a.AttendedAt
		}
	}
	newFaces := map[string]int{}
	for _, a := range in.Attendance {
		if a.AttendedAt == nil {
			continue
		}
		if first, ok := firstAttendance[a.StudentID]; ok && a.AttendedAt.Equal(first) {
			newFaces[a.LiveSessionID]++
		}
	}

	firstPayment := firstSucceededPayment(in.Payments, productByID, anyProduct)
	firstMentorship := firstSucceededPayment(in.Payments, productByID, mentorshipOnly)
	firstAccess := map[string]time.Time{}
	for _, a := range in.ProductAccesses {
		at := a.AccessTime()
		if at == nil {
			continue
		}
		if cur, ok := firstAccess[a.UserID]; !ok || at.Before(cur) {
			firstAccess[a.UserID] = *at
		}
	}

	gateway := map[string]classify.SessionFlag{}
	for _, s := range in.Sessions {
		if s.IsGateway {
			gateway[s.SessionID] = s
		}
	}

	// Per gateway session, classify each attendance row against its own
	// attendance time.
	type mixCounts struct {
		existingMentor int
		newcomerStrict int
		attendees      map[string]bool
	}
	mix := map[string]*mixCounts{}
	for _, a := range in.Attendance {
		if _, ok := gateway[a.LiveSessionID]; !ok {
			continue
		}
		m, ok := mix[a.LiveSessionID]
		if !ok {
			m = &mixCounts{attendees: map[string]bool{}}
			mix[a.LiveSessionID] = m
		}
		m.attendees[a.StudentID] = true
		if a.AttendedAt == nil {
			// Without an attendance time the row can only be a strict
			// newcomer when all three signals are absent entirely.
			if _, ok := firstPayment[a.StudentID]; ok {
				continue
			}
			if _, ok := firstMentorship[a.StudentID]; ok {
				continue
			}
			if _, ok := firstAccess[a.StudentID]; ok {
				continue
			}
			m.newcomerStrict++
			continue
		}
		at := *a.AttendedAt
		if t, ok := firstMentorship[a.StudentID]; ok && t.Before(at) {
			m.existingMentor++
		}
		if nilOrNotBefore(firstPayment, a.StudentID, at) &&
			nilOrNotBefore(firstMentorship, a.StudentID, at) &&
			nilOrNotBefore(firstAccess, a.StudentID, at) {
			m.newcomerStrict++
		}
	}

	rows := make([]SessionMixRow, 0, len(gateway))
	for id, s := range gateway {
		row := SessionMixRow{
			SessionID:     id,
			Title:         s.Title,
			ScheduledAt:   s.ScheduledAt,
			AssignedCount: len(assignedUsers[id]),
			AttendedCount: len(attendedUsers[id]),
		}
		if row.AssignedCount > 0 {
			row.JoinRate = ratePtr(row.AttendedCount, row.AssignedCount)
		}
		if row.AttendedCount > 0 {
			row.NewFaceRate = ratePtr(newFaces[id], row.AttendedCount)
		}
		if m, ok := mix[id]; ok && len(m.attendees) > 0 {
			row.ExistingMentorRate = ratePtr(m.existingMentor, len(m.attendees))
			row.NewcomerStrictRate = ratePtr(m.newcomerStrict, len(m.attendees))
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SessionID < rows[j].SessionID })
	return rows
}

// AssetTable flattens asset conversion into an export table.
func AssetTable(rows []AssetConversionRow) models.Table {
	t := models.Table{
		Name:    "gateway_asset_conversion",
		Columns: []string{"asset_type", "asset_name", "touches", "mentorship_converted_14d", "conversion_rate_14d"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.AssetType, r.AssetName, r.Touches, r.MentorshipConv14, floatCell(r.ConversionRate14)})
	}
	return t
}

// SessionMixTable flattens the session mix into an export table.
func SessionMixTable(rows []SessionMixRow) models.Table {
	t := models.Table{
		Name: "gateway_session_mix",
		Columns: []string{
			"live_session_id", "session_title", "scheduled_at",
			"assigned_count", "attended_count", "join_rate",
			"new_face_rate", "existing_mentor_rate", "newcomer_strict_rate",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.SessionID, r.Title, r.ScheduledAt,
			r.AssignedCount, r.AttendedCount, floatCell(r.JoinRate),
			floatCell(r.NewFaceRate), floatCell(r.ExistingMentorRate), floatCell(r.NewcomerStrictRate),
		})
	}
	return t
}
