package leads

import (
	"sort"
	"strings"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// LeadTable flattens parsed leads, joining tags with semicolons.
func LeadTable(rows []Lead) models.Table {
	t := models.Table{
		Name: "leads_intake",
		Columns: []string{
			"submission_id", "submitted_at", "form_id", "form_title",
			"email", "first_name", "last_name", "phone",
			"intent_raw", "role_interest", "time_investment",
			"current_skills", "target_role", "career_goal",
			"intent_tags", "intent_category",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.SubmissionID, timeCell(r.SubmittedAt), r.FormID, r.FormTitle,
			r.Email, r.FirstName, r.LastName, r.Phone,
			r.IntentRaw, r.RoleInterest, r.TimeInvestment,
			r.CurrentSkills, r.TargetRole, r.CareerGoal,
			strings.Join(r.IntentTags, ";"), r.IntentCategory,
		})
	}
	return t
}

// TagBreakdownRow counts leads per intent tag.
type TagBreakdownRow struct {
	Tag   string
	Leads int
}

// TagBreakdown counts how many leads carry each intent tag.
func TagBreakdown(rows []Lead) []TagBreakdownRow {
	counts := map[string]int{}
	for _, r := range rows {
		for _, tag := range r.IntentTags {
			counts[tag]++
		}
	}
	out := make([]TagBreakdownRow, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagBreakdownRow{Tag: tag, Leads: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Leads != out[j].Leads {
			return out[i].Leads > out[j].Leads
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// TagTable flattens the intent-tag breakdown.
func TagTable(rows []TagBreakdownRow) models.Table {
	t := models.Table{
		Name:    "leads_intent_tags",
		Columns: []string{"tag", "leads"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Tag, r.Leads})
	}
	return t
}

func timeCell(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
