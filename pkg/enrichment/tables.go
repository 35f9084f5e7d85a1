package enrichment

import (
	"strings"

	"github.com/mentorlane/insights/pkg/models"
)

// SkillGapTable flattens enrichment rows, joining lists with
// semicolons.
func SkillGapTable(rows []SkillGapRow) models.Table {
	t := models.Table{
		Name: "leads_skill_gap",
		Columns: []string{
			"submission_id", "email", "career_goal_category",
			"target_role_category", "skills", "skills_gap", "status",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.SubmissionID, r.Email, r.CareerGoalCategory,
			r.TargetRoleCategory, strings.Join(r.Skills, ";"), strings.Join(r.SkillsGap, ";"), r.Status,
		})
	}
	return t
}
