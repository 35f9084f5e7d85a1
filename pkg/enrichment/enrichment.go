// Package enrichment extracts structured skill-gap data from parsed
// leads with a chat-completion model. Responses are cached in Redis so
// reruns only pay for new submissions.
package enrichment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/time/rate"

	"github.com/mentorlane/insights/pkg/cache"
	"github.com/mentorlane/insights/pkg/leads"
	"github.com/mentorlane/insights/pkg/logger"
)

// Row statuses.
const (
	StatusOK           = "ok"
	StatusFailed       = "llm_failed"
	StatusSkippedNoKey = "llm_skipped_no_key"
)

// ChatClient is the completion surface the enricher needs.
type ChatClient interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// SkillGapRow is the structured extraction for one lead.
type SkillGapRow struct {
	SubmissionID       string   `json:"submissionId"`
	Email              string   `json:"email"`
	CareerGoalCategory string   `json:"career_goal_category"`
	TargetRoleCategory string   `json:"target_role_category"`
	Skills             []string `json:"skills_list"`
	SkillsGap          []string `json:"skills_gap_list"`
	Status             string   `json:"status"`
}

// Options bounds the enrichment run.
type Options struct {
	MaxRows   int
	RateEvery time.Duration
	CacheTTL  time.Duration
}

// Enricher drives skill-gap extraction over a lead batch.
type Enricher struct {
	client  ChatClient
	cache   *cache.Client
	limiter *rate.Limiter
	opts    Options
	log     logger.Logger
}

// New builds an enricher. client may be nil, in which case every row
// is marked skipped. cache may be nil to disable caching.
func New(client ChatClient, c *cache.Client, opts Options, log logger.Logger) *Enricher {
	if opts.MaxRows <= 0 {
		opts.MaxRows = 200
	}
	if opts.RateEvery <= 0 {
		opts.RateEvery = time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logger.Default()
	}
	return &Enricher{
		client:  client,
		cache:   c,
		limiter: rate.NewLimiter(rate.Every(opts.RateEvery), 1),
		opts:    opts,
		log:     log,
	}
}

var jsonBlock = regexp.MustCompile(`(?s)\{.*\}`)

// EnrichLeads runs extraction over at most MaxRows leads, in input
// order. Individual failures never abort the batch.
func (e *Enricher) EnrichLeads(ctx context.Context, leadRows []leads.Lead) []SkillGapRow {
	rows := make([]SkillGapRow, 0, len(leadRows))
	limit := e.opts.MaxRows
	for i, lead := range leadRows {
		row := SkillGapRow{SubmissionID: lead.SubmissionID, Email: lead.Email}
		switch {
		case e.client == nil:
			row.Status = StatusSkippedNoKey
		case i >= limit:
			row.Status = StatusSkippedNoKey
		default:
			e.enrichOne(ctx, lead, &row)
		}
		rows = append(rows, row)
	}
	return rows
}

func (e *Enricher) enrichOne(ctx context.Context, lead leads.Lead, row *SkillGapRow) {
	key := e.cacheKey(lead)
	if e.cache != nil {
		if cached, err := e.cache.Get(ctx, key); err == nil && cached != "" {
			if json.Unmarshal([]byte(cached), row) == nil {
				row.SubmissionID = lead.SubmissionID
				row.Email = lead.Email
				return
			}
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		row.Status = StatusFailed
		return
	}

	content, err := e.client.Chat(ctx, buildPrompt(lead))
	if err != nil {
		e.log.Warn("skill-gap extraction failed", "submission_id", lead.SubmissionID, "error", err)
		row.Status = StatusFailed
		return
	}

	parsed := extractJSON(content)
	if parsed == nil {
		row.Status = StatusFailed
		return
	}
	row.CareerGoalCategory = parsed.CareerGoalCategory
	row.TargetRoleCategory = parsed.TargetRoleCategory
	row.Skills = parsed.Skills
	row.SkillsGap = parsed.SkillsGap
	row.Status = StatusOK

	if e.cache != nil {
		if blob, err := json.Marshal(row); err == nil {
			if err := e.cache.Set(ctx, key, string(blob), e.opts.CacheTTL); err != nil {
				e.log.Warn("skill-gap cache write failed", "key", key, "error", err)
			}
		}
	}
}

func buildPrompt(lead leads.Lead) string {
	return fmt.Sprintf(
		"You are extracting structured data from a mentorship intake form. "+
			"Return ONLY valid JSON with keys: career_goal_category, target_role_category, "+
			"skills_list, skills_gap_list.\n\n"+
			"Career goal: %s\nTarget role: %s\nCurrent skills: %s\n",
		lead.CareerGoal, lead.TargetRole, lead.CurrentSkills,
	)
}

type extraction struct {
	CareerGoalCategory string   `json:"career_goal_category"`
	TargetRoleCategory string   `json:"target_role_category"`
	Skills             []string `json:"skills_list"`
	SkillsGap          []string `json:"skills_gap_list"`
}

// extractJSON pulls the first JSON object out of a model response,
// tolerating prose around it.
func extractJSON(content string) *extraction {
	block := jsonBlock.FindString(content)
	if block == "" {
		return nil
	}
	var parsed extraction
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return nil
	}
	return &parsed
}

func (e *Enricher) cacheKey(lead leads.Lead) string {
	sum := sha256.Sum256([]byte(lead.CareerGoal + "\x00" + lead.TargetRole + "\x00" + lead.CurrentSkills))
	return "skillgap:" + hex.EncodeToString(sum[:])
}
