// Package leads parses raw intake-form submissions into structured
// lead rows with keyword intent tags.
package leads

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"golang.org/x/text/unicode/norm"

	"github.com/mentorlane/insights/pkg/models"
)

// IntentKeywords maps intent tags to the phrases that trigger them in
// the submission's free text.
var IntentKeywords = map[string][]string{
	"career_consultation":  {"consult", "consultation", "career guidance", "career advice"},
	"mentorship":           {"mentorship", "mentor", "coaching"},
	"course":               {"course", "class", "training", "bootcamp", "program"},
	"interview_prep":       {"interview", "mock interview", "interview prep"},
	"resume_cv":            {"resume", "cv", "portfolio"},
	"job_search":           {"job", "role", "apply", "application", "hiring"},
	"certification":        {"certification", "certificate", "certified"},
	"cybersecurity":        {"cyber", "security", "soc", "siem"},
	"data_science":         {"data science", "data scientist", "machine learning", "ml"},
	"data_analytics":       {"data analyst", "data analytics", "analytics", "bi"},
	"cloud":                {"aws", "azure", "gcp", "cloud"},
	"devops":               {"devops", "kubernetes", "docker", "ci/cd"},
	"software_engineering": {"software", "developer", "programming", "full stack", "backend", "frontend"},
	"product_management":   {"product manager", "product management", "pm"},
	"project_management":   {"project management", "scrum", "agile", "pmp"},
	"ui_ux":                {"ux", "ui", "design"},
}

var (
	yesWords = []string{"yes", "yep", "yeah", "y"}
	noWords  = []string{"no", "nope", "nah", "n"}
)

// Lead is one parsed intake submission.
type Lead struct {
	SubmissionID   string
	SubmittedAt    *time.Time
	FormID         string
	FormTitle      string
	Email          string
	FirstName      string
	LastName       string
	Phone          string
	IntentRaw      string
	RoleInterest   string
	TimeInvestment string
	CurrentSkills  string
	TargetRole     string
	CareerGoal     string
	IntentTags     []string
	IntentCategory string
}

// normalizeText lowercases, trims and NFKC-normalizes free text so
// keyword matching survives width and ligature variants.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// ParseYesNo classifies a free-text answer as "yes", "no" or
// "unknown". Matching is by substring, yes words first.
func ParseYesNo(s string) string {
	val := normalizeText(s)
	if val == "" {
		return "unknown"
	}
	for _, w := range yesWords {
		if strings.Contains(val, w) {
			return "yes"
		}
	}
	for _, w := range noWords {
		if strings.Contains(val, w) {
			return "no"
		}
	}
	return "unknown"
}

// ParseTimeInvestment buckets a weekly-hours answer. The largest
// number found in the text wins.
func ParseTimeInvestment(s string) string {
	val := normalizeText(s)
	if val == "" {
		return "time_unknown"
	}
	hours := -1
	current := 0
	inDigits := false
	for _, r := range val {
		if unicode.IsDigit(r) {
			current = current*10 + int(r-'0')
			inDigits = true
			continue
		}
		if inDigits && current > hours {
			hours = current
		}
		current = 0
		inDigits = false
	}
	if inDigits && current > hours {
		hours = current
	}
	if hours < 0 {
		if strings.Contains(val, "20+") || strings.Contains(val, "20 +") {
			return "time_20_plus"
		}
		return "time_unknown"
	}
	switch {
	case hours >= 20:
		return "time_20_plus"
	case hours >= 10:
		return "time_10_19"
	default:
		return "time_lt_10"
	}
}

// submissionPayload is the JSON shape of a form submission's data blob.
type submissionPayload struct {
	ContactInfo map[string]any `json:"contactInfo"`
	Sections    []struct {
		Fields map[string]any `json:"fields"`
	} `json:"sections"`
}

// Parse decodes every submission's JSON payload into a Lead. Rows with
// malformed payloads are skipped. Phone numbers are rendered in E.164
// using defaultRegion when the raw value parses.
func Parse(submissions []models.FormSubmission, forms []models.Form, defaultRegion string) []Lead {
	titleByForm := make(map[string]string, len(forms))
	for _, f := range forms {
		titleByForm[f.ID] = f.Title
	}

	var out []Lead
	for _, sub := range submissions {
		var payload submissionPayload
		if err := json.Unmarshal([]byte(sub.Data), &payload); err != nil {
			continue
		}

		fields := map[string]string{}
		for _, section := range payload.Sections {
			for k, v := range section.Fields {
				if s, ok := v.(string); ok {
					fields[k] = s
				}
			}
		}

		lead := Lead{
			SubmissionID: sub.ID,
			SubmittedAt:  sub.SubmittedAt,
			FormID:       sub.FormID,
			FormTitle:    titleByForm[sub.FormID],
			Email:        contactString(payload.ContactInfo, "email"),
			FirstName:    contactString(payload.ContactInfo, "firstname"),
			LastName:     contactString(payload.ContactInfo, "lastname"),
			Phone:        formatPhone(contactString(payload.ContactInfo, "yourwhatsappnumber"), defaultRegion),
		}

		var transition, research, readiness string
		for k, v := range fields {
			key := strings.ToLower(k)
			if strings.Contains(key, "precisely") && strings.Contains(key, "today") {
				lead.IntentRaw = v
			}
			if strings.Contains(key, "specific it roles") {
				lead.RoleInterest = v
			}
			if strings.Contains(key, "how much time") {
				lead.TimeInvestment = v
			}
			if strings.Contains(key, "transitioning") {
				transition = v
			}
			if strings.Contains(key, "researched job opportunities") {
				research = v
			}
			if strings.Contains(key, "financially and mentally prepared") {
				readiness = v
			}
			if strings.Contains(key, "current skills") || strings.Contains(key, "technical and soft skills") {
				lead.CurrentSkills = v
			}
			if strings.Contains(key, "top 3 dream roles") || strings.Contains(key, "career path") {
				lead.TargetRole = v
			}
			if strings.Contains(key, "ultimate career goal") {
				lead.CareerGoal = v
			}
		}

		var allText []string
		for _, v := range fields {
			allText = append(allText, v)
		}
		for _, extra := range []string{lead.IntentRaw, lead.RoleInterest, lead.TimeInvestment} {
			if extra != "" {
				allText = append(allText, extra)
			}
		}

		lead.IntentTags = intentTags(strings.Join(allText, " "), lead.IntentRaw, lead.RoleInterest, lead.TimeInvestment, transition, research, readiness)
		lead.IntentCategory = intentCategory(lead.IntentRaw)
		out = append(out, lead)
	}
	return out
}

// intentTags collects every tag triggered by the submission, sorted.
func intentTags(allText, intentRaw, roleInterest, timeInvestment, transition, research, readiness string) []string {
	text := normalizeText(allText)
	tags := map[string]bool{}

	for tag, keywords := range IntentKeywords {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				tags[tag] = true
				break
			}
		}
	}

	intentVal := normalizeText(intentRaw)
	if strings.Contains(intentVal, "consult") {
		tags["career_consultation"] = true
	}
	if strings.Contains(intentVal, "mentor") {
		tags["mentorship"] = true
	}
	if strings.Contains(intentVal, "course") {
		tags["course"] = true
	}
	if strings.Contains(intentVal, "interview") {
		tags["interview_prep"] = true
	}

	switch ParseYesNo(transition) {
	case "yes":
		tags["transitioning"] = true
	case "no":
		tags["not_transitioning"] = true
	}
	switch ParseYesNo(research) {
	case "yes":
		tags["researched_market"] = true
	case "no":
		tags["not_researched_market"] = true
	}
	switch ParseYesNo(readiness) {
	case "yes":
		tags["ready_committed"] = true
	case "no":
		tags["not_ready_committed"] = true
	}

	tags[ParseTimeInvestment(timeInvestment)] = true

	roleVal := normalizeText(roleInterest)
	if roleVal != "" {
		if strings.Contains(roleVal, "data science") || strings.Contains(roleVal, "data scientist") {
			tags["data_science"] = true
		}
		if strings.Contains(roleVal, "cyber") || strings.Contains(roleVal, "security") {
			tags["cybersecurity"] = true
		}
		if strings.Contains(roleVal, "cloud") || strings.Contains(roleVal, "aws") || strings.Contains(roleVal, "azure") {
			tags["cloud"] = true
		}
	}

	out := make([]string, 0, len(tags))
	for tag := range tags {
		if tag != "" {
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}

func intentCategory(intentRaw string) string {
	val := normalizeText(intentRaw)
	switch {
	case strings.Contains(val, "course"):
		return "Course"
	case strings.Contains(val, "interview"):
		return "Interview Prep"
	case strings.Contains(val, "mentor"):
		return "Mentorship"
	case strings.Contains(val, "consult"):
		return "Career Consultation"
	default:
		return "Other/Unknown"
	}
}

func contactString(contact map[string]any, key string) string {
	if contact == nil {
		return ""
	}
	if s, ok := contact[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// formatPhone renders a raw phone answer in E.164, returning the raw
// string when it does not parse as a number for the region.
func formatPhone(raw, defaultRegion string) string {
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}
