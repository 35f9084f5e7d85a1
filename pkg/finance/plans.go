package finance

import (
	"strings"

	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/models"
)

// Spend threshold separating high from low investors.
const investmentSpendQuantile = 0.75

// PlanEngagementRow compares submission activity of installment buyers
// against upfront buyers.
type PlanEngagementRow struct {
	OnInstallment  bool
	Users          int
	AvgSubmissions float64
}

// installmentTags resolves, per (user, product), whether any purchase
// evidence points at an installment plan: a payment with more than one
// installment, any payment commitment, or a custom product sold as
// "split". Rows missing either id are dropped.
func installmentTags(payments []models.Payment, commitments []models.PaymentCommitment, customProducts []models.CustomProduct) map[[2]string]bool {
	tags := map[[2]string]bool{}
	mark := func(userID, productID string, installment bool) {
		if userID == "" || productID == "" {
			return
		}
		key := [2]string{userID, productID}
		tags[key] = tags[key] || installment
	}

	for _, p := range payments {
		mark(p.UserID, p.ProductID, p.TotalInstallments != nil && *p.TotalInstallments > 1)
	}
	for _, c := range commitments {
		mark(c.UserID, c.ProductID, true)
	}
	for _, c := range customProducts {
		mark(c.UserID, c.ProductID, strings.EqualFold(c.PaymentType, "split"))
	}
	return tags
}

// submissionCounts counts distinct submissions per student.
func submissionCounts(submissions []models.AssignmentSubmission) map[string]int {
	perUser := map[string]map[string]bool{}
	for _, s := range submissions {
		if perUser[s.StudentID] == nil {
			perUser[s.StudentID] = map[string]bool{}
		}
		perUser[s.StudentID][s.ID] = true
	}
	counts := make(map[string]int, len(perUser))
	for user, ids := range perUser {
		counts[user] = len(ids)
	}
	return counts
}

// PlanEngagement splits (user, product) purchases by installment
// evidence and averages distinct submission counts per side. Users
// absent from the submissions relation count as zero, and a user
// buying one product upfront and another on a plan lands on both
// sides.
func PlanEngagement(payments []models.Payment, commitments []models.PaymentCommitment, customProducts []models.CustomProduct, submissions []models.AssignmentSubmission) []PlanEngagementRow {
	tags := installmentTags(payments, commitments, customProducts)
	counts := submissionCounts(submissions)

	type agg struct {
		rows   int
		subSum float64
		users  map[string]bool
	}
	sides := map[bool]*agg{
		false: {users: map[string]bool{}},
		true:  {users: map[string]bool{}},
	}
	for key, installment := range tags {
		a := sides[installment]
		a.rows++
		a.subSum += float64(counts[key[0]])
		a.users[key[0]] = true
	}

	var out []PlanEngagementRow
	for _, side := range []bool{false, true} {
		a := sides[side]
		if a.rows == 0 {
			continue
		}
		out = append(out, PlanEngagementRow{
			OnInstallment:  side,
			Users:          len(a.users),
			AvgSubmissions: a.subSum / float64(a.rows),
		})
	}
	return out
}

// InvestmentTierRow groups users by whether their total succeeded
// spend clears the per-run spend quantile.
type InvestmentTierRow struct {
	Tier           string
	Users          int
	AvgSubmissions float64
	AvgSpend       float64
}

// InvestmentVsEngagement sums each user's succeeded payments, splits
// high from low at the 75th percentile of the observed spend
// distribution (inclusive on the high side) and reports average
// distinct submissions and average spend per tier. No succeeded
// payments means no rows.
func InvestmentVsEngagement(payments []models.Payment, submissions []models.AssignmentSubmission) []InvestmentTierRow {
	spend := map[string]float64{}
	for _, p := range payments {
		if p.Status == models.PaymentSucceeded {
			spend[p.UserID] += p.Amount
		}
	}
	if len(spend) == 0 {
		return nil
	}

	amounts := make([]float64, 0, len(spend))
	for _, amount := range spend {
		amounts = append(amounts, amount)
	}
	threshold := classify.Quantile(amounts, investmentSpendQuantile)

	counts := submissionCounts(submissions)

	type agg struct {
		users            int
		subSum, spendSum float64
	}
	tiers := map[string]*agg{}
	for user, amount := range spend {
		tier := "low"
		if amount >= threshold {
			tier = "high"
		}
		a, ok := tiers[tier]
		if !ok {
			a = &agg{}
			tiers[tier] = a
		}
		a.users++
		a.subSum += float64(counts[user])
		a.spendSum += amount
	}

	var out []InvestmentTierRow
	for _, tier := range []string{"high", "low"} {
		a, ok := tiers[tier]
		if !ok {
			continue
		}
		out = append(out, InvestmentTierRow{
			Tier:           tier,
			Users:          a.users,
			AvgSubmissions: a.subSum / float64(a.users),
			AvgSpend:       a.spendSum / float64(a.users),
		})
	}
	return out
}
