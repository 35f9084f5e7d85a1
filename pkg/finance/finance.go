// Package finance derives revenue, delinquency and payment-plan tables
// from the payment relations.
package finance

import (
	"math"
	"sort"
	"time"

	"github.com/mentorlane/insights/pkg/classify"
	"github.com/mentorlane/insights/pkg/models"
)

// monthStart truncates a timestamp to the first instant of its month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StatusByMonthRow counts distinct payments per (month, status).
type StatusByMonthRow struct {
	Month  time.Time
	Status string
	Count  int
}

// StatusByMonth groups payments by creation month and status. Payments
// lacking a creation timestamp are dropped.
func StatusByMonth(payments []models.Payment) []StatusByMonthRow {
	type key struct {
		month  time.Time
		status string
	}
	counts := map[key]map[string]bool{}
	for _, p := range payments {
		if p.CreatedAt == nil {
			continue
		}
		k := key{monthStart(*p.CreatedAt), p.Status}
		set, ok := counts[k]
		if !ok {
			set = map[string]bool{}
			counts[k] = set
		}
		set[p.ID] = true
	}

	rows := make([]StatusByMonthRow, 0, len(counts))
	for k, set := range counts {
		rows = append(rows, StatusByMonthRow{Month: k.month, Status: k.status, Count: len(set)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Month.Equal(rows[j].Month) {
			return rows[i].Month.Before(rows[j].Month)
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// RevenueByMonthRow sums succeeded payment amounts per creation month.
type RevenueByMonthRow struct {
	Month  time.Time
	Amount float64
}

// RevenueByMonth sums succeeded payments by creation month.
func RevenueByMonth(payments []models.Payment) []RevenueByMonthRow {
	sums := map[time.Time]float64{}
	for _, p := range payments {
		if p.Status != models.PaymentSucceeded || p.CreatedAt == nil {
			continue
		}
		sums[monthStart(*p.CreatedAt)] += p.Amount
	}
	rows := make([]RevenueByMonthRow, 0, len(sums))
	for m, amount := range sums {
		rows = append(rows, RevenueByMonthRow{Month: m, Amount: amount})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month.Before(rows[j].Month) })
	return rows
}

// DelinquencyRow counts overdue-capable payments per status.
type DelinquencyRow struct {
	Status  string
	Count   int
	Overdue int
}

// Delinquency counts pending and not-paid payments carrying a due
// date, and how many of those are past due as of asOf.
func Delinquency(payments []models.Payment, asOf time.Time) []DelinquencyRow {
	type agg struct {
		ids     map[string]bool
		overdue int
	}
	perStatus := map[string]*agg{}
	for _, p := range payments {
		if p.DueDate == nil {
			continue
		}
		if p.Status != models.PaymentPending && p.Status != models.PaymentNotPaid {
			continue
		}
		a, ok := perStatus[p.Status]
		if !ok {
			a = &agg{ids: map[string]bool{}}
			perStatus[p.Status] = a
		}
		if !a.ids[p.ID] {
			a.ids[p.ID] = true
			if p.DueDate.Before(asOf) {
				a.overdue++
			}
		}
	}
	rows := make([]DelinquencyRow, 0, len(perStatus))
	for status, a := range perStatus {
		rows = append(rows, DelinquencyRow{Status: status, Count: len(a.ids), Overdue: a.overdue})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Status < rows[j].Status })
	return rows
}

// PaidInFullRow reports the share of users who paid a product in full.
type PaidInFullRow struct {
	ProductID      string
	Users          int
	PaidInFullRate float64
}

// PaidInFullByProduct marks a (user, product) pair paid-in-full when
// no non-succeeded payment exists and the succeeded count covers the
// installment plan (or no plan is recorded).
func PaidInFullByProduct(payments []models.Payment) []PaidInFullRow {
	type key struct{ userID, productID string }
	type agg struct {
		succeeded       int
		anyNonSucceeded bool
		maxInstallments *int
	}
	pairs := map[key]*agg{}
	for _, p := range payments {
		k := key{p.UserID, p.ProductID}
		a, ok := pairs[k]
		if !ok {
			a = &agg{}
			pairs[k] = a
		}
		if p.Status == models.PaymentSucceeded {
			a.succeeded++
		} else {
			a.anyNonSucceeded = true
		}
		if p.TotalInstallments != nil {
			if a.maxInstallments == nil || *p.TotalInstallments > *a.maxInstallments {
				v := *p.TotalInstallments
				a.maxInstallments = &v
			}
		}
	}

	type productAgg struct{ users, paidInFull int }
	perProduct := map[string]*productAgg{}
	for k, a := range pairs {
		pa, ok := perProduct[k.productID]
		if !ok {
			pa = &productAgg{}
			perProduct[k.productID] = pa
		}
		pa.users++
		full := !a.anyNonSucceeded && (a.maxInstallments == nil || a.succeeded >= *a.maxInstallments)
		if full {
			pa.paidInFull++
		}
	}

	rows := make([]PaidInFullRow, 0, len(perProduct))
	for productID, pa := range perProduct {
		rows = append(rows, PaidInFullRow{
			ProductID:      productID,
			Users:          pa.users,
			PaidInFullRate: float64(pa.paidInFull) / float64(pa.users),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
	return rows
}

// DefaultRateRow reports the payment-plan default rate per agreement
// reason.
type DefaultRateRow struct {
	Reason      string
	Agreements  int
	DefaultRate float64
}

// PlanDefaultRate marks an agreement defaulted when none of its
// commitments succeeded or any failed, grouped by agreement reason.
func PlanDefaultRate(agreements []models.PaymentAgreement, commitments []models.PaymentCommitment) []DefaultRateRow {
	type agg struct{ succeeded, failed int }
	perAgreement := map[string]*agg{}
	for _, c := range commitments {
		a, ok := perAgreement[c.PaymentAgreementID]
		if !ok {
			a = &agg{}
			perAgreement[c.PaymentAgreementID] = a
		}
		if c.Status == models.PaymentSucceeded {
			a.succeeded++
		} else {
			a.failed++
		}
	}

	type reasonAgg struct{ total, defaulted int }
	perReason := map[string]*reasonAgg{}
	for _, ag := range agreements {
		r, ok := perReason[ag.Reason]
		if !ok {
			r = &reasonAgg{}
			perReason[ag.Reason] = r
		}
		r.total++
		a := perAgreement[ag.ID]
		if a == nil || a.succeeded == 0 || a.failed > 0 {
			r.defaulted++
		}
	}

	rows := make([]DefaultRateRow, 0, len(perReason))
	for reason, r := range perReason {
		rows = append(rows, DefaultRateRow{
			Reason:      reason,
			Agreements:  r.total,
			DefaultRate: float64(r.defaulted) / float64(r.total),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Reason < rows[j].Reason })
	return rows
}

// WaterfallRow is one stage of the contracted-vs-collected waterfall.
type WaterfallRow struct {
	Stage  string
	Amount float64
}

// CommitmentVsCash compares contracted value against cash collected
// through payments and commitments.
func CommitmentVsCash(payments []models.Payment, commitments []models.PaymentCommitment, custom []models.CustomProduct) []WaterfallRow {
	var cash, committed, contracted float64
	for _, p := range payments {
		if p.Status == models.PaymentSucceeded {
			cash += p.Amount
		}
	}
	for _, c := range commitments {
		if c.Status == models.PaymentSucceeded {
			committed += c.Amount
		}
	}
	for _, c := range custom {
		if c.TotalPrice != nil {
			contracted += *c.TotalPrice
		}
	}
	outstanding := math.Max(contracted-(cash+committed), 0)
	return []WaterfallRow{
		{Stage: "Contracted Value", Amount: contracted},
		{Stage: "Cash Collected", Amount: cash + committed},
		{Stage: "Outstanding", Amount: outstanding},
	}
}

// DiscountHookRow counts sales at discount vs full price per product.
type DiscountHookRow struct {
	ProductID     string
	DiscountSales int
	FullSales     int
	TotalSales    int
}

// DiscountHook matches payment amounts against list and discount
// prices (to the cent) per product.
func DiscountHook(products []classify.ProductFlag, payments []models.Payment) []DiscountHookRow {
	productByID := make(map[string]classify.ProductFlag, len(products))
	for _, p := range products {
		productByID[p.ProductID] = p
	}

	perProduct := map[string]*DiscountHookRow{}
	for _, p := range payments {
		row, ok := perProduct[p.ProductID]
		if !ok {
			row = &DiscountHookRow{ProductID: p.ProductID}
			perProduct[p.ProductID] = row
		}
		row.TotalSales++
		prod, known := productByID[p.ProductID]
		if !known {
			continue
		}
		if prod.DiscountPrice != nil && centsEqual(p.Amount, *prod.DiscountPrice) {
			row.DiscountSales++
		}
		if prod.Price != nil && centsEqual(p.Amount, *prod.Price) {
			row.FullSales++
		}
	}

	rows := make([]DiscountHookRow, 0, len(perProduct))
	for _, row := range perProduct {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID < rows[j].ProductID })
	return rows
}

func centsEqual(a, b float64) bool {
	return math.Round(a*100) == math.Round(b*100)
}
