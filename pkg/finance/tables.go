package finance

import "github.com/mentorlane/insights/pkg/models"

// StatusByMonthTable flattens payment counts by month and status.
func StatusByMonthTable(rows []StatusByMonthRow) models.Table {
	t := models.Table{
		Name:    "payment_status_by_month",
		Columns: []string{"month", "status", "count"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Month, r.Status, r.Count})
	}
	return t
}

// RevenueTable flattens succeeded revenue by month.
func RevenueTable(rows []RevenueByMonthRow) models.Table {
	t := models.Table{
		Name:    "revenue_by_month",
		Columns: []string{"month", "amount"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Month, r.Amount})
	}
	return t
}

// DelinquencyTable flattens the overdue breakdown.
func DelinquencyTable(rows []DelinquencyRow) models.Table {
	t := models.Table{
		Name:    "payment_delinquency",
		Columns: []string{"status", "count", "overdue"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Status, r.Count, r.Overdue})
	}
	return t
}

// PaidInFullTable flattens paid-in-full rates per product.
func PaidInFullTable(rows []PaidInFullRow) models.Table {
	t := models.Table{
		Name:    "paid_in_full_by_product",
		Columns: []string{"product_id", "users", "paid_in_full_rate"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.ProductID, r.Users, r.PaidInFullRate})
	}
	return t
}

// DefaultRateTable flattens plan default rates per agreement reason.
func DefaultRateTable(rows []DefaultRateRow) models.Table {
	t := models.Table{
		Name:    "payment_plan_default_rate",
		Columns: []string{"reason", "agreements", "default_rate"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Reason, r.Agreements, r.DefaultRate})
	}
	return t
}

// WaterfallTable flattens the contracted-vs-collected stages.
func WaterfallTable(rows []WaterfallRow) models.Table {
	t := models.Table{
		Name:    "commitment_vs_cash",
		Columns: []string{"stage", "amount"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Stage, r.Amount})
	}
	return t
}

// DiscountHookTable flattens discount-vs-full sale counts.
func DiscountHookTable(rows []DiscountHookRow) models.Table {
	t := models.Table{
		Name:    "discount_hook_summary",
		Columns: []string{"product_id", "discount_sales", "full_sales", "total_sales"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.ProductID, r.DiscountSales, r.FullSales, r.TotalSales})
	}
	return t
}

// PlanEngagementTable flattens installment vs upfront engagement.
func PlanEngagementTable(rows []PlanEngagementRow) models.Table {
	t := models.Table{
		Name:    "payment_plan_engagement",
		Columns: []string{"is_installment", "users", "avg_submissions"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.OnInstallment, r.Users, r.AvgSubmissions})
	}
	return t
}

// InvestmentTable flattens spend-tier submission averages.
func InvestmentTable(rows []InvestmentTierRow) models.Table {
	t := models.Table{
		Name:    "investment_vs_engagement",
		Columns: []string{"investment_tier", "users", "avg_submissions", "avg_spend"},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Tier, r.Users, r.AvgSubmissions, r.AvgSpend})
	}
	return t
}

func floatCell(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
