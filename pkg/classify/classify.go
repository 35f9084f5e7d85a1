// Package classify tags live sessions and products as gateway
// (low-commitment entry offerings) or mentorship (high-commitment)
// using keyword matching and price-quantile thresholds.
package classify

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mentorlane/insights/pkg/models"
)

// Default keyword sets. Matching is case-insensitive substring
// containment; an empty or missing title never matches.
var (
	GatewayKeywords = []string{"interview prep", "interview", "prep"}

	MentorshipKeywords = []string{"mentorship", "mentor", "coaching"}

	GatewaySessionKeywords = []string{
		"info session",
		"information session",
		"intro",
		"introduction",
		"orientation",
		"webinar",
		"open day",
		"open-day",
		"masterclass",
		"taster",
		"trial",
		"interview",
		"interview prep",
		"prep",
	}

	GatewayProductKeywords = []string{
		"interview prep",
		"interview",
		"prep",
		"intro",
		"starter",
		"foundation",
		"taster",
		"trial",
		"basic",
		"entry",
		"one-time",
		"a la carte",
		"ala carte",
	}
)

// SessionFlag is a live session annotated with its gateway flag.
type SessionFlag struct {
	SessionID   string
	Title       string
	ScheduledAt *time.Time
	CreatedByID string
	IsGateway   bool
}

// ProductFlag is a product annotated with gateway/mentorship flags.
// The flags are independent: a product may carry both when keywords
// and price thresholds disagree, and downstream consumers must not
// assume exclusivity.
type ProductFlag struct {
	ProductID     string
	Title         string
	Price         *float64
	DiscountPrice *float64
	IsGateway     bool
	IsMentorship  bool
}

// ProductOptions configures product classification. Quantiles are
// recomputed from the live product set on every call, never cached
// across runs.
type ProductOptions struct {
	GatewayKeywords    []string
	MentorshipKeywords []string
	GatewayQuantile    float64
	MentorshipQuantile float64
}

// DefaultProductOptions returns the stock keyword sets with the given
// quantile thresholds.
func DefaultProductOptions(gatewayQ, mentorshipQ float64) ProductOptions {
	return ProductOptions{
		GatewayKeywords:    GatewayProductKeywords,
		MentorshipKeywords: MentorshipKeywords,
		GatewayQuantile:    gatewayQ,
		MentorshipQuantile: mentorshipQ,
	}
}

// HasKeyword reports whether the lowercased value contains any of the
// given keywords.
func HasKeyword(value string, keywords []string) bool {
	if value == "" {
		return false
	}
	text := strings.ToLower(value)
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Sessions flags each live session by keyword match on its title.
func Sessions(sessions []models.LiveSession, keywords []string) []SessionFlag {
	out := make([]SessionFlag, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionFlag{
			SessionID:   s.ID,
			Title:       s.Title,
			ScheduledAt: s.ScheduledAt,
			CreatedByID: s.CreatedByID,
			IsGateway:   HasKeyword(s.Title, keywords),
		})
	}
	return out
}

// Products flags each product. A product is gateway when its title
// matches a gateway keyword OR its price is at or below the low
// quantile of the non-null price distribution; mentorship when it
// matches a mentorship keyword OR its price is at or above the high
// quantile. When no non-null prices exist the price rules are skipped
// and classification is keyword-only.
func Products(products []models.Product, opts ProductOptions) []ProductFlag {
	var prices []float64
	for _, p := range products {
		if p.Price != nil {
			prices = append(prices, *p.Price)
		}
	}

	priceLow := math.NaN()
	priceHigh := math.NaN()
	if len(prices) > 0 {
		priceLow = Quantile(prices, opts.GatewayQuantile)
		priceHigh = Quantile(prices, opts.MentorshipQuantile)
	}

	out := make([]ProductFlag, 0, len(products))
	for _, p := range products {
		flag := ProductFlag{
			ProductID:     p.ID,
			Title:         p.Title,
			Price:         p.Price,
			DiscountPrice: p.DiscountPrice,
			IsGateway:     HasKeyword(p.Title, opts.GatewayKeywords),
			IsMentorship:  HasKeyword(p.Title, opts.MentorshipKeywords),
		}
		if p.Price != nil {
			if !math.IsNaN(priceLow) && *p.Price <= priceLow {
				flag.IsGateway = true
			}
			if !math.IsNaN(priceHigh) && *p.Price >= priceHigh {
				flag.IsMentorship = true
			}
		}
		out = append(out, flag)
	}
	return out
}

// Quantile computes the empirical q-quantile of values with linear
// interpolation between order statistics. The input is not modified.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
