package store

import (
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/charge"

	"github.com/mentorlane/insights/pkg/models"
)

// BackfillPayments pulls recent charges from Stripe and maps them onto
// payment rows, for snapshots taken before the payments relation
// landed. Charge metadata carries the platform user and product ids.
func BackfillPayments(secretKey string, limit int) ([]models.Payment, error) {
	stripe.Key = secretKey

	params := &stripe.ChargeListParams{}
	params.Limit = stripe.Int64(int64(limit))

	var out []models.Payment
	iter := charge.List(params)
	for iter.Next() {
		c := iter.Charge()
		p := models.Payment{
			ID:        c.ID,
			UserID:    c.Metadata["user_id"],
			ProductID: c.Metadata["product_id"],
			Amount:    float64(c.Amount) / 100,
		}
		switch c.Status {
		case stripe.ChargeStatusSucceeded:
			p.Status = models.PaymentSucceeded
		case stripe.ChargeStatusPending:
			p.Status = models.PaymentPending
		default:
			p.Status = models.PaymentNotPaid
		}
		if c.Created > 0 {
			t := time.Unix(c.Created, 0).UTC()
			p.PaidAt = &t
			p.CreatedAt = &t
		}
		out = append(out, p)
	}
	return out, iter.Err()
}
