package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

func (r *Repository) SellerProfile(ctx context.Context, userID string) (SellerProfile, error) {
	var p SellerProfile
	var lat, lng *float64
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, display_name, lat, lng, subscription_until FROM seller_profiles WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.DisplayName, &lat, &lng, &p.SubscriptionUntil)
	if err != nil {
		return SellerProfile{}, mapErr(err)
	}
	p.Location = point(lat, lng)
	return p, nil
}

func (r *Repository) SellerDashboard(ctx context.Context, sellerID string) (SellerDashboard, error) {
	var d SellerDashboard
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE seller_id = $1),
			COUNT(*) FILTER (WHERE status = 'pending_payment'),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COALESCE(SUM(subtotal_cents) FILTER (WHERE status IN ('paid', 'delivered')), 0)::bigint
		FROM orders WHERE seller_id = $1`,
		sellerID,
	).Scan(&d.Products, &d.PendingOrders, &d.PaidOrders, &d.DeliveredOrders, &d.RevenueCents)
	if err != nil {
		return SellerDashboard{}, mapErr(err)
	}
	return d, nil
}

// CreateSubscription stores a pending subscription charge.
func (r *Repository) CreateSubscription(ctx context.Context, sellerID, paymentRef string, amountCents int64) (Subscription, error) {
	s := Subscription{SellerID: sellerID, PaymentRef: paymentRef, AmountCents: amountCents, Status: "pending"}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (seller_id, payment_ref, amount_cents) VALUES ($1, $2, $3) RETURNING id`,
		sellerID, paymentRef, amountCents,
	).Scan(&s.ID)
	if err != nil {
		return Subscription{}, mapErr(err)
	}
	return s, nil
}

// CancelSubscription drops a subscription charge that is still pending.
func (r *Repository) CancelSubscription(ctx context.Context, paymentRef string) error {
	return r.execOne(ctx,
		`UPDATE subscriptions SET status = 'cancelled' WHERE payment_ref = $1 AND status = 'pending'`,
		paymentRef)
}

// ActivateSubscription marks a paid subscription active and extends the
// seller's subscription by period. ErrConflict means it was already active.
func (r *Repository) ActivateSubscription(ctx context.Context, paymentRef string, period time.Duration) (Subscription, error) {
	var s Subscription
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT id, seller_id, payment_ref, amount_cents, status, period_end
			 FROM subscriptions WHERE payment_ref = $1 FOR UPDATE`,
			paymentRef,
		).Scan(&s.ID, &s.SellerID, &s.PaymentRef, &s.AmountCents, &s.Status, &s.PeriodEnd)
		if err != nil {
			return mapErr(err)
		}
		if s.Status != "pending" {
			return ErrConflict
		}

		var until time.Time
		err = tx.QueryRow(ctx,
			`UPDATE seller_profiles
			 SET subscription_until = GREATEST(COALESCE(subscription_until, NOW()), NOW()) + make_interval(secs => $2)
			 WHERE user_id = $1
			 RETURNING subscription_until`,
			s.SellerID, period.Seconds(),
		).Scan(&until)
		if err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE subscriptions SET status = 'active', period_end = $2 WHERE id = $1`,
			s.ID, until); err != nil {
			return err
		}
		s.Status = "active"
		s.PeriodEnd = &until
		return nil
	})
	if err != nil {
		return Subscription{}, err
	}
	return s, nil
}
