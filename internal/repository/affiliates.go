package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"homecheff/internal/commission"
)

const affiliateColumns = `id, user_id, code, parent_id,
	user_pct::float8, business_pct::float8, parent_user_pct::float8, parent_business_pct::float8, created_at`

func scanAffiliate(row pgx.Row) (Affiliate, error) {
	var a Affiliate
	o := &a.Overrides
	err := row.Scan(&a.ID, &a.UserID, &a.Code, &a.ParentID,
		&o.UserPct, &o.BusinessPct, &o.ParentUserPct, &o.ParentBusinessPct, &a.CreatedAt)
	if err != nil {
		return Affiliate{}, mapErr(err)
	}
	return a, nil
}

func (r *Repository) AffiliateByID(ctx context.Context, id string) (Affiliate, error) {
	return scanAffiliate(r.pool.QueryRow(ctx, `SELECT `+affiliateColumns+` FROM affiliates WHERE id = $1`, id))
}

func (r *Repository) AffiliateByUser(ctx context.Context, userID string) (Affiliate, error) {
	return scanAffiliate(r.pool.QueryRow(ctx, `SELECT `+affiliateColumns+` FROM affiliates WHERE user_id = $1`, userID))
}

// UpdateOverrides replaces all four custom percentages; nil clears one back
// to the system default.
func (r *Repository) UpdateOverrides(ctx context.Context, affiliateID string, o commission.Overrides) error {
	return r.execOne(ctx,
		`UPDATE affiliates SET user_pct = $2, business_pct = $3, parent_user_pct = $4, parent_business_pct = $5
		 WHERE id = $1`,
		affiliateID, o.UserPct, o.BusinessPct, o.ParentUserPct, o.ParentBusinessPct)
}

// ReferrerOf returns the affiliate that referred the user and that
// affiliate's parent, if any. ErrNotFound means the user was not referred.
func (r *Repository) ReferrerOf(ctx context.Context, referredUserID string) (Affiliate, *Affiliate, error) {
	direct, err := scanAffiliate(r.pool.QueryRow(ctx,
		`SELECT `+prefixed("a.", affiliateColumns)+`
		 FROM referrals ref JOIN affiliates a ON a.id = ref.affiliate_id
		 WHERE ref.referred_user_id = $1`,
		referredUserID))
	if err != nil {
		return Affiliate{}, nil, err
	}
	if direct.ParentID == nil {
		return direct, nil, nil
	}
	parent, err := r.AffiliateByID(ctx, *direct.ParentID)
	if err != nil {
		return Affiliate{}, nil, err
	}
	return direct, &parent, nil
}

// RecordCommission stores the event and its payouts as PENDING. Recording the
// same source twice yields ErrDuplicate.
func (r *Repository) RecordCommission(ctx context.Context, ev CommissionEvent, payouts []commission.Payout) (string, error) {
	var eventID string
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO commission_events (referred_user_id, event_type, amount_cents, source_ref)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			ev.ReferredUserID, ev.Type, ev.AmountCents, ev.SourceRef,
		).Scan(&eventID)
		if err != nil {
			return mapErr(err)
		}
		for _, p := range payouts {
			if _, err := tx.Exec(ctx,
				`INSERT INTO payouts (event_id, affiliate_id, level, rate, amount_cents, status)
				 VALUES ($1, $2, $3, $4::numeric, $5, $6)`,
				eventID, p.AffiliateID, p.Level, p.Rate.String(), p.AmountCents, commission.StatusPending,
			); err != nil {
				return err
			}
		}
		return nil
	})
	return eventID, err
}

const movePayouts = `
	WITH moved AS (
		UPDATE payouts SET status = $2,
			available_at = CASE WHEN $2 = 'AVAILABLE' THEN NOW() ELSE available_at END,
			paid_at = CASE WHEN $2 = 'PAID' THEN NOW() ELSE paid_at END
		WHERE status = $1 AND %s
		RETURNING amount_cents
	)
	SELECT COUNT(*), COALESCE(SUM(amount_cents), 0)::bigint FROM moved`

// move only accepts transitions the payout lifecycle allows.
func (r *Repository) move(ctx context.Context, where string, from, to commission.Status, arg string) (PayoutBatch, error) {
	if err := commission.Transition(from, to); err != nil {
		return PayoutBatch{}, err
	}
	var b PayoutBatch
	err := r.pool.QueryRow(ctx, fmt.Sprintf(movePayouts, where), string(from), string(to), arg).Scan(&b.Count, &b.TotalCents)
	return b, mapErr(err)
}

// MovePayoutsBySource changes the status of every payout created for one
// revenue source that is currently in status from.
func (r *Repository) MovePayoutsBySource(ctx context.Context, sourceRef string, from, to commission.Status) (PayoutBatch, error) {
	return r.move(ctx, `event_id IN (SELECT id FROM commission_events WHERE source_ref = $3)`, from, to, sourceRef)
}

// MovePayoutsByAffiliate changes the status of all of an affiliate's payouts in status from.
func (r *Repository) MovePayoutsByAffiliate(ctx context.Context, affiliateID string, from, to commission.Status) (PayoutBatch, error) {
	return r.move(ctx, `affiliate_id = $3`, from, to, affiliateID)
}

func (r *Repository) AffiliateSummary(ctx context.Context, affiliateID string) (AffiliateSummary, error) {
	var s AffiliateSummary
	err := r.pool.QueryRow(ctx, `
		SELECT a.code,
			(SELECT COUNT(*) FROM referrals WHERE affiliate_id = a.id AND kind = 'user'),
			(SELECT COUNT(*) FROM referrals WHERE affiliate_id = a.id AND kind = 'business'),
			(SELECT COUNT(*) FROM affiliates WHERE parent_id = a.id),
			COALESCE((SELECT SUM(amount_cents) FROM payouts WHERE affiliate_id = a.id AND status = 'PENDING'), 0)::bigint,
			COALESCE((SELECT SUM(amount_cents) FROM payouts WHERE affiliate_id = a.id AND status = 'AVAILABLE'), 0)::bigint,
			COALESCE((SELECT SUM(amount_cents) FROM payouts WHERE affiliate_id = a.id AND status = 'PAID'), 0)::bigint
		FROM affiliates a WHERE a.id = $1`,
		affiliateID,
	).Scan(&s.Code, &s.ReferredUsers, &s.ReferredBusinesses, &s.SubAffiliates,
		&s.PendingCents, &s.AvailableCents, &s.PaidCents)
	if err != nil {
		return AffiliateSummary{}, mapErr(err)
	}
	return s, nil
}

// RecentPayouts lists an affiliate's newest payouts.
func (r *Repository) RecentPayouts(ctx context.Context, affiliateID string, limit int) ([]PayoutRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.affiliate_id, p.level, p.rate::text, p.amount_cents, p.status, e.source_ref, p.created_at
		FROM payouts p JOIN commission_events e ON e.id = p.event_id
		WHERE p.affiliate_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2`,
		affiliateID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PayoutRecord, error) {
		var p PayoutRecord
		var rate string
		if err := row.Scan(&p.ID, &p.AffiliateID, &p.Level, &rate, &p.AmountCents, &p.Status, &p.SourceRef, &p.CreatedAt); err != nil {
			return PayoutRecord{}, err
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return PayoutRecord{}, err
		}
		p.Rate = d
		return p, nil
	})
	return out, mapErr(err)
}
