package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"homecheff/internal/delivery"
	"homecheff/internal/geo"
)

const profileQuery = `
	SELECT dp.user_id, dp.online, dp.gps_tracking, dp.max_distance_km,
		dp.home_lat, dp.home_lng, dp.live_lat, dp.live_lng, dp.live_updated_at, u.telegram_chat_id
	FROM delivery_profiles dp
	JOIN users u ON u.id = dp.user_id`

func scanProfile(row pgx.Row) (DeliveryProfile, error) {
	var p DeliveryProfile
	var hLat, hLng, lLat, lLng *float64
	err := row.Scan(&p.UserID, &p.Online, &p.GPSTracking, &p.MaxDistanceKm,
		&hLat, &hLng, &lLat, &lLng, &p.LiveUpdatedAt, &p.TelegramChatID)
	if err != nil {
		return DeliveryProfile{}, mapErr(err)
	}
	p.Home = point(hLat, hLng)
	p.Live = point(lLat, lLng)
	return p, nil
}

func (r *Repository) DeliveryProfile(ctx context.Context, courierID string) (DeliveryProfile, error) {
	return scanProfile(r.pool.QueryRow(ctx, profileQuery+` WHERE dp.user_id = $1`, courierID))
}

// OnlineCouriers lists every courier currently accepting work.
func (r *Repository) OnlineCouriers(ctx context.Context) ([]DeliveryProfile, error) {
	rows, err := r.pool.Query(ctx, profileQuery+` WHERE dp.online`)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DeliveryProfile, error) {
		return scanProfile(row)
	})
	return out, mapErr(err)
}

func (r *Repository) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetCourierOnline(ctx context.Context, courierID string, online bool) error {
	return r.execOne(ctx,
		`UPDATE delivery_profiles SET online = $2, updated_at = NOW() WHERE user_id = $1`,
		courierID, online)
}

func (r *Repository) UpdateCourierSettings(ctx context.Context, courierID string, s CourierSettings) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		hLat, hLng := coords(s.Home)
		tag, err := tx.Exec(ctx,
			`UPDATE delivery_profiles
			 SET gps_tracking = $2, max_distance_km = $3,
				home_lat = COALESCE($4, home_lat), home_lng = COALESCE($5, home_lng), updated_at = NOW()
			 WHERE user_id = $1`,
			courierID, s.GPSTracking, s.MaxDistanceKm, hLat, hLng)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if s.TelegramChatID != nil {
			_, err = tx.Exec(ctx, `UPDATE users SET telegram_chat_id = $2 WHERE id = $1`, courierID, *s.TelegramChatID)
		}
		return err
	})
}

// UpdateCourierLivePosition keeps the last GPS fix for when the cache has expired.
func (r *Repository) UpdateCourierLivePosition(ctx context.Context, courierID string, p geo.Point) error {
	return r.execOne(ctx,
		`UPDATE delivery_profiles SET live_lat = $2, live_lng = $3, live_updated_at = NOW() WHERE user_id = $1`,
		courierID, p.Lat, p.Lng)
}

const candidateQuery = `SELECT id, order_id, seller_lat, seller_lng, buyer_lat, buyer_lng, fee_cents FROM delivery_candidates`

func scanCandidate(row pgx.Row) (delivery.Candidate, error) {
	var c delivery.Candidate
	var sLat, sLng, bLat, bLng *float64
	if err := row.Scan(&c.ID, &c.OrderID, &sLat, &sLng, &bLat, &bLng, &c.FeeCents); err != nil {
		return delivery.Candidate{}, mapErr(err)
	}
	c.Seller = point(sLat, sLng)
	c.Buyer = point(bLat, bLng)
	return c, nil
}

// OpenCandidates lists paid orders waiting for a courier, oldest first.
func (r *Repository) OpenCandidates(ctx context.Context) ([]delivery.Candidate, error) {
	rows, err := r.pool.Query(ctx, candidateQuery+` WHERE status = 'open' ORDER BY created_at`)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (delivery.Candidate, error) {
		return scanCandidate(row)
	})
	return out, mapErr(err)
}

// OpenCandidate returns the candidate only while it can still be claimed.
func (r *Repository) OpenCandidate(ctx context.Context, id string) (delivery.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx, candidateQuery+` WHERE id = $1 AND status = 'open'`, id))
}

func (r *Repository) CandidateByOrder(ctx context.Context, orderID string) (delivery.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx, candidateQuery+` WHERE order_id = $1`, orderID))
}

// ClaimCandidate assigns an open candidate to the courier. Only one courier
// can win: the update is conditional on the candidate still being open.
func (r *Repository) ClaimCandidate(ctx context.Context, candidateID, courierID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE delivery_candidates SET status = 'claimed', courier_id = $2, claimed_at = NOW()
		 WHERE id = $1 AND status = 'open'`,
		candidateID, courierID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, candidateID)
	}
	return nil
}

// CompleteCandidate marks the courier's claimed delivery and its order delivered.
func (r *Repository) CompleteCandidate(ctx context.Context, candidateID, courierID string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var orderID string
		err := tx.QueryRow(ctx,
			`UPDATE delivery_candidates SET status = 'delivered', delivered_at = NOW()
			 WHERE id = $1 AND courier_id = $2 AND status = 'claimed'
			 RETURNING order_id`,
			candidateID, courierID).Scan(&orderID)
		if IsNotFound(mapErr(err)) {
			return r.missingOrConflict(ctx, candidateID)
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE orders SET status = 'delivered' WHERE id = $1`, orderID)
		return err
	})
}

func (r *Repository) missingOrConflict(ctx context.Context, candidateID string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivery_candidates WHERE id = $1)`, candidateID,
	).Scan(&exists)
	if err != nil {
		return mapErr(err)
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}
