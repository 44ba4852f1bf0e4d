package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homecheff/internal/delivery"
)

const orderColumns = `id, order_number, buyer_id, seller_id, delivery_mode, subtotal_cents,
	delivery_fee_cents, platform_fee_cents, total_cents, status, created_at, paid_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.Number, &o.BuyerID, &o.SellerID, &o.Mode, &o.SubtotalCents,
		&o.DeliveryFeeCents, &o.PlatformFeeCents, &o.TotalCents, &o.Status, &o.CreatedAt, &o.PaidAt)
	if err != nil {
		return Order{}, mapErr(err)
	}
	return o, nil
}

// CreateOrder reserves stock and stores the order, its items, the buyer and
// seller conversation and, for courier delivery, a pending delivery candidate.
// ErrConflict is returned when a product is out of stock.
func (r *Repository) CreateOrder(ctx context.Context, o Order, cand *delivery.Candidate) (Order, error) {
	var out Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		for _, it := range o.Items {
			tag, err := tx.Exec(ctx,
				`UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`,
				it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("insufficient stock for %s: %w", it.Title, ErrConflict)
			}
		}

		created, err := scanOrder(tx.QueryRow(ctx,
			`INSERT INTO orders (order_number, buyer_id, seller_id, delivery_mode, subtotal_cents,
				delivery_fee_cents, platform_fee_cents, total_cents)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING `+orderColumns,
			o.Number, o.BuyerID, o.SellerID, o.Mode, o.SubtotalCents,
			o.DeliveryFeeCents, o.PlatformFeeCents, o.TotalCents,
		))
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, it := range o.Items {
			batch.Queue(
				`INSERT INTO order_items (order_id, product_id, title, quantity, unit_price_cents)
				 VALUES ($1, $2, $3, $4, $5)`,
				created.ID, it.ProductID, it.Title, it.Quantity, it.UnitPriceCents)
		}
		batch.Queue(
			`INSERT INTO conversations (order_id, buyer_id, seller_id) VALUES ($1, $2, $3)`,
			created.ID, o.BuyerID, o.SellerID)
		if cand != nil {
			sLat, sLng := coords(cand.Seller)
			bLat, bLng := coords(cand.Buyer)
			batch.Queue(
				`INSERT INTO delivery_candidates (order_id, seller_lat, seller_lng, buyer_lat, buyer_lng, fee_cents)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				created.ID, sLat, sLng, bLat, bLng, cand.FeeCents)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return mapErr(err)
		}

		created.Items = o.Items
		out = created
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return out, nil
}

func (r *Repository) OrderByID(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return Order{}, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, title, quantity, unit_price_cents FROM order_items WHERE order_id = $1 ORDER BY title`,
		id)
	if err != nil {
		return Order{}, mapErr(err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderItem, error) {
		var it OrderItem
		err := row.Scan(&it.ProductID, &it.Title, &it.Quantity, &it.UnitPriceCents)
		return it, err
	})
	if err != nil {
		return Order{}, mapErr(err)
	}
	return o, nil
}

// MarkOrderPaid settles the order carrying the payment reference and opens
// its delivery candidate. ErrConflict means the order was not awaiting payment.
func (r *Repository) MarkOrderPaid(ctx context.Context, orderNumber string) (Order, error) {
	var out Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx,
			`UPDATE orders SET status = 'paid', paid_at = NOW()
			 WHERE order_number = $1 AND status = 'pending_payment'
			 RETURNING `+orderColumns,
			orderNumber))
		if IsNotFound(err) {
			return orderMissingOrConflict(ctx, tx, orderNumber)
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE delivery_candidates SET status = 'open' WHERE order_id = $1 AND status = 'pending'`,
			o.ID); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return out, nil
}

// CancelOrder cancels an order still awaiting payment, returns its reserved
// stock and withdraws its delivery candidate.
func (r *Repository) CancelOrder(ctx context.Context, orderNumber string) (Order, error) {
	var out Order
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx,
			`UPDATE orders SET status = 'cancelled'
			 WHERE order_number = $1 AND status = 'pending_payment'
			 RETURNING `+orderColumns,
			orderNumber))
		if IsNotFound(err) {
			return orderMissingOrConflict(ctx, tx, orderNumber)
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE products p SET stock = p.stock + oi.quantity
			 FROM order_items oi
			 WHERE oi.order_id = $1 AND oi.product_id = p.id`,
			o.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE delivery_candidates SET status = 'cancelled'
			 WHERE order_id = $1 AND status IN ('pending', 'open')`,
			o.ID); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	return out, nil
}

func orderMissingOrConflict(ctx context.Context, tx pgx.Tx, orderNumber string) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, orderNumber,
	).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrConflict
	}
	return ErrNotFound
}
