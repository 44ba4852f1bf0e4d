package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const productColumns = `id, seller_id, title, description, price_cents, stock, recipe, growing_log, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var recipe, growingLog []byte
	err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.Description, &p.PriceCents, &p.Stock,
		&recipe, &growingLog, &p.CreatedAt)
	if err != nil {
		return Product{}, mapErr(err)
	}
	p.Recipe, p.GrowingLog = recipe, growingLog
	return p, nil
}

func jsonParam(raw []byte) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func (r *Repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx,
		`INSERT INTO products (seller_id, title, description, price_cents, stock, recipe, growing_log)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		 RETURNING `+productColumns,
		p.SellerID, p.Title, p.Description, p.PriceCents, p.Stock, jsonParam(p.Recipe), jsonParam(p.GrowingLog),
	))
}

func (r *Repository) ProductByID(ctx context.Context, id string) (Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// SellerProducts returns the listed products of one seller among ids.
func (r *Repository) SellerProducts(ctx context.Context, sellerID string, ids []string) (map[string]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 AND id = ANY($2::uuid[])`,
		sellerID, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, mapErr(rows.Err())
}
