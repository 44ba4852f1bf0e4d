package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homecheff/internal/geo"
)

const userColumns = `id, name, email, password, role, address, lat, lng, telegram_chat_id, created_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	var lat, lng *float64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role,
		&u.Address, &lat, &lng, &u.TelegramChatID, &u.CreatedAt)
	if err != nil {
		return User{}, mapErr(err)
	}
	u.Location = point(lat, lng)
	return u, nil
}

// RegisterUser creates the account and the role profile that goes with it.
// A referral code links the user to its affiliate: buyers and couriers as a
// user referral, sellers as a business referral. ErrNotFound is returned for
// an unknown code and ErrDuplicate for a taken email.
func (r *Repository) RegisterUser(ctx context.Context, reg Registration) (User, error) {
	var out User
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		u := reg.User
		lat, lng := coords(u.Location)
		created, err := scanUser(tx.QueryRow(ctx,
			`INSERT INTO users (name, email, password, role, address, lat, lng)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+userColumns,
			u.Name, u.Email, u.PasswordHash, u.Role, u.Address, lat, lng,
		))
		if err != nil {
			return err
		}

		switch u.Role {
		case RoleSeller:
			_, err = tx.Exec(ctx,
				`INSERT INTO seller_profiles (user_id, display_name, lat, lng) VALUES ($1, $2, $3, $4)`,
				created.ID, u.Name, lat, lng)
		case RoleCourier:
			_, err = tx.Exec(ctx,
				`INSERT INTO delivery_profiles (user_id, home_lat, home_lng) VALUES ($1, $2, $3)`,
				created.ID, lat, lng)
		case RoleAffiliate:
			_, err = tx.Exec(ctx,
				`INSERT INTO affiliates (user_id, code, parent_id) VALUES ($1, $2, $3)`,
				created.ID, NewAffiliateCode(), reg.ParentAffiliateID)
		}
		if err != nil {
			return mapErr(err)
		}

		if reg.ReferralCode != "" {
			var affiliateID string
			err := tx.QueryRow(ctx, `SELECT id FROM affiliates WHERE code = $1`, reg.ReferralCode).Scan(&affiliateID)
			if err != nil {
				return fmt.Errorf("referral code %q: %w", reg.ReferralCode, mapErr(err))
			}
			kind := ReferralUser
			if u.Role == RoleSeller {
				kind = ReferralBusiness
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO referrals (affiliate_id, referred_user_id, kind) VALUES ($1, $2, $3)`,
				affiliateID, created.ID, kind); err != nil {
				return mapErr(err)
			}
		}

		out = created
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return out, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *Repository) UserByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateUserLocation stores the residence of a user. A seller's pickup point
// follows the residence.
func (r *Repository) UpdateUserLocation(ctx context.Context, userID, address string, p geo.Point) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET address = $2, lat = $3, lng = $4 WHERE id = $1`,
			userID, address, p.Lat, p.Lng)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = tx.Exec(ctx,
			`UPDATE seller_profiles SET lat = $2, lng = $3 WHERE user_id = $1`,
			userID, p.Lat, p.Lng)
		return err
	})
}

// IsNotFound is a shorthand used by callers that only branch on absence.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
