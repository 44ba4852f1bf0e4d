// Package commission computes affiliate payouts for a referred party's
// transactions and subscriptions, across at most two referral levels.
package commission

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned for zero or negative event amounts.
var ErrInvalidAmount = errors.New("commission: amount must be positive")

// EventType identifies what kind of revenue produced a commission event.
type EventType string

const (
	UserTransaction      EventType = "USER_TRANSACTION"
	BusinessSubscription EventType = "BUSINESS_SUBSCRIPTION"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	return t == UserTransaction || t == BusinessSubscription
}

// Level tells whether a payout goes to the referring affiliate or to its parent.
type Level string

const (
	Direct Level = "DIRECT"
	Parent Level = "PARENT"
)

var hundred = decimal.NewFromInt(100)

// Overrides are an affiliate's custom percentages (20 means 20%). A nil
// field falls back to the system default, a zero field is a real zero.
type Overrides struct {
	UserPct           *float64 `json:"user_pct"`
	BusinessPct       *float64 `json:"business_pct"`
	ParentUserPct     *float64 `json:"parent_user_pct"`
	ParentBusinessPct *float64 `json:"parent_business_pct"`
}

// Rates are commission fractions (0.2 means 20%).
type Rates struct {
	User           decimal.Decimal
	Business       decimal.Decimal
	ParentUser     decimal.Decimal
	ParentBusiness decimal.Decimal
}

// DefaultRates is the published default table.
func DefaultRates() Rates {
	return Rates{
		User:           decimal.RequireFromString("0.20"),
		Business:       decimal.RequireFromString("0.40"),
		ParentUser:     decimal.RequireFromString("0.05"),
		ParentBusiness: decimal.RequireFromString("0.10"),
	}
}

// RatesFromPercent builds a rate table from four percentages.
func RatesFromPercent(user, business, parentUser, parentBusiness float64) Rates {
	return Rates{
		User:           Percent(user),
		Business:       Percent(business),
		ParentUser:     Percent(parentUser),
		ParentBusiness: Percent(parentBusiness),
	}
}

// Percent converts a percentage to a fraction without binary float drift.
func Percent(pct float64) decimal.Decimal {
	return decimal.NewFromFloat(pct).Div(hundred)
}

func resolve(override *float64, fallback decimal.Decimal) decimal.Decimal {
	if override != nil {
		return Percent(*override)
	}
	return fallback
}

// DirectRate is the rate the referring affiliate earns for an event type.
func (r Rates) DirectRate(o Overrides, t EventType) decimal.Decimal {
	switch t {
	case UserTransaction:
		return resolve(o.UserPct, r.User)
	case BusinessSubscription:
		return resolve(o.BusinessPct, r.Business)
	}
	return decimal.Zero
}

// ParentRate is the rate the parent earns on its sub-affiliate's referee.
func (r Rates) ParentRate(o Overrides, t EventType) decimal.Decimal {
	switch t {
	case UserTransaction:
		return resolve(o.ParentUserPct, r.ParentUser)
	case BusinessSubscription:
		return resolve(o.ParentBusinessPct, r.ParentBusiness)
	}
	return decimal.Zero
}

// Commission is amountCents*rate rounded half-up to whole cents.
func Commission(amountCents int64, rate decimal.Decimal) (int64, error) {
	if amountCents <= 0 {
		return 0, ErrInvalidAmount
	}
	return decimal.NewFromInt(amountCents).Mul(rate).Round(0).IntPart(), nil
}

// Affiliate is the part of an affiliate record the calculator needs.
type Affiliate struct {
	ID        string
	Overrides Overrides
}

// Event is a revenue event attributable to a referred user or business.
type Event struct {
	AmountCents int64
	Type        EventType
}

// Payout is one ledger entry owed by the platform.
type Payout struct {
	AffiliateID string          `json:"affiliate_id"`
	Level       Level           `json:"level"`
	Rate        decimal.Decimal `json:"rate"`
	AmountCents int64           `json:"amount_cents"`
}

// Cascade is the result of one event: the direct payout and, when the
// affiliate has a parent, a separate parent payout.
type Cascade struct {
	Direct Payout  `json:"direct"`
	Parent *Payout `json:"parent,omitempty"`
}

// Total is what the platform owes for the event. Parent payouts are on top
// of the direct payout, not carved out of it.
func (c Cascade) Total() int64 {
	total := c.Direct.AmountCents
	if c.Parent != nil {
		total += c.Parent.AmountCents
	}
	return total
}

// Payouts returns the entries of the cascade in ledger order.
func (c Cascade) Payouts() []Payout {
	out := []Payout{c.Direct}
	if c.Parent != nil {
		out = append(out, *c.Parent)
	}
	return out
}

// Calculate runs the cascade for ev. The parent's rate comes from the
// parent's own overrides.
func (r Rates) Calculate(ev Event, direct Affiliate, parent *Affiliate) (Cascade, error) {
	rate := r.DirectRate(direct.Overrides, ev.Type)
	amount, err := Commission(ev.AmountCents, rate)
	if err != nil {
		return Cascade{}, err
	}
	out := Cascade{
		Direct: Payout{AffiliateID: direct.ID, Level: Direct, Rate: rate, AmountCents: amount},
	}
	if parent == nil {
		return out, nil
	}

	prate := r.ParentRate(parent.Overrides, ev.Type)
	pamount, err := Commission(ev.AmountCents, prate)
	if err != nil {
		return Cascade{}, err
	}
	out.Parent = &Payout{AffiliateID: parent.ID, Level: Parent, Rate: prate, AmountCents: pamount}
	return out, nil
}
