package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(v float64) *float64 { return &v }

func TestCommission_RoundsHalfUp(t *testing.T) {
	tests := []struct {
		amount int64
		rate   string
		want   int64
	}{
		{999, "0.205", 205},
		{10000, "0.20", 2000},
		{1, "0.5", 1},
		{3, "0.5", 2},
		{1, "0.49", 0},
		{12345, "0", 0},
	}
	for _, tt := range tests {
		got, err := Commission(tt.amount, decimal.RequireFromString(tt.rate))
		require.NoError(t, err)
		if got != tt.want {
			t.Errorf("Commission(%d, %s) = %d, want %d", tt.amount, tt.rate, got, tt.want)
		}
	}
}

func TestCommission_InvalidAmount(t *testing.T) {
	for _, amount := range []int64{0, -1, -10000} {
		_, err := Commission(amount, decimal.RequireFromString("0.2"))
		assert.ErrorIs(t, err, ErrInvalidAmount)
	}

	_, err := DefaultRates().Calculate(Event{AmountCents: 0, Type: UserTransaction}, Affiliate{ID: "a"}, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCalculate_DirectAndParentAreIndependent(t *testing.T) {
	rates := DefaultRates()
	ev := Event{AmountCents: 10000, Type: UserTransaction}

	got, err := rates.Calculate(ev, Affiliate{ID: "a"}, &Affiliate{ID: "p"})
	require.NoError(t, err)

	assert.Equal(t, "a", got.Direct.AffiliateID)
	assert.Equal(t, Direct, got.Direct.Level)
	assert.Equal(t, int64(2000), got.Direct.AmountCents)
	require.NotNil(t, got.Parent)
	assert.Equal(t, "p", got.Parent.AffiliateID)
	assert.Equal(t, Parent, got.Parent.Level)
	assert.Equal(t, int64(500), got.Parent.AmountCents)
	assert.Equal(t, int64(2500), got.Total())
	assert.Len(t, got.Payouts(), 2)
}

func TestCalculate_BusinessSubscription(t *testing.T) {
	got, err := DefaultRates().Calculate(
		Event{AmountCents: 10000, Type: BusinessSubscription},
		Affiliate{ID: "a"}, &Affiliate{ID: "p"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), got.Direct.AmountCents)
	assert.Equal(t, int64(1000), got.Parent.AmountCents)
}

func TestCalculate_NoParent(t *testing.T) {
	got, err := DefaultRates().Calculate(Event{AmountCents: 10000, Type: UserTransaction}, Affiliate{ID: "a"}, nil)
	require.NoError(t, err)
	assert.Nil(t, got.Parent)
	assert.Equal(t, int64(2000), got.Total())
	assert.Len(t, got.Payouts(), 1)
}

func TestCalculate_Overrides(t *testing.T) {
	rates := DefaultRates()
	ev := Event{AmountCents: 10000, Type: UserTransaction}

	t.Run("nil override uses default", func(t *testing.T) {
		got, err := rates.Calculate(ev, Affiliate{ID: "a", Overrides: Overrides{BusinessPct: pct(50)}}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2000), got.Direct.AmountCents)
	})

	t.Run("zero override means zero", func(t *testing.T) {
		got, err := rates.Calculate(ev, Affiliate{ID: "a", Overrides: Overrides{UserPct: pct(0)}}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got.Direct.AmountCents)
		assert.True(t, got.Direct.Rate.IsZero())
	})

	t.Run("fractional override", func(t *testing.T) {
		got, err := rates.Calculate(Event{AmountCents: 999, Type: UserTransaction},
			Affiliate{ID: "a", Overrides: Overrides{UserPct: pct(20.5)}}, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(205), got.Direct.AmountCents)
		assert.True(t, got.Direct.Rate.Equal(decimal.RequireFromString("0.205")))
	})

	t.Run("parent rate comes from the parent's overrides", func(t *testing.T) {
		direct := Affiliate{ID: "a", Overrides: Overrides{ParentUserPct: pct(50)}}
		parent := &Affiliate{ID: "p", Overrides: Overrides{ParentUserPct: pct(7)}}
		got, err := rates.Calculate(ev, direct, parent)
		require.NoError(t, err)
		assert.Equal(t, int64(700), got.Parent.AmountCents)
	})
}

func TestCalculate_UnknownEventTypeEarnsNothing(t *testing.T) {
	got, err := DefaultRates().Calculate(Event{AmountCents: 10000, Type: "REFUND"}, Affiliate{ID: "a"}, &Affiliate{ID: "p"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Total())
	assert.False(t, EventType("REFUND").Valid())
}

func TestRatesFromPercent(t *testing.T) {
	r := RatesFromPercent(20, 40, 5, 10)
	d := DefaultRates()
	assert.True(t, r.User.Equal(d.User))
	assert.True(t, r.Business.Equal(d.Business))
	assert.True(t, r.ParentUser.Equal(d.ParentUser))
	assert.True(t, r.ParentBusiness.Equal(d.ParentBusiness))
}
