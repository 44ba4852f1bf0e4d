package delivery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecheff/internal/geo"
)

func pt(lat, lng float64) *geo.Point {
	return &geo.Point{Lat: lat, Lng: lng}
}

func onlineCourier() Courier {
	return Courier{
		ID:            "courier-1",
		Online:        true,
		GPSTracking:   true,
		LivePosition:  pt(52.0, 4.0),
		HomePosition:  pt(51.5, 4.5),
		MaxDistanceKm: 10,
	}
}

func TestFilter_DropoffOutsideRadius(t *testing.T) {
	policy := DefaultPolicy()
	far := Candidate{ID: "far", Seller: pt(52.05, 4.05), Buyer: pt(52.09, 4.09)}
	near := Candidate{ID: "near", Seller: pt(52.01, 4.01), Buyer: pt(52.02, 4.02)}

	got := policy.Filter(onlineCourier(), []Candidate{far, near})

	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].ID)

	d1 := geo.DistanceKm(geo.Point{Lat: 52.0, Lng: 4.0}, geo.Point{Lat: 52.01, Lng: 4.01})
	d2 := geo.DistanceKm(geo.Point{Lat: 52.0, Lng: 4.0}, geo.Point{Lat: 52.02, Lng: 4.02})
	assert.InDelta(t, d1, got[0].PickupKm, 1e-9)
	assert.InDelta(t, d2, got[0].DropoffKm, 1e-9)
	assert.Equal(t, int(math.Round((d1+d2)*5)), got[0].EstimatedMinutes)
	assert.Equal(t, 20, got[0].EstimatedMinutes)
}

func TestFilter_OfflineCourierGetsNothing(t *testing.T) {
	c := onlineCourier()
	c.Online = false
	c.MaxDistanceKm = 10000

	got := DefaultPolicy().Filter(c, []Candidate{
		{ID: "a", Seller: pt(52.0001, 4.0001), Buyer: pt(52.0002, 4.0002)},
	})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEvaluate_EachConditionFlipsEligibility(t *testing.T) {
	base := Candidate{ID: "c", Seller: pt(52.01, 4.01), Buyer: pt(52.02, 4.02)}
	policy := DefaultPolicy()

	_, ok := policy.Evaluate(onlineCourier(), base)
	require.True(t, ok)

	tests := []struct {
		name    string
		courier func(c *Courier)
		cand    func(c *Candidate)
	}{
		{"courier offline", func(c *Courier) { c.Online = false }, nil},
		{"pickup beyond radius", nil, func(c *Candidate) { c.Seller = pt(52.2, 4.2) }},
		{"dropoff beyond radius", nil, func(c *Candidate) { c.Buyer = pt(52.2, 4.2) }},
		{"seller missing", nil, func(c *Candidate) { c.Seller = nil }},
		{"buyer zero coordinate", nil, func(c *Candidate) { c.Buyer = pt(0, 4.02) }},
		{"courier has no usable position", func(c *Courier) {
			c.LivePosition = nil
			c.HomePosition = pt(52.0, 0)
		}, nil},
		{"radius shrunk", func(c *Courier) { c.MaxDistanceKm = 2 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := onlineCourier()
			cand := base
			if tt.courier != nil {
				tt.courier(&c)
			}
			if tt.cand != nil {
				tt.cand(&cand)
			}
			_, ok := policy.Evaluate(c, cand)
			assert.False(t, ok)
		})
	}
}

func TestCourierPosition(t *testing.T) {
	c := onlineCourier()
	assert.Equal(t, c.LivePosition, c.Position())

	c.GPSTracking = false
	assert.Equal(t, c.HomePosition, c.Position())

	c.GPSTracking = true
	c.LivePosition = pt(0, 0)
	assert.Equal(t, c.HomePosition, c.Position())
}

func TestFilter_UsesStaticLocationWithoutTracking(t *testing.T) {
	c := onlineCourier()
	c.GPSTracking = false
	cand := Candidate{ID: "home", Seller: pt(51.51, 4.51), Buyer: pt(51.52, 4.52)}

	got := DefaultPolicy().Filter(c, []Candidate{cand})
	require.Len(t, got, 1)
	assert.Equal(t, "home", got[0].ID)
}

func TestFilter_OrderAndNearestFirst(t *testing.T) {
	cands := []Candidate{
		{ID: "second", Seller: pt(52.03, 4.03), Buyer: pt(52.01, 4.01)},
		{ID: "first", Seller: pt(52.005, 4.005), Buyer: pt(52.01, 4.01)},
	}

	got := DefaultPolicy().Filter(onlineCourier(), cands)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].ID)

	sorted := Policy{MinutesPerKm: 5, NearestFirst: true}.Filter(onlineCourier(), cands)
	require.Len(t, sorted, 2)
	assert.Equal(t, "first", sorted[0].ID)
}

func TestEstimateMinutes(t *testing.T) {
	tests := []struct {
		policy          Policy
		pickup, dropoff float64
		want            int
	}{
		{DefaultPolicy(), 1, 2, 15},
		{DefaultPolicy(), 0.05, 0.04, 0},
		{DefaultPolicy(), 0.1, 0.0, 1},
		{Policy{MinutesPerKm: 3}, 2, 2, 12},
		{Policy{}, 2, 2, 20},
	}
	for _, tt := range tests {
		got := tt.policy.EstimateMinutes(tt.pickup, tt.dropoff)
		if got != tt.want {
			t.Errorf("EstimateMinutes(%v, %v) = %d, want %d", tt.pickup, tt.dropoff, got, tt.want)
		}
	}
}
