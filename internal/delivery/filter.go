// Package delivery decides which open delivery candidates a courier may take.
//
// Everything here works on already-fetched data and never fails: a courier
// or candidate with unusable coordinates is simply not eligible.
package delivery

import (
	"math"
	"sort"

	"homecheff/internal/geo"
)

// DefaultMinutesPerKm is the travel-time heuristic used when no policy is configured.
const DefaultMinutesPerKm = 5.0

// Courier is the state of a deliverer at the moment of filtering.
type Courier struct {
	ID            string
	Online        bool
	GPSTracking   bool
	LivePosition  *geo.Point
	HomePosition  *geo.Point
	MaxDistanceKm float64
}

// Position returns the point distances are measured from: the live GPS fix
// when tracking is on and the courier is online, the static location otherwise.
func (c Courier) Position() *geo.Point {
	if c.Online && c.GPSTracking && c.LivePosition.Valid() {
		return c.LivePosition
	}
	return c.HomePosition
}

// Candidate is an order waiting for a third-party courier.
type Candidate struct {
	ID       string     `json:"id"`
	OrderID  string     `json:"order_id"`
	Seller   *geo.Point `json:"seller"`
	Buyer    *geo.Point `json:"buyer"`
	FeeCents int64      `json:"fee_cents"`
}

// Eligible is a candidate the courier may accept, annotated with distances and ETA.
type Eligible struct {
	Candidate
	PickupKm         float64 `json:"pickup_km"`
	DropoffKm        float64 `json:"dropoff_km"`
	EstimatedMinutes int     `json:"estimated_minutes"`
}

// Policy holds the business constants of the filter.
type Policy struct {
	MinutesPerKm float64
	// NearestFirst sorts eligible candidates by pickup distance. Off by default.
	NearestFirst bool
}

// DefaultPolicy returns the policy with the stock 5 minutes per km heuristic.
func DefaultPolicy() Policy {
	return Policy{MinutesPerKm: DefaultMinutesPerKm}
}

func (p Policy) minutesPerKm() float64 {
	if p.MinutesPerKm <= 0 {
		return DefaultMinutesPerKm
	}
	return p.MinutesPerKm
}

// EstimateMinutes is round((pickupKm + dropoffKm) * MinutesPerKm).
func (p Policy) EstimateMinutes(pickupKm, dropoffKm float64) int {
	return int(math.Round((pickupKm + dropoffKm) * p.minutesPerKm()))
}

// Evaluate checks a single candidate against the courier. Both legs, courier
// to seller and courier to buyer, must be within the courier's radius.
func (p Policy) Evaluate(c Courier, cand Candidate) (Eligible, bool) {
	if !c.Online || c.MaxDistanceKm <= 0 {
		return Eligible{}, false
	}
	from := c.Position()

	pickup, ok := geo.Distance(from, cand.Seller)
	if !ok {
		return Eligible{}, false
	}
	dropoff, ok := geo.Distance(from, cand.Buyer)
	if !ok {
		return Eligible{}, false
	}
	if pickup > c.MaxDistanceKm || dropoff > c.MaxDistanceKm {
		return Eligible{}, false
	}

	return Eligible{
		Candidate:        cand,
		PickupKm:         pickup,
		DropoffKm:        dropoff,
		EstimatedMinutes: p.EstimateMinutes(pickup, dropoff),
	}, true
}

// Filter returns the candidates the courier may accept, in input order.
func (p Policy) Filter(c Courier, cands []Candidate) []Eligible {
	out := []Eligible{}
	if !c.Online {
		return out
	}
	for _, cand := range cands {
		if e, ok := p.Evaluate(c, cand); ok {
			out = append(out, e)
		}
	}
	if p.NearestFirst {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PickupKm < out[j].PickupKm
		})
	}
	return out
}
