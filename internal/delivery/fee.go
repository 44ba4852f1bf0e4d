package delivery

import "math"

// FeeSchedule prices courier delivery from the seller to the buyer.
type FeeSchedule struct {
	BaseCents      int64
	RatePerKmCents int64
}

// Fee charges the base plus the per-km rate over the distance rounded up to
// the next 0.1 km.
func (f FeeSchedule) Fee(distanceKm float64) int64 {
	if distanceKm <= 0 {
		return f.BaseCents
	}
	rounded := math.Ceil(distanceKm*10) / 10
	return f.BaseCents + int64(math.Round(rounded*float64(f.RatePerKmCents)))
}
