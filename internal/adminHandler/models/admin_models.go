package models

// RatesRequest sets an affiliate's custom percentages. A null field falls
// back to the system default.
type RatesRequest struct {
	UserPct           *float64 `json:"user_pct"`
	BusinessPct       *float64 `json:"business_pct"`
	ParentUserPct     *float64 `json:"parent_user_pct"`
	ParentBusinessPct *float64 `json:"parent_business_pct"`
}
