package models

import "homecheff/internal/repository"

// SubAffiliateRequest struct
type SubAffiliateRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// DashboardResponse struct
type DashboardResponse struct {
	repository.AffiliateSummary
	RecentPayouts []repository.PayoutRecord `json:"recent_payouts"`
}
