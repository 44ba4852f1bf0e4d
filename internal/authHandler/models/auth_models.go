package models

// RegisterRequest struct
type RegisterRequest struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required"`
	Role         string `json:"role" validate:"required"`
	ReferralCode string `json:"referral_code"`
}

// RegisterResponse struct
type RegisterResponse struct {
	Message      string `json:"message"`
	ID           string `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	ReferralCode string `json:"referral_code,omitempty"`
}

// LoginRequest struct
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse struct
type LoginResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
