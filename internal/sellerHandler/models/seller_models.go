package models

import "encoding/json"

// ProductRequest struct
type ProductRequest struct {
	Title       string          `json:"title" validate:"required"`
	Description string          `json:"description"`
	PriceCents  int64           `json:"price_cents" validate:"required"`
	Stock       int             `json:"stock"`
	Recipe      json.RawMessage `json:"recipe,omitempty"`
	GrowingLog  json.RawMessage `json:"growing_log,omitempty"`
}
