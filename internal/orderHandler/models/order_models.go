package models

import (
	"homecheff/internal/payment"
	"homecheff/internal/repository"
)

// OrderItemRequest struct
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required"`
}

// CreateOrderRequest struct
type CreateOrderRequest struct {
	SellerID     string             `json:"seller_id" validate:"required"`
	Items        []OrderItemRequest `json:"items" validate:"required"`
	DeliveryMode string             `json:"delivery_mode" validate:"required"`
}

// CreateOrderResponse struct
type CreateOrderResponse struct {
	Message    string             `json:"message"`
	Order      repository.Order   `json:"order"`
	DistanceKm *float64           `json:"distance_km,omitempty"`
	VANumbers  []payment.VANumber `json:"va_numbers"`
}

// LocationRequest carries either a street address or explicit coordinates.
type LocationRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// PaymentNotification is the part of the Midtrans webhook body in use. The
// status is never trusted and is re-read from the gateway.
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
}
