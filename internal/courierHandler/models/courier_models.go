package models

import "homecheff/internal/geo"

// StatusRequest struct
type StatusRequest struct {
	Online bool `json:"online"`
}

// SettingsRequest struct
type SettingsRequest struct {
	GPSTracking    bool       `json:"gps_tracking"`
	MaxDistanceKm  float64    `json:"max_distance_km"`
	Home           *geo.Point `json:"home"`
	TelegramChatID *int64     `json:"telegram_chat_id"`
}

// PositionRequest struct
type PositionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
