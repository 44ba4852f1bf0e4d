package models

// MessageRequest struct
type MessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// SocketError is sent over the websocket when an incoming message is rejected.
type SocketError struct {
	Error string `json:"error"`
}
