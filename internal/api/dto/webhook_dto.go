package dto

import "encoding/json"

// DispatchRequest is the body of POST /webhook. RequestID is normally minted
// by the gateway; a client may supply its own to correlate retries.
type DispatchRequest struct {
	Categoria string          `json:"categoria" binding:"required"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

// DispatchPayload is what gets forwarded to the external automation service.
type DispatchPayload struct {
	Categoria string          `json:"categoria"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"requestId"`
}

// CallbackRequest is the body of POST /webhook/callback, the status report
// posted back by the external automation service.
type CallbackRequest struct {
	RequestID string          `json:"requestId" binding:"required"`
	Status    string          `json:"status" binding:"required,oneof=success error pending"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// StatusResponse is the body of GET /webhook/status. An id unknown to the
// store reads as pending.
type StatusResponse struct {
	OK      bool            `json:"ok"`
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
