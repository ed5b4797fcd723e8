package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/talentbase/candidate-gateway/internal/api/dto"
	"github.com/talentbase/candidate-gateway/internal/store"
	"github.com/talentbase/candidate-gateway/internal/upstream"
)

// Dispatch handles POST /webhook
// Mints a correlation id, registers a pending record and forwards the action
// to the external automation service.
func (h *WebhookHandler) Dispatch(c *gin.Context) {
	var req dto.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid dispatch body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "categoria is required",
		})
		return
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	// The pending record is written before the upstream call and never
	// rolled back: if the forward only appears to fail, a late status
	// report for this id must still land.
	if err := h.store.CreatePending(c.Request.Context(), requestID, req.Data); err != nil {
		h.logger.Error("Failed to register pending record",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "failed to register request",
		})
		return
	}

	payload := dto.DispatchPayload{
		Categoria: req.Categoria,
		Data:      req.Data,
		RequestID: requestID,
	}

	upstreamData, err := h.upstream.Dispatch(c.Request.Context(), payload)
	if err != nil {
		status, msg := upstreamErrorResponse(err)
		h.logger.Error("Dispatch forward failed",
			slog.String("request_id", requestID),
			slog.String("categoria", req.Categoria),
			slog.Int("status", status),
			slog.String("error", msg),
		)
		c.JSON(status, gin.H{
			"ok":        false,
			"error":     msg,
			"requestId": requestID,
		})
		return
	}

	h.logger.Info("Action dispatched",
		slog.String("request_id", requestID),
		slog.String("categoria", req.Categoria),
	)

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"data":      upstreamData,
		"requestId": requestID,
	})
}

// Callback handles POST /webhook/callback
// The sole HTTP write path used by the external system to report an outcome.
func (h *WebhookHandler) Callback(c *gin.Context) {
	var req dto.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid status report", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "requestId and a status of success, error or pending are required",
		})
		return
	}

	err := h.store.SetStatus(c.Request.Context(), req.RequestID, store.Update{
		Status:  req.Status,
		Message: req.Message,
		Data:    req.Data,
	})
	if errors.Is(err, store.ErrTerminalState) {
		h.logger.Warn("Status report rejected, record already terminal",
			slog.String("request_id", req.RequestID),
			slog.String("status", req.Status),
		)
		c.JSON(http.StatusConflict, gin.H{
			"ok":    false,
			"error": "record is already in a terminal state",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to record status report",
			slog.String("request_id", req.RequestID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "failed to record status",
		})
		return
	}

	h.logger.Info("Status reported",
		slog.String("request_id", req.RequestID),
		slog.String("status", req.Status),
	)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Status handles GET /webhook/status
// Poll read: an id the store has never seen (or already swept) reads as
// pending.
func (h *WebhookHandler) Status(c *gin.Context) {
	requestID := c.Query("requestId")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "requestId query parameter is required",
		})
		return
	}

	rec, found, err := h.store.GetStatus(c.Request.Context(), requestID)
	if err != nil {
		h.logger.Error("Failed to read status",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "failed to read status",
		})
		return
	}

	resp := dto.StatusResponse{OK: true, Status: store.StatusPending}
	if found {
		resp.Status = rec.Status
		resp.Message = rec.Message
		resp.Data = rec.Data
	}

	c.JSON(http.StatusOK, resp)
}

// upstreamErrorResponse maps an upstream call failure to the HTTP status and
// message relayed to the client.
func upstreamErrorResponse(err error) (int, string) {
	if errors.Is(err, upstream.ErrNotConfigured) {
		return http.StatusInternalServerError, err.Error()
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		return upErr.StatusCode, upErr.Message
	}

	return http.StatusInternalServerError, err.Error()
}
