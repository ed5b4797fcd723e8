package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// List handles GET /api/candidates
func (h *CandidateHandler) List(c *gin.Context) {
	data, err := h.upstream.ListCandidates(c.Request.Context())
	if err != nil {
		h.relayError(c, "list candidates", err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// Create handles POST /api/candidates
func (h *CandidateHandler) Create(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	data, err := h.upstream.CreateCandidate(c.Request.Context(), body)
	if err != nil {
		h.relayError(c, "create candidate", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// Update handles PUT /api/candidates/:id
func (h *CandidateHandler) Update(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	data, err := h.upstream.UpdateCandidate(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		h.relayError(c, "update candidate", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// Delete handles DELETE /api/candidates/:id
func (h *CandidateHandler) Delete(c *gin.Context) {
	data, err := h.upstream.DeleteCandidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.relayError(c, "delete candidate", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "data": data})
}

// readBody reads the raw request body and checks it is valid JSON before
// forwarding it verbatim.
func (h *CandidateHandler) readBody(c *gin.Context) (json.RawMessage, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "a JSON body is required",
		})
		return nil, false
	}
	return json.RawMessage(body), true
}

func (h *CandidateHandler) relayError(c *gin.Context, op string, err error) {
	status, msg := upstreamErrorResponse(err)
	h.logger.Error("Candidate proxy call failed",
		slog.String("operation", op),
		slog.Int("status", status),
		slog.String("error", msg),
	)
	c.JSON(status, gin.H{"ok": false, "error": msg})
}
