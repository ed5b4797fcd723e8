package handler

import (
	"log/slog"

	"github.com/talentbase/candidate-gateway/internal/store"
	"github.com/talentbase/candidate-gateway/internal/upstream"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Store    store.Store
	Upstream *upstream.Client
}

// WebhookHandler handles the dispatch, callback and status-read endpoints
// of the correlation subsystem.
type WebhookHandler struct {
	logger   *slog.Logger
	store    store.Store
	upstream *upstream.Client
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(deps *Dependencies) *WebhookHandler {
	return &WebhookHandler{
		logger:   deps.Logger,
		store:    deps.Store,
		upstream: deps.Upstream,
	}
}

// CandidateHandler proxies candidate CRUD requests to the external
// automation service.
type CandidateHandler struct {
	logger   *slog.Logger
	upstream *upstream.Client
}

// NewCandidateHandler creates a new CandidateHandler instance
func NewCandidateHandler(deps *Dependencies) *CandidateHandler {
	return &CandidateHandler{
		logger:   deps.Logger,
		upstream: deps.Upstream,
	}
}
