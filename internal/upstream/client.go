package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// maxResponseBytes caps how much of an upstream body is read back.
	maxResponseBytes = 1 << 20

	apiKeyHeader = "X-API-KEY"
)

// ErrNotConfigured is returned when the upstream base URL or token is
// missing. Configuration is checked at call time, not at startup, so a
// misconfigured gateway still serves its health and status endpoints.
var ErrNotConfigured = errors.New("upstream base URL and token are required")

// Error describes a failed upstream call: a non-2xx response or a transport
// failure. StatusCode carries the upstream status, or 502 for network errors.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// Config holds the external automation service settings.
type Config struct {
	BaseURL     string
	Token       string
	WebhookPath string
	Timeout     time.Duration
}

// Client talks to the external automation service: the ingress webhook for
// dispatched actions and the candidate CRUD webhooks.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an upstream client. The HTTP timeout defaults to 10s,
// leaving headroom under the 30s poll budget.
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

// Dispatch forwards a dispatched action payload to the ingress webhook and
// returns the upstream response body parsed as JSON (or the raw text when it
// is not JSON).
func (c *Client) Dispatch(ctx context.Context, payload any) (json.RawMessage, error) {
	path := c.config.WebhookPath
	if path == "" {
		path = "/webhook/candidados"
	}
	return c.call(ctx, http.MethodPost, path, payload)
}

// ListCandidates fetches the candidate list from the upstream service.
func (c *Client) ListCandidates(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, http.MethodGet, "/webhook/candidates.list", nil)
}

// CreateCandidate forwards a candidate creation payload.
func (c *Client) CreateCandidate(ctx context.Context, candidate json.RawMessage) (json.RawMessage, error) {
	return c.call(ctx, http.MethodPost, "/webhook/candidates.create", candidate)
}

// UpdateCandidate forwards a candidate update, injecting the id into the
// payload the way the upstream workflow expects it.
func (c *Client) UpdateCandidate(ctx context.Context, id string, candidate json.RawMessage) (json.RawMessage, error) {
	merged, err := mergeID(candidate, id)
	if err != nil {
		return nil, fmt.Errorf("failed to merge candidate id: %w", err)
	}
	return c.call(ctx, http.MethodPut, "/webhook/candidates.update", merged)
}

// DeleteCandidate asks the upstream service to remove a candidate.
func (c *Client) DeleteCandidate(ctx context.Context, id string) (json.RawMessage, error) {
	return c.call(ctx, http.MethodDelete, "/webhook/candidates.delete", map[string]string{"id": id})
}

func (c *Client) call(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	if c.config.BaseURL == "" || c.config.Token == "" {
		return nil, ErrNotConfigured
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.config.Token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Upstream call failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return nil, &Error{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}

	c.logger.Debug("Upstream call completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = "upstream request failed"
		}
		return nil, &Error{StatusCode: resp.StatusCode, Message: msg}
	}

	return normalizeJSON(respBody), nil
}

// normalizeJSON passes valid JSON through untouched and wraps anything else
// as a JSON string, mirroring how the original proxy tolerated plain-text
// webhook responses.
func normalizeJSON(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return json.RawMessage(quoted)
}

func mergeID(candidate json.RawMessage, id string) (map[string]any, error) {
	fields := make(map[string]any)
	if len(candidate) > 0 {
		if err := json.Unmarshal(candidate, &fields); err != nil {
			return nil, err
		}
	}
	fields["id"] = id
	return fields, nil
}
