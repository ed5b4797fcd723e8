package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/talentbase/candidate-gateway/internal/store"
)

// HTTPStatusReader reads statuses from a gateway's GET /webhook/status
// endpoint. It is the client half of the poll contract.
type HTTPStatusReader struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPStatusReader creates a reader against the gateway at baseURL.
func NewHTTPStatusReader(baseURL string, timeout time.Duration) *HTTPStatusReader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPStatusReader{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *HTTPStatusReader) ReadStatus(ctx context.Context, requestID string) (Status, error) {
	target := fmt.Sprintf("%s/webhook/status?requestId=%s", r.baseURL, url.QueryEscape(requestID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Status{}, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("status read failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("status read returned %d", resp.StatusCode)
	}

	var body struct {
		OK      bool            `json:"ok"`
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Status{}, fmt.Errorf("failed to decode status response: %w", err)
	}

	status := body.Status
	if status == "" {
		status = store.StatusPending
	}
	return Status{Status: status, Message: body.Message, Data: body.Data}, nil
}
