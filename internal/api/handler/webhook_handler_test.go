package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentbase/candidate-gateway/internal/api/handler"
	"github.com/talentbase/candidate-gateway/internal/api/router"
	"github.com/talentbase/candidate-gateway/internal/store"
	"github.com/talentbase/candidate-gateway/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newGateway wires a router over a fresh memory store and an upstream fake.
func newGateway(t *testing.T, protectTerminal bool, upstreamHandler http.HandlerFunc) (*gin.Engine, *store.MemoryStore) {
	t.Helper()

	st := store.NewMemoryStore(protectTerminal)

	cfg := &upstream.Config{Timeout: 2 * time.Second}
	if upstreamHandler != nil {
		srv := httptest.NewServer(upstreamHandler)
		t.Cleanup(srv.Close)
		cfg.BaseURL = srv.URL
		cfg.Token = "test-token"
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger:   testLogger(),
		Store:    st,
		Upstream: upstream.NewClient(cfg, testLogger()),
	})
	return r, st
}

func doJSON(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDispatch_MintsRequestIDAndRegistersPending(t *testing.T) {
	var forwarded map[string]any
	r, st := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(body, &forwarded)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	})

	w := doJSON(r, http.MethodPost, "/webhook",
		`{"categoria":"Cadastrar","data":{"nome_completo":"Ana Silva","email":"ana@x.com"}}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OK        bool            `json:"ok"`
		Data      json.RawMessage `json:"data"`
		RequestID string          `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.RequestID)
	assert.JSONEq(t, `{"accepted":true}`, string(resp.Data))

	// The forwarded payload carries the minted id.
	assert.Equal(t, "Cadastrar", forwarded["categoria"])
	assert.Equal(t, resp.RequestID, forwarded["requestId"])

	rec, found, err := st.GetStatus(context.Background(), resp.RequestID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, store.StatusPending, rec.Status)
}

func TestDispatch_KeepsClientSuppliedID(t *testing.T) {
	r, st := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	w := doJSON(r, http.MethodPost, "/webhook",
		`{"categoria":"Buscar","requestId":"client-id-7"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"requestId":"client-id-7"`)

	_, found, _ := st.GetStatus(context.Background(), "client-id-7")
	assert.True(t, found)
}

func TestDispatch_MissingCategoria(t *testing.T) {
	r, _ := newGateway(t, false, nil)

	w := doJSON(r, http.MethodPost, "/webhook", `{"data":{}}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)
}

func TestDispatch_UpstreamFailureLeavesPendingRecord(t *testing.T) {
	r, st := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "workflow error", http.StatusBadGateway)
	})

	w := doJSON(r, http.MethodPost, "/webhook", `{"categoria":"Cadastrar","data":{}}`)

	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp struct {
		OK        bool   `json:"ok"`
		Error     string `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "workflow error", resp.Error)
	require.NotEmpty(t, resp.RequestID)

	// Not rolled back: a late status report for this id must still land.
	rec, found, err := st.GetStatus(context.Background(), resp.RequestID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, store.StatusPending, rec.Status)
}

func TestDispatch_UpstreamNotConfigured(t *testing.T) {
	r, _ := newGateway(t, false, nil)

	w := doJSON(r, http.MethodPost, "/webhook", `{"categoria":"Cadastrar"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "upstream base URL and token are required")
}

func TestCallback_ValidReportIsReadable(t *testing.T) {
	r, _ := newGateway(t, false, nil)

	w := doJSON(r, http.MethodPost, "/webhook/callback",
		`{"requestId":"req-1","status":"success","data":{"id":"42"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	read := doJSON(r, http.MethodGet, "/webhook/status?requestId=req-1", "")
	require.Equal(t, http.StatusOK, read.Code)

	var resp struct {
		OK     bool            `json:"ok"`
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(read.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, store.StatusSuccess, resp.Status)
	assert.JSONEq(t, `{"id":"42"}`, string(resp.Data))
}

func TestCallback_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing status", body: `{"requestId":"req-1"}`},
		{name: "missing requestId", body: `{"status":"success"}`},
		{name: "unrecognized status", body: `{"requestId":"req-1","status":"unknown"}`},
		{name: "empty body", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st := newGateway(t, false, nil)

			w := doJSON(r, http.MethodPost, "/webhook/callback", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"ok":false`)

			// Store untouched.
			_, found, err := st.GetStatus(context.Background(), "req-1")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestCallback_UnknownIDIsAccepted(t *testing.T) {
	// The reporter may beat the dispatcher; reports for ids never
	// dispatched are still recorded.
	r, st := newGateway(t, false, nil)

	w := doJSON(r, http.MethodPost, "/webhook/callback",
		`{"requestId":"never-dispatched","status":"error","message":"boom"}`)

	require.Equal(t, http.StatusOK, w.Code)

	rec, found, err := st.GetStatus(context.Background(), "never-dispatched")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, store.StatusError, rec.Status)
	assert.Equal(t, "boom", rec.Message)
}

func TestCallback_TerminalProtection(t *testing.T) {
	r, st := newGateway(t, true, nil)

	w := doJSON(r, http.MethodPost, "/webhook/callback",
		`{"requestId":"req-1","status":"success"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/webhook/callback",
		`{"requestId":"req-1","status":"pending"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	rec, _, _ := st.GetStatus(context.Background(), "req-1")
	assert.Equal(t, store.StatusSuccess, rec.Status)
}

func TestStatus_UnknownIDReadsAsPending(t *testing.T) {
	r, _ := newGateway(t, false, nil)

	w := doJSON(r, http.MethodGet, "/webhook/status?requestId=ghost", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"status":"pending"}`, w.Body.String())
}

func TestStatus_MissingRequestID(t *testing.T) {
	r, _ := newGateway(t, false, nil)

	w := doJSON(r, http.MethodGet, "/webhook/status", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)
}

func TestDispatchCallbackStatus_RoundTrip(t *testing.T) {
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"accepted":true}`))
	})

	w := doJSON(r, http.MethodPost, "/webhook",
		`{"categoria":"Cadastrar","data":{"nome_completo":"Ana Silva","email":"ana@x.com"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var dispatched struct {
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dispatched))

	w = doJSON(r, http.MethodPost, "/webhook/callback",
		`{"requestId":"`+dispatched.RequestID+`","status":"success","data":{"id":"42"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	read := doJSON(r, http.MethodGet, "/webhook/status?requestId="+dispatched.RequestID, "")
	require.Equal(t, http.StatusOK, read.Code)

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(read.Body.Bytes(), &resp))
	assert.Equal(t, store.StatusSuccess, resp.Status)
	assert.JSONEq(t, `{"id":"42"}`, string(resp.Data))
}
