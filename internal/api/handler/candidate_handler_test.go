package handler_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidates_ListProxiesUpstream(t *testing.T) {
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/webhook/candidates.list", req.URL.Path)
		assert.Equal(t, "test-token", req.Header.Get("X-API-KEY"))
		_, _ = w.Write([]byte(`[{"id":"1","nome_completo":"Ana Silva"}]`))
	})

	w := doJSON(r, http.MethodGet, "/api/candidates", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"ok":true,"data":[{"id":"1","nome_completo":"Ana Silva"}]}`, w.Body.String())
}

func TestCandidates_CreateForwardsBody(t *testing.T) {
	var gotBody string
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		_, _ = w.Write([]byte(`{"id":"9"}`))
	})

	w := doJSON(r, http.MethodPost, "/api/candidates",
		`{"nome_completo":"Ana Silva","email":"ana@x.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"nome_completo":"Ana Silva","email":"ana@x.com"}`, gotBody)
}

func TestCandidates_UpdateInjectsID(t *testing.T) {
	var gotBody string
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		assert.Equal(t, http.MethodPut, req.Method)
		_, _ = w.Write([]byte(`{}`))
	})

	w := doJSON(r, http.MethodPut, "/api/candidates/42", `{"email":"novo@x.com"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"novo@x.com","id":"42"}`, gotBody)
}

func TestCandidates_DeleteSendsID(t *testing.T) {
	var gotBody string
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		assert.Equal(t, http.MethodDelete, req.Method)
		_, _ = w.Write([]byte(`{}`))
	})

	w := doJSON(r, http.MethodDelete, "/api/candidates/42", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"42"}`, gotBody)
}

func TestCandidates_UpstreamStatusPassesThrough(t *testing.T) {
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "not allowed", http.StatusForbidden)
	})

	w := doJSON(r, http.MethodGet, "/api/candidates", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not allowed")
}

func TestCandidates_NotConfigured(t *testing.T) {
	r, _ := newGateway(t, false, nil)

	w := doJSON(r, http.MethodGet, "/api/candidates", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCandidates_CreateRejectsInvalidBody(t *testing.T) {
	r, _ := newGateway(t, false, func(w http.ResponseWriter, req *http.Request) {
		t.Error("upstream must not be called for an invalid body")
	})

	w := doJSON(r, http.MethodPost, "/api/candidates", `not json`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
