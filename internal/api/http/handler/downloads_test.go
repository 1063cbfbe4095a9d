package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/tokens"
)

func setupDownloadRouter(h *DownloadHandler) *gin.Engine {
	r := gin.New()
	r.POST("/v1/downloads", h.Issue)
	r.GET("/v1/downloads/:token", h.Redeem)
	return r
}

func issueToken(t *testing.T, r *gin.Engine, req dto.IssueDownloadRequest) dto.IssueDownloadResponse {
	t.Helper()

	body, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest("POST", "/v1/downloads", bytes.NewBuffer(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.IssueDownloadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp
}

func TestIssueAndRedeem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")
	require.NoError(t, os.WriteFile(path, []byte("agent output"), 0o600))

	h := NewDownloadHandler(tokens.NewDownloadStore(time.Minute))
	r := setupDownloadRouter(h)

	resp := issueToken(t, r, dto.IssueDownloadRequest{
		AgentID:  "agent-1",
		Path:     path,
		MimeType: "text/plain",
	})

	req, _ := http.NewRequest("GET", "/v1/downloads/"+resp.Token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "agent output", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}

func TestRedeemIsSingleUse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	h := NewDownloadHandler(tokens.NewDownloadStore(time.Minute))
	r := setupDownloadRouter(h)

	resp := issueToken(t, r, dto.IssueDownloadRequest{AgentID: "agent-1", Path: path})

	req, _ := http.NewRequest("GET", "/v1/downloads/"+resp.Token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req, _ = http.NewRequest("GET", "/v1/downloads/"+resp.Token, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedeemUnknownToken(t *testing.T) {
	h := NewDownloadHandler(tokens.NewDownloadStore(time.Minute))
	r := setupDownloadRouter(h)

	req, _ := http.NewRequest("GET", "/v1/downloads/deadbeef", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedeemMissingFile(t *testing.T) {
	h := NewDownloadHandler(tokens.NewDownloadStore(time.Minute))
	r := setupDownloadRouter(h)

	resp := issueToken(t, r, dto.IssueDownloadRequest{
		AgentID: "agent-1",
		Path:    filepath.Join(t.TempDir(), "missing.txt"),
	})

	req, _ := http.NewRequest("GET", "/v1/downloads/"+resp.Token, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIssueMissingPath(t *testing.T) {
	h := NewDownloadHandler(tokens.NewDownloadStore(time.Minute))
	r := setupDownloadRouter(h)

	body, _ := json.Marshal(dto.IssueDownloadRequest{AgentID: "agent-1"})
	req, _ := http.NewRequest("POST", "/v1/downloads", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
