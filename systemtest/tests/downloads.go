package tests

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpaseo/paseo/internal/api/http/dto"
)

func TestDownloadFlow(t *testing.T, router *gin.Engine, client *PairedClient) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"done":true}`), 0o600))

	t.Run("issue requires auth", func(t *testing.T) {
		rr := doJSON(router, "POST", "/v1/downloads", dto.IssueDownloadRequest{AgentID: "agent-1", Path: path})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	rr := doJSONWithAuth(router, "POST", "/v1/downloads", dto.IssueDownloadRequest{
		AgentID:  "agent-1",
		Path:     path,
		MimeType: "application/json",
	}, client.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	var issued dto.IssueDownloadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &issued))
	require.NotEmpty(t, issued.Token)

	t.Run("redeem without bearer token", func(t *testing.T) {
		rr := doJSON(router, "GET", "/v1/downloads/"+issued.Token, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, `{"done":true}`, rr.Body.String())
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	})

	t.Run("second redeem fails", func(t *testing.T) {
		rr := doJSON(router, "GET", "/v1/downloads/"+issued.Token, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPushFlow(t *testing.T, router *gin.Engine, client *PairedClient) {
	rr := doJSONWithAuth(router, "POST", "/v1/push", dto.PushRegisterRequest{Token: "apns-handle-1"}, client.Token)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doJSONWithAuth(router, "GET", "/v1/push", nil, client.Token)
	require.Equal(t, http.StatusOK, rr.Code)

	var list dto.PushListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Contains(t, list.Tokens, "apns-handle-1")

	rr = doJSONWithAuth(router, "DELETE", "/v1/push/apns-handle-1", nil, client.Token)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
