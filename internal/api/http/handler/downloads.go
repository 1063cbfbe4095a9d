package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/tokens"
)

// DownloadHandler issues single-use download tokens and redeems them for
// file contents.
type DownloadHandler struct {
	store *tokens.DownloadStore
}

func NewDownloadHandler(store *tokens.DownloadStore) *DownloadHandler {
	return &DownloadHandler{store: store}
}

// Issue creates a time-boxed download token for a file an agent produced.
// Requires a verified bearer token.
func (h *DownloadHandler) Issue(c *gin.Context) {
	var req dto.IssueDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.store.Issue(tokens.DownloadGrant{
		AgentID:  req.AgentID,
		Path:     req.Path,
		MimeType: req.MimeType,
		Size:     req.Size,
	})
	if err != nil {
		slog.Error("Failed to issue download token", "agent_id", req.AgentID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, dto.IssueDownloadResponse{
		Token:     entry.Token,
		ExpiresAt: entry.ExpiresAt.Format(time.RFC3339),
	})
}

// Redeem consumes a download token and streams the granted file. The token
// itself is the only credential; absent, consumed, and expired tokens are
// indistinguishable.
func (h *DownloadHandler) Redeem(c *gin.Context) {
	entry, err := h.store.Consume(c.Param("token"))
	if err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	grant := entry.Payload
	if _, err := os.Stat(grant.Path); err != nil {
		slog.Warn("Download grant points at missing file", "path", grant.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if grant.MimeType != "" {
		c.Header("Content-Type", grant.MimeType)
	}
	if grant.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(grant.Size, 10))
	}
	slog.Info("Download token redeemed", "agent_id", grant.AgentID, "path", grant.Path)
	c.File(grant.Path)
}
