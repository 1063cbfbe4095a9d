package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/store"
	"github.com/getpaseo/paseo/internal/tokens"
)

// PushHandler manages push-registration handles: in-memory set semantics
// mirrored into sqlite so registrations survive daemon restarts.
type PushHandler struct {
	registrations *tokens.PushStore
	persistence   *store.Store
}

func NewPushHandler(registrations *tokens.PushStore, persistence *store.Store) *PushHandler {
	return &PushHandler{registrations: registrations, persistence: persistence}
}

func (h *PushHandler) Register(c *gin.Context) {
	var req dto.PushRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.persistence != nil {
		if err := h.persistence.AddPushRegistration(c.Request.Context(), req.Token); err != nil {
			slog.Error("Failed to persist push registration", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}
	h.registrations.Add(req.Token)

	c.Status(http.StatusNoContent)
}

func (h *PushHandler) Unregister(c *gin.Context) {
	token := c.Param("token")

	if h.persistence != nil {
		if _, err := h.persistence.RemovePushRegistration(c.Request.Context(), token); err != nil {
			slog.Error("Failed to remove push registration", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}
	removed := h.registrations.Remove(token)

	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PushHandler) List(c *gin.Context) {
	list := h.registrations.ListAll()
	if list == nil {
		list = []string{}
	}
	c.JSON(http.StatusOK, dto.PushListResponse{Tokens: list})
}
