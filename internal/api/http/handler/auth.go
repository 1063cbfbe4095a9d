package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/api/http/middleware"
	"github.com/getpaseo/paseo/internal/auth"
)

// AuthHandler renews bearer tokens for already-authenticated clients.
type AuthHandler struct {
	jwtConfig auth.JWTConfig
}

func NewAuthHandler(jwtConfig auth.JWTConfig) *AuthHandler {
	return &AuthHandler{jwtConfig: jwtConfig}
}

// Refresh issues a fresh token for the verified caller. The refreshed flag
// tells the client whether renewal was actually due; refreshing early is
// harmless.
func (h *AuthHandler) Refresh(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	token, err := auth.GenerateToken(h.jwtConfig, claims.ClientID, claims.ClientName)
	if err != nil {
		slog.Error("Failed to refresh token", "client_id", claims.ClientID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, dto.RefreshResponse{
		Token:     token,
		Refreshed: auth.ShouldRefreshToken(claims, time.Now()),
	})
}
