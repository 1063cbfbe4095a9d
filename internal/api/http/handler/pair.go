package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/auth"
	"github.com/getpaseo/paseo/internal/crypto"
	"github.com/getpaseo/paseo/internal/pairing"
)

const totpSecretKey = "auth.totp_secret"

// SettingsStore is the slice of the sqlite store the pairing flow needs.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// PairHandler serves the connection offer and claims pairing requests,
// exchanging them for bearer tokens.
type PairHandler struct {
	settings      SettingsStore
	keyPair       crypto.KeyPair
	serverID      string
	relayEndpoint string
	jwtConfig     auth.JWTConfig
}

func NewPairHandler(settings SettingsStore, keyPair crypto.KeyPair, serverID, relayEndpoint string, jwtConfig auth.JWTConfig) *PairHandler {
	return &PairHandler{
		settings:      settings,
		keyPair:       keyPair,
		serverID:      serverID,
		relayEndpoint: relayEndpoint,
		jwtConfig:     jwtConfig,
	}
}

// Offer returns the daemon's current v2 connection offer.
func (h *PairHandler) Offer(c *gin.Context) {
	offer, err := pairing.NewOffer(h.serverID, h.keyPair.PublicKeyB64(), h.relayEndpoint)
	if err != nil {
		slog.Error("Failed to build connection offer", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, offer)
}

// Pair claims a pairing request. When a TOTP secret is configured the
// submitted code must verify; the issued bearer token is returned sealed to
// the client's ephemeral public key so only the requester can read it.
func (h *PairHandler) Pair(c *gin.Context) {
	var req dto.PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	clientKey, err := crypto.ParsePublicKeyB64(req.ClientPublicKeyB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client public key"})
		return
	}

	totpSecret, err := h.settings.GetSetting(c.Request.Context(), totpSecretKey)
	if err != nil {
		slog.Error("Failed to load totp secret", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if totpSecret != "" {
		if err := auth.VerifyTOTP(totpSecret, req.TOTPCode); err != nil {
			// Deliberately the same answer for a missing and a wrong code.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}
	}

	clientID := uuid.NewString()
	token, err := auth.GenerateToken(h.jwtConfig, clientID, req.ClientName)
	if err != nil {
		slog.Error("Failed to generate token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	payload, err := json.Marshal(gin.H{"token": token, "clientId": clientID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	sealed, err := crypto.Seal(payload, clientKey)
	if err != nil {
		slog.Error("Failed to seal pairing reply", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	slog.Info("Client paired", "client_id", clientID, "client_name", req.ClientName)
	c.JSON(http.StatusOK, dto.PairResponse{SealedB64: base64.StdEncoding.EncodeToString(sealed)})
}

// SetupTOTP generates (or explicitly regenerates) the daemon's TOTP secret.
func (h *PairHandler) SetupTOTP(c *gin.Context) {
	var req dto.TOTPSetupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	existing, err := h.settings.GetSetting(c.Request.Context(), totpSecretKey)
	if err != nil {
		slog.Error("Failed to load totp secret", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if existing != "" && !req.Regenerate {
		c.JSON(http.StatusConflict, gin.H{"error": "totp secret already configured"})
		return
	}

	secret, err := auth.GenerateTOTPSecret("Paseo", h.serverID)
	if err != nil {
		slog.Error("Failed to generate totp secret", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err := h.settings.SetSetting(c.Request.Context(), totpSecretKey, secret.Secret); err != nil {
		slog.Error("Failed to persist totp secret", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, dto.TOTPSetupResponse{Secret: secret.Secret, URI: secret.URI})
}
