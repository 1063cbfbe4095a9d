package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	internalhttp "github.com/getpaseo/paseo/internal/api/http"
	"github.com/getpaseo/paseo/internal/api/http/handler"
	"github.com/getpaseo/paseo/internal/auth"
	"github.com/getpaseo/paseo/internal/crypto"
	"github.com/getpaseo/paseo/internal/pairing"
	"github.com/getpaseo/paseo/internal/store"
	"github.com/getpaseo/paseo/internal/tokens"
)

var AppVersion string

const serverIDKey = "server.id"

func loadOrCreateServerID(ctx context.Context, st *store.Store) (string, error) {
	id, err := st.GetSetting(ctx, serverIDKey)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := st.SetSetting(ctx, serverIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}

func main() {
	InitConfig()

	slog.Info("Paseo daemon", "version", AppVersion)

	ctx := context.Background()

	if err := os.MkdirAll(config.Data.Dir, 0o700); err != nil {
		slog.Error("Failed to create data directory", "dir", config.Data.Dir, "error", err)
		os.Exit(1)
	}

	st, err := store.Open(filepath.Join(config.Data.Dir, "paseo.db"))
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	secret, err := auth.LoadOrCreateSecret(ctx, st)
	if err != nil {
		slog.Error("Failed to load signing secret", "error", err)
		os.Exit(1)
	}

	keyPair, err := crypto.LoadOrCreateKeyPair(ctx, st)
	if err != nil {
		slog.Error("Failed to load pairing key pair", "error", err)
		os.Exit(1)
	}

	serverID, err := loadOrCreateServerID(ctx, st)
	if err != nil {
		slog.Error("Failed to load server id", "error", err)
		os.Exit(1)
	}

	jwtConfig := auth.JWTConfig{
		Secret:   secret,
		TokenTTL: auth.DefaultTokenTTL,
	}

	pushStore := tokens.NewPushStore()
	registered, err := st.ListPushRegistrations(ctx)
	if err != nil {
		slog.Error("Failed to load push registrations", "error", err)
		os.Exit(1)
	}
	for _, token := range registered {
		pushStore.Add(token)
	}

	hub := internalhttp.NewWSHub(secret)

	services := &internalhttp.Services{
		Health:    handler.NewHealthHandler(),
		Pair:      handler.NewPairHandler(st, keyPair, serverID, config.Relay.Endpoint, jwtConfig),
		Auth:      handler.NewAuthHandler(jwtConfig),
		Downloads: handler.NewDownloadHandler(tokens.NewDownloadStore(config.Downloads.TTL)),
		Push:      handler.NewPushHandler(pushStore, st),
		Hub:       hub,
		JWTSecret: secret,
	}

	printPairingOffer(serverID, keyPair, config.Relay.Endpoint)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down...")

	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Shutdown complete")
}

// printPairingOffer renders the connection offer as a terminal QR code so a
// client app can pair by scanning the daemon's console.
func printPairingOffer(serverID string, keyPair crypto.KeyPair, relayEndpoint string) {
	offer, err := pairing.NewOffer(serverID, keyPair.PublicKeyB64(), relayEndpoint)
	if err != nil {
		slog.Warn("Failed to build pairing offer", "error", err)
		return
	}
	encoded, err := offer.Encode()
	if err != nil {
		slog.Warn("Failed to encode pairing offer", "error", err)
		return
	}
	qr, err := qrcode.New(string(encoded), qrcode.Medium)
	if err != nil {
		slog.Warn("Failed to render pairing QR", "error", err)
		return
	}
	fmt.Println("Scan to pair:")
	fmt.Println(qr.ToSmallString(false))
}
