package systemtest

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalhttp "github.com/getpaseo/paseo/internal/api/http"
	"github.com/getpaseo/paseo/internal/api/http/handler"
	"github.com/getpaseo/paseo/internal/auth"
	"github.com/getpaseo/paseo/internal/crypto"
	"github.com/getpaseo/paseo/internal/store"
	"github.com/getpaseo/paseo/internal/tokens"
	"github.com/getpaseo/paseo/systemtest/tests"
)

func TestSystemIntegration(t *testing.T) {
	gin.SetMode(gin.TestMode)

	ctx := context.Background()

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	secret, err := auth.LoadOrCreateSecret(ctx, st)
	require.NoError(t, err)
	keyPair, err := crypto.LoadOrCreateKeyPair(ctx, st)
	require.NoError(t, err)

	jwtConfig := auth.JWTConfig{Secret: secret, TokenTTL: auth.DefaultTokenTTL}
	hub := internalhttp.NewWSHub(secret)
	defer hub.Shutdown()

	services := &internalhttp.Services{
		Health:    handler.NewHealthHandler(),
		Pair:      handler.NewPairHandler(st, keyPair, "systemtest-daemon", "relay.example.com:443", jwtConfig),
		Auth:      handler.NewAuthHandler(jwtConfig),
		Downloads: handler.NewDownloadHandler(tokens.NewDownloadStore(time.Minute)),
		Push:      handler.NewPushHandler(tokens.NewPushStore(), st),
		Hub:       hub,
		JWTSecret: secret,
	}

	engine := gin.New()
	internalhttp.SetupRoute(engine, services)

	t.Run("HealthCheck", func(t *testing.T) {
		rr := tests.DoHealth(engine)
		assert.Equal(t, 200, rr.Code)
	})

	var client *tests.PairedClient
	t.Run("Pairing", func(t *testing.T) {
		client = tests.TestPairingFlow(t, engine, secret)
	})
	require.NotNil(t, client)

	t.Run("Refresh", func(t *testing.T) { tests.TestRefreshFlow(t, engine, client) })
	t.Run("Downloads", func(t *testing.T) { tests.TestDownloadFlow(t, engine, client) })
	t.Run("Push", func(t *testing.T) { tests.TestPushFlow(t, engine, client) })
}
