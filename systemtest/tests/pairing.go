package tests

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/auth"
	"github.com/getpaseo/paseo/internal/crypto"
	"github.com/getpaseo/paseo/internal/pairing"
)

// PairedClient is the state a client holds after completing the pairing
// flow against a daemon.
type PairedClient struct {
	Token    string
	ClientID string
	Offer    pairing.ConnectionOffer
}

func TestPairingFlow(t *testing.T, router *gin.Engine, jwtSecret []byte) *PairedClient {
	rr := doJSON(router, "GET", "/v1/pair/offer", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	offer, err := pairing.ParseOffer(rr.Body.Bytes())
	require.NoError(t, err)

	clientKeys, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	rr = doJSON(router, "POST", "/v1/pair", dto.PairRequest{
		ClientPublicKeyB64: clientKeys.PublicKeyB64(),
		ClientName:         "systemtest",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp dto.PairResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	sealed, err := base64.StdEncoding.DecodeString(resp.SealedB64)
	require.NoError(t, err)
	plaintext, err := crypto.Open(sealed, &clientKeys.Private)
	require.NoError(t, err)

	var reply struct {
		Token    string `json:"token"`
		ClientID string `json:"clientId"`
	}
	require.NoError(t, json.Unmarshal(plaintext, &reply))

	claims, err := auth.ValidateToken(jwtSecret, reply.Token)
	require.NoError(t, err)
	assert.Equal(t, reply.ClientID, claims.ClientID)

	return &PairedClient{Token: reply.Token, ClientID: reply.ClientID, Offer: offer}
}

func TestRefreshFlow(t *testing.T, router *gin.Engine, client *PairedClient) {
	t.Run("without token", func(t *testing.T) {
		rr := doJSON(router, "POST", "/v1/auth/refresh", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("with paired token", func(t *testing.T) {
		rr := doJSONWithAuth(router, "POST", "/v1/auth/refresh", nil, client.Token)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.RefreshResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
	})
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	return doJSONWithAuth(router, method, path, body, "")
}

func doJSONWithAuth(router *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
