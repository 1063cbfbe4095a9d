package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProtocolVersion(t *testing.T) {
	for _, input := range []any{1, int64(1), float64(1), "1"} {
		got, err := NormalizeProtocolVersion(input)
		require.NoError(t, err, "input %v", input)
		assert.Equal(t, VersionV1, got)
	}
	for _, input := range []any{2, int64(2), float64(2), "2"} {
		got, err := NormalizeProtocolVersion(input)
		require.NoError(t, err, "input %v", input)
		assert.Equal(t, VersionV2, got)
	}
}

func TestNormalizeProtocolVersionRejects(t *testing.T) {
	for _, input := range []any{0, 3, "3", "v2", "", 1.5, nil, true} {
		_, err := NormalizeProtocolVersion(input)
		assert.ErrorIs(t, err, ErrUnsupportedVersion, "input %v", input)
	}
}

func TestBuildURLClientDefaults(t *testing.T) {
	url, err := BuildURL(ConnectionParams{
		Endpoint:         "relay.x:443",
		ServerID:         "srv1",
		Role:             RoleClient,
		ClientSessionKey: "csk1",
	})
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.x:443?v=2&clientId=csk1&serverId=srv1&role=client", url)
}

func TestBuildURLServerRole(t *testing.T) {
	url, err := BuildURL(ConnectionParams{
		Endpoint: "relay.x:443",
		ServerID: "srv1",
		Role:     RoleServer,
		Version:  VersionV1,
	})
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.x:443?v=1&serverId=srv1&role=server", url)
}

func TestBuildURLKeepsExplicitScheme(t *testing.T) {
	url, err := BuildURL(ConnectionParams{
		Endpoint: "ws://localhost:8080/relay",
		ServerID: "srv1",
		Role:     RoleServer,
	})
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/relay?v=2&serverId=srv1&role=server", url)
}

func TestBuildURLEscapesValues(t *testing.T) {
	url, err := BuildURL(ConnectionParams{
		Endpoint:         "relay.x:443",
		ServerID:         "srv 1",
		Role:             RoleClient,
		ClientSessionKey: "key&value",
	})
	require.NoError(t, err)
	assert.Equal(t, "wss://relay.x:443?v=2&clientId=key%26value&serverId=srv+1&role=client", url)
}

func TestBuildURLValidation(t *testing.T) {
	_, err := BuildURL(ConnectionParams{ServerID: "srv1", Role: RoleServer})
	assert.ErrorIs(t, err, ErrMissingEndpoint)

	_, err = BuildURL(ConnectionParams{Endpoint: "relay.x:443", Role: RoleServer})
	assert.ErrorIs(t, err, ErrMissingServerID)

	_, err = BuildURL(ConnectionParams{Endpoint: "relay.x:443", ServerID: "srv1", Role: RoleClient})
	assert.ErrorIs(t, err, ErrMissingSessionKey)

	_, err = BuildURL(ConnectionParams{Endpoint: "relay.x:443", ServerID: "srv1", Role: "observer"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = BuildURL(ConnectionParams{Endpoint: "relay.x:443", ServerID: "srv1", Role: RoleServer, Version: "3"})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
