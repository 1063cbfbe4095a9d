// Package relay builds the websocket addresses used to reach a daemon
// through the relay, and negotiates the relay protocol version. The query
// parameter names and their order are part of the compatibility surface
// shared with the relay.
package relay

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Protocol versions the relay speaks. Version 2 is current.
const (
	VersionV1 = "1"
	VersionV2 = "2"

	// DefaultVersion is used when a caller does not pin a version.
	DefaultVersion = VersionV2
)

// Connection roles. A client embeds its session key so the relay can route
// the daemon's outbound frames back to it; a daemon-side connection carries
// no client key.
const (
	RoleClient = "client"
	RoleServer = "server"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported relay version")
	ErrInvalidRole        = errors.New("invalid relay role")
	ErrMissingSessionKey  = errors.New("client session key required for client role")
	ErrMissingEndpoint    = errors.New("relay endpoint required")
	ErrMissingServerID    = errors.New("relay server id required")
)

// ConnectionParams describe one relay connection attempt. Not persisted.
type ConnectionParams struct {
	Endpoint string
	ServerID string
	Role     string

	// Version pins the relay protocol version; empty selects DefaultVersion.
	Version string

	// ClientSessionKey is required when Role is RoleClient.
	ClientSessionKey string
}

// NormalizeProtocolVersion maps the accepted numeric and string forms of a
// relay version onto the canonical "1"/"2". Anything else is an explicit
// error, never a silent clamp.
func NormalizeProtocolVersion(input any) (string, error) {
	switch v := input.(type) {
	case string:
		switch v {
		case VersionV1, VersionV2:
			return v, nil
		}
	case int:
		return normalizeNumericVersion(int64(v))
	case int64:
		return normalizeNumericVersion(v)
	case float64:
		if v == float64(int64(v)) {
			return normalizeNumericVersion(int64(v))
		}
	}
	return "", fmt.Errorf("%w: %v", ErrUnsupportedVersion, input)
}

func normalizeNumericVersion(v int64) (string, error) {
	switch v {
	case 1:
		return VersionV1, nil
	case 2:
		return VersionV2, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
}

// BuildURL constructs the relay websocket address for params. Query
// parameters are written in a fixed order (v, clientId, serverId, role) so
// the produced URL is reproducible.
func BuildURL(params ConnectionParams) (string, error) {
	if params.Endpoint == "" {
		return "", ErrMissingEndpoint
	}
	if params.ServerID == "" {
		return "", ErrMissingServerID
	}

	version := params.Version
	if version == "" {
		version = DefaultVersion
	}
	version, err := NormalizeProtocolVersion(version)
	if err != nil {
		return "", err
	}

	switch params.Role {
	case RoleClient:
		if params.ClientSessionKey == "" {
			return "", ErrMissingSessionKey
		}
	case RoleServer:
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, params.Role)
	}

	var query strings.Builder
	query.WriteString("v=" + url.QueryEscape(version))
	if params.Role == RoleClient {
		query.WriteString("&clientId=" + url.QueryEscape(params.ClientSessionKey))
	}
	query.WriteString("&serverId=" + url.QueryEscape(params.ServerID))
	query.WriteString("&role=" + url.QueryEscape(params.Role))

	endpoint := params.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = "wss://" + endpoint
	}
	return endpoint + "?" + query.String(), nil
}
