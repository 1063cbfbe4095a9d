package auth

import "net/url"

// TokenQueryParam is the query parameter carrying the bearer token on
// WebSocket upgrade requests. WebSocket handshakes cannot carry arbitrary
// per-message headers, so the token is presented at channel-open time.
const TokenQueryParam = "token"

// ValidateWebSocketToken authenticates a token supplied in a connection
// URL's query string.
func ValidateWebSocketToken(secret []byte, query url.Values) (*Claims, error) {
	token := query.Get(TokenQueryParam)
	if token == "" {
		return nil, ErrInvalidToken
	}
	return ValidateToken(secret, token)
}
