// Package pairing implements the versioned connection-offer payload a
// client exchanges with a daemon once during pairing. An offer describes how
// to reach the daemon: its durable identifier (doubling as the relay session
// id), its public key, and the relay endpoint to fall back to when the
// daemon is not directly reachable.
package pairing

import (
	"encoding/json"
	"errors"
	"fmt"
)

// OfferVersion is the current (and only supported) offer schema version.
const OfferVersion = 2

var (
	// ErrMalformedOffer reports a payload that is not valid JSON at all.
	ErrMalformedOffer = errors.New("malformed offer payload")

	// ErrInvalidOffer reports a well-formed payload that violates the v2
	// shape: wrong version or a missing/empty required field.
	ErrInvalidOffer = errors.New("invalid offer")
)

// RelayInfo is the relay fallback endpoint embedded in an offer.
type RelayInfo struct {
	Endpoint string `json:"endpoint"`
}

// ConnectionOffer is the v2 pairing payload. Immutable once constructed;
// offers are single-use inputs to a connection attempt and are never
// persisted by this layer.
type ConnectionOffer struct {
	Version            int       `json:"v"`
	ServerID           string    `json:"serverId"`
	DaemonPublicKeyB64 string    `json:"daemonPublicKeyB64"`
	Relay              RelayInfo `json:"relay"`
}

// NewOffer constructs a validated v2 offer.
func NewOffer(serverID, daemonPublicKeyB64, relayEndpoint string) (ConnectionOffer, error) {
	offer := ConnectionOffer{
		Version:            OfferVersion,
		ServerID:           serverID,
		DaemonPublicKeyB64: daemonPublicKeyB64,
		Relay:              RelayInfo{Endpoint: relayEndpoint},
	}
	if err := offer.Validate(); err != nil {
		return ConnectionOffer{}, err
	}
	return offer, nil
}

// ParseOffer decodes and validates an incoming offer. Decoding and shape
// failures are distinct: a consumer can tell garbage from a valid payload
// of the wrong version.
func ParseOffer(data []byte) (ConnectionOffer, error) {
	var offer ConnectionOffer
	if err := json.Unmarshal(data, &offer); err != nil {
		return ConnectionOffer{}, fmt.Errorf("%w: %v", ErrMalformedOffer, err)
	}
	if err := offer.Validate(); err != nil {
		return ConnectionOffer{}, err
	}
	return offer, nil
}

// Validate checks the offer against the exact v2 shape. Any missing or
// empty required field fails; there is no partial offer.
func (o ConnectionOffer) Validate() error {
	if o.Version != OfferVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidOffer, o.Version)
	}
	if o.ServerID == "" {
		return fmt.Errorf("%w: missing serverId", ErrInvalidOffer)
	}
	if o.DaemonPublicKeyB64 == "" {
		return fmt.Errorf("%w: missing daemonPublicKeyB64", ErrInvalidOffer)
	}
	if o.Relay.Endpoint == "" {
		return fmt.Errorf("%w: missing relay.endpoint", ErrInvalidOffer)
	}
	return nil
}

// Encode serializes the offer to its JSON wire form.
func (o ConnectionOffer) Encode() ([]byte, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode offer: %w", err)
	}
	return data, nil
}
