package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const secretKey = "auth.signing_secret"

// SecretStore persists small keyed settings. Implemented by the sqlite
// settings store.
type SecretStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// LoadOrCreateSecret returns the daemon's signing secret, generating and
// persisting a fresh one only when none exists. An existing value is never
// regenerated: doing so would invalidate every outstanding bearer token.
func LoadOrCreateSecret(ctx context.Context, store SecretStore) ([]byte, error) {
	existing, err := store.GetSetting(ctx, secretKey)
	if err != nil {
		return nil, fmt.Errorf("load signing secret: %w", err)
	}
	if existing != "" {
		secret, err := hex.DecodeString(existing)
		if err != nil {
			return nil, fmt.Errorf("decode signing secret: %w", err)
		}
		return secret, nil
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate signing secret: %w", err)
	}
	if err := store.SetSetting(ctx, secretKey, hex.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("persist signing secret: %w", err)
	}
	return secret, nil
}
