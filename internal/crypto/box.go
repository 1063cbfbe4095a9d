// Package crypto holds the daemon's pairing keypair and the anonymous
// sealed-box construction used to encrypt pairing replies to a client's
// ephemeral key.
package crypto

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const (
	keyPairSettingPublic  = "pairing.public_key"
	keyPairSettingPrivate = "pairing.private_key"

	sealedOverhead = 32 + 24 // ephemeral public key + nonce
)

var ErrDecryptFailed = errors.New("decrypt failed")

// KeyPair is the daemon's long-lived pairing keypair. The public half rides
// in connection offers as daemonPublicKeyB64.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// PublicKeyB64 returns the offer-ready encoding of the public key.
func (k KeyPair) PublicKeyB64() string {
	return base64.StdEncoding.EncodeToString(k.Public[:])
}

// GenerateKeyPair creates a fresh box keypair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return KeyPair{Public: *pub, Private: *priv}, nil
}

// KeyStore persists small keyed settings; implemented by the sqlite settings
// store.
type KeyStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// LoadOrCreateKeyPair returns the daemon's pairing keypair, generating and
// persisting one only when none exists. Regenerating would break every
// outstanding offer, so an existing pair is always reused.
func LoadOrCreateKeyPair(ctx context.Context, store KeyStore) (KeyPair, error) {
	pubB64, err := store.GetSetting(ctx, keyPairSettingPublic)
	if err != nil {
		return KeyPair{}, fmt.Errorf("load pairing key: %w", err)
	}
	privB64, err := store.GetSetting(ctx, keyPairSettingPrivate)
	if err != nil {
		return KeyPair{}, fmt.Errorf("load pairing key: %w", err)
	}

	if pubB64 != "" && privB64 != "" {
		var pair KeyPair
		if err := decodeKey(pubB64, &pair.Public); err != nil {
			return KeyPair{}, fmt.Errorf("decode public key: %w", err)
		}
		if err := decodeKey(privB64, &pair.Private); err != nil {
			return KeyPair{}, fmt.Errorf("decode private key: %w", err)
		}
		return pair, nil
	}

	pair, err := GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}
	if err := store.SetSetting(ctx, keyPairSettingPublic, pair.PublicKeyB64()); err != nil {
		return KeyPair{}, fmt.Errorf("persist pairing key: %w", err)
	}
	if err := store.SetSetting(ctx, keyPairSettingPrivate, base64.StdEncoding.EncodeToString(pair.Private[:])); err != nil {
		return KeyPair{}, fmt.Errorf("persist pairing key: %w", err)
	}
	return pair, nil
}

// Seal encrypts data to a recipient's public key under a fresh ephemeral
// keypair. Layout: ephemeral public key (32) | nonce (24) | ciphertext.
func Seal(data []byte, recipientPublicKey *[32]byte) ([]byte, error) {
	ephemeralPublic, ephemeralPrivate, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral keypair: %w", err)
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := box.Seal(nil, data, &nonce, recipientPublicKey, ephemeralPrivate)

	result := make([]byte, sealedOverhead+len(sealed))
	copy(result[0:32], ephemeralPublic[:])
	copy(result[32:56], nonce[:])
	copy(result[56:], sealed)
	return result, nil
}

// Open decrypts a Seal output with the recipient's private key.
func Open(sealed []byte, recipientPrivateKey *[32]byte) ([]byte, error) {
	if len(sealed) < sealedOverhead {
		return nil, fmt.Errorf("%w: payload too short", ErrDecryptFailed)
	}

	var ephemeralPublic [32]byte
	copy(ephemeralPublic[:], sealed[0:32])
	var nonce [24]byte
	copy(nonce[:], sealed[32:56])

	plain, ok := box.Open(nil, sealed[56:], &nonce, &ephemeralPublic, recipientPrivateKey)
	if !ok {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}

// ParsePublicKeyB64 decodes a base64 public key such as an offer's
// daemonPublicKeyB64.
func ParsePublicKeyB64(encoded string) (*[32]byte, error) {
	var key [32]byte
	if err := decodeKey(encoded, &key); err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &key, nil
}

func decodeKey(encoded string, out *[32]byte) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}
	if len(raw) != 32 {
		return fmt.Errorf("key must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return nil
}
