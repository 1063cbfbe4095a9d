// Package tokens implements the capability-token stores used to hand out
// one-shot or revocable grants (download links, push-registration handles)
// with bounded lifetime and lazy expiry.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrTokenNotFound is returned when a token is absent, already consumed,
	// or expired. The three cases are deliberately indistinguishable.
	ErrTokenNotFound = errors.New("token not found")
)

// Entry is a live capability grant. Payload carries whatever the issuing
// caller attached; ExpiresAt is zero for tokens that never expire.
type Entry[T any] struct {
	Token     string
	Payload   T
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (e Entry[T]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store issues and redeems opaque capability tokens. Each token maps to at
// most one live entry; consumption removes the entry in the same critical
// section as the lookup, so concurrent redemptions cannot both succeed.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]Entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a store whose tokens expire ttl after issuance. A zero
// ttl means tokens never expire.
func NewStore[T any](ttl time.Duration) *Store[T] {
	return &Store[T]{
		entries: make(map[string]Entry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the store's time source. Test helper; not safe to call
// once the store is shared between goroutines.
func (s *Store[T]) SetClock(now func() time.Time) {
	s.now = now
}

// Issue generates a fresh token for payload and stores it. Already-expired
// entries are pruned before the new entry is added, keeping the store bounded
// without a background timer.
func (s *Store[T]) Issue(payload T) (Entry[T], error) {
	token, err := generateToken()
	if err != nil {
		return Entry[T]{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	entry := Entry[T]{
		Token:    token,
		Payload:  payload,
		IssuedAt: now,
	}
	if s.ttl > 0 {
		entry.ExpiresAt = now.Add(s.ttl)
	}
	s.entries[token] = entry
	return entry, nil
}

// Consume redeems a token exactly once. The entry is removed whether or not
// it turns out to be expired; an expired entry reports ErrTokenNotFound just
// like an absent one.
func (s *Store[T]) Consume(token string) (Entry[T], error) {
	s.mu.Lock()
	entry, ok := s.entries[token]
	if ok {
		delete(s.entries, token)
	}
	now := s.now()
	s.mu.Unlock()

	if !ok || entry.expired(now) {
		return Entry[T]{}, ErrTokenNotFound
	}
	return entry, nil
}

// Len reports the number of stored entries, including any not yet pruned.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store[T]) pruneLocked(now time.Time) {
	for token, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, token)
		}
	}
}

// generateToken returns 32 bytes of hex-encoded randomness.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
