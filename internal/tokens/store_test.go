package tokens

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndConsume(t *testing.T) {
	s := NewStore[string](1 * time.Hour)

	entry, err := s.Issue("payload-1")
	require.NoError(t, err)
	assert.Len(t, entry.Token, 64) // 32 bytes hex
	assert.WithinDuration(t, time.Now().Add(1*time.Hour), entry.ExpiresAt, 5*time.Second)

	got, err := s.Consume(entry.Token)
	require.NoError(t, err)
	assert.Equal(t, "payload-1", got.Payload)
}

func TestConsumeTwice(t *testing.T) {
	s := NewStore[string](1 * time.Hour)

	entry, err := s.Issue("payload-1")
	require.NoError(t, err)

	_, err = s.Consume(entry.Token)
	require.NoError(t, err)

	_, err = s.Consume(entry.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeUnknown(t *testing.T) {
	s := NewStore[string](1 * time.Hour)

	_, err := s.Consume("nonexistent")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestConsumeExpired(t *testing.T) {
	s := NewStore[string](1 * time.Minute)

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	entry, err := s.Issue("payload-1")
	require.NoError(t, err)

	// First consumption attempt after expiry still reports not-found.
	now = now.Add(2 * time.Minute)
	_, err = s.Consume(entry.Token)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestIssuePrunesExpired(t *testing.T) {
	s := NewStore[string](1 * time.Minute)

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	_, err := s.Issue("stale-1")
	require.NoError(t, err)
	_, err = s.Issue("stale-2")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Minute)
	_, err = s.Issue("fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestZeroTTLNeverExpires(t *testing.T) {
	s := NewStore[string](0)

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	entry, err := s.Issue("payload-1")
	require.NoError(t, err)
	assert.True(t, entry.ExpiresAt.IsZero())

	now = now.Add(24 * 365 * time.Hour)
	got, err := s.Consume(entry.Token)
	require.NoError(t, err)
	assert.Equal(t, "payload-1", got.Payload)
}

func TestTokensAreUnique(t *testing.T) {
	s := NewStore[int](1 * time.Hour)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		entry, err := s.Issue(i)
		require.NoError(t, err)
		_, dup := seen[entry.Token]
		require.False(t, dup)
		seen[entry.Token] = struct{}{}
	}
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewStore[string](1 * time.Hour)

	entry, err := s.Issue("payload-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Consume(entry.Token); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestDownloadStoreGrant(t *testing.T) {
	s := NewDownloadStore(10 * time.Minute)

	grant := DownloadGrant{
		AgentID:  "agent-1",
		Path:     "/tmp/output.txt",
		MimeType: "text/plain",
		Size:     1024,
	}
	entry, err := s.Issue(grant)
	require.NoError(t, err)

	got, err := s.Consume(entry.Token)
	require.NoError(t, err)
	assert.Equal(t, grant, got.Payload)
}

func TestDownloadStoreDefaultTTL(t *testing.T) {
	s := NewDownloadStore(0)

	entry, err := s.Issue(DownloadGrant{Path: "/tmp/a"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultDownloadTTL), entry.ExpiresAt, 5*time.Second)
}
