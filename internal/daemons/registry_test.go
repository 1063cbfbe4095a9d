package daemons

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getpaseo/paseo/internal/store"
)

func openRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r, err := NewRegistry(context.Background(), st.DB())
	require.NoError(t, err)
	return r
}

func TestRegisterAndGet(t *testing.T) {
	r := openRegistry(t)

	err := r.Register(context.Background(), Profile{ID: "a", WSURL: "ws://localhost:7070/ws", AutoConnect: true})
	require.NoError(t, err)

	p, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:7070/ws", p.WSURL)
	assert.True(t, p.AutoConnect)
}

func TestRegisterEmptyID(t *testing.T) {
	r := openRegistry(t)

	err := r.Register(context.Background(), Profile{})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestRegisterUpdatesExisting(t *testing.T) {
	r := openRegistry(t)

	require.NoError(t, r.Register(context.Background(), Profile{ID: "a", AutoConnect: true}))
	require.NoError(t, r.Register(context.Background(), Profile{ID: "a", AutoConnect: false}))

	p, err := r.Get("a")
	require.NoError(t, err)
	assert.False(t, p.AutoConnect)

	profiles, _ := r.Snapshot()
	assert.Len(t, profiles, 1)
}

func TestDeregister(t *testing.T) {
	r := openRegistry(t)

	require.NoError(t, r.Register(context.Background(), Profile{ID: "a"}))
	r.SetActive("a")

	require.NoError(t, r.Deregister(context.Background(), "a"))

	_, err := r.Get("a")
	assert.ErrorIs(t, err, ErrDaemonNotFound)

	_, activeID := r.Snapshot()
	assert.Empty(t, activeID)

	assert.ErrorIs(t, r.Deregister(context.Background(), "a"), ErrDaemonNotFound)
}

func TestSnapshotSorted(t *testing.T) {
	r := openRegistry(t)

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(context.Background(), Profile{ID: id}))
	}
	r.SetActive("b")

	profiles, activeID := r.Snapshot()
	assert.Equal(t, "b", activeID)
	require.Len(t, profiles, 3)
	assert.Equal(t, "a", profiles[0].ID)
	assert.Equal(t, "b", profiles[1].ID)
	assert.Equal(t, "c", profiles[2].ID)
}

func TestProfilesPersistAcrossReopen(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	r1, err := NewRegistry(context.Background(), st.DB())
	require.NoError(t, err)
	require.NoError(t, r1.Register(context.Background(), Profile{ID: "a", WSURL: "ws://x", AutoConnect: true}))

	// A second registry over the same database sees the persisted profile.
	r2, err := NewRegistry(context.Background(), st.DB())
	require.NoError(t, err)
	p, err := r2.Get("a")
	require.NoError(t, err)
	assert.Equal(t, Profile{ID: "a", WSURL: "ws://x", AutoConnect: true}, p)
}
