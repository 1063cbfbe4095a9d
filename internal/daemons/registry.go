// Package daemons maintains the registry of known daemon profiles on the
// client side: which daemons exist, how to reach them directly, and which
// one is currently in the foreground.
package daemons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDaemonNotFound = errors.New("daemon not found")
	ErrInvalidProfile = errors.New("invalid daemon profile")
)

// Profile describes one known daemon. ID is an opaque identifier stable for
// a local install; WSURL is the daemon's direct websocket address, empty
// when only reachable through the relay.
type Profile struct {
	ID          string
	WSURL       string
	AutoConnect bool
}

// Registry stores daemon profiles, backed by the daemons table and mirrored
// in memory so snapshots never touch the database.
type Registry struct {
	db *sql.DB

	mu       sync.RWMutex
	profiles map[string]Profile
	activeID string
}

// NewRegistry loads all persisted profiles. Pass a nil db for an ephemeral,
// memory-only registry.
func NewRegistry(ctx context.Context, db *sql.DB) (*Registry, error) {
	r := &Registry{
		db:       db,
		profiles: make(map[string]Profile),
	}
	if db == nil {
		return r, nil
	}

	rows, err := db.QueryContext(ctx, `SELECT id, ws_url, auto_connect FROM daemons`)
	if err != nil {
		return nil, fmt.Errorf("load daemon profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Profile
		var autoConnect int
		if err := rows.Scan(&p.ID, &p.WSURL, &autoConnect); err != nil {
			return nil, fmt.Errorf("scan daemon profile: %w", err)
		}
		p.AutoConnect = autoConnect != 0
		r.profiles[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daemon profiles: %w", err)
	}
	return r, nil
}

// Register adds or updates a daemon profile.
func (r *Registry) Register(ctx context.Context, p Profile) error {
	if p.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidProfile)
	}

	if r.db != nil {
		autoConnect := 0
		if p.AutoConnect {
			autoConnect = 1
		}
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO daemons (id, ws_url, auto_connect) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				ws_url = excluded.ws_url,
				auto_connect = excluded.auto_connect
		`, p.ID, p.WSURL, autoConnect)
		if err != nil {
			return fmt.Errorf("persist daemon profile: %w", err)
		}
	}

	r.mu.Lock()
	r.profiles[p.ID] = p
	r.mu.Unlock()
	return nil
}

// Deregister removes a daemon. Removing the active daemon clears the active
// pointer.
func (r *Registry) Deregister(ctx context.Context, id string) error {
	r.mu.Lock()
	_, known := r.profiles[id]
	r.mu.Unlock()
	if !known {
		return ErrDaemonNotFound
	}

	if r.db != nil {
		if _, err := r.db.ExecContext(ctx, `DELETE FROM daemons WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete daemon profile: %w", err)
		}
	}

	r.mu.Lock()
	delete(r.profiles, id)
	if r.activeID == id {
		r.activeID = ""
	}
	r.mu.Unlock()
	return nil
}

// Get returns a single profile.
func (r *Registry) Get(id string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrDaemonNotFound
	}
	return p, nil
}

// SetActive marks the foreground daemon. An empty id clears it. The id need
// not be registered yet; an unknown active id simply never resolves.
func (r *Registry) SetActive(id string) {
	r.mu.Lock()
	r.activeID = id
	r.mu.Unlock()
}

// Snapshot returns a consistent copy of (profiles, activeID) taken under a
// single lock, sorted by id for deterministic iteration.
func (r *Registry) Snapshot() ([]Profile, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, r.activeID
}
