// Package connmgr decides which daemons a client keeps a live background
// channel to, and owns the lifecycle of those channels.
package connmgr

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/getpaseo/paseo/internal/daemons"
	"github.com/getpaseo/paseo/internal/relay"
)

// ComputeBackgroundSet derives the daemon ids a client should hold an open
// background channel to, from a single consistent snapshot of the registry
// and the active-daemon pointer.
//
// Every autoConnect daemon is a candidate, keyed by id so duplicates
// collapse. A resolvable active daemon is excluded from the result: the
// foreground path already holds its channel, and a second one would duplicate
// server-side session state. An activeID pointing at no registered profile
// excludes nothing.
func ComputeBackgroundSet(profiles []daemons.Profile, activeID string) map[string]struct{} {
	set := make(map[string]struct{})
	known := make(map[string]struct{}, len(profiles))

	for _, p := range profiles {
		known[p.ID] = struct{}{}
		if p.AutoConnect {
			set[p.ID] = struct{}{}
		}
	}

	if activeID != "" {
		if _, ok := known[activeID]; ok {
			delete(set, activeID)
		}
	}
	return set
}

// Channel is the slice of relay.Channel the manager drives. Satisfied by
// *relay.Channel; tests substitute fakes.
type Channel interface {
	Start()
	Stop()
}

// Dialer opens a channel to one daemon. The default implementation builds a
// relay or direct websocket URL and returns a reconnecting relay.Channel.
type Dialer func(profile daemons.Profile) (Channel, error)

// Manager recomputes the background-connection set whenever the registry or
// active daemon changes, opening missing channels and tearing down ones that
// fell out of the set. Channel failures stay local to their daemon.
type Manager struct {
	registry *daemons.Registry
	dial     Dialer

	mu       sync.Mutex
	channels map[string]Channel
}

// Config for a Manager using the default relay dialer.
type Config struct {
	// RelayEndpoint is the fallback relay for daemons without a direct
	// address.
	RelayEndpoint string

	// Token returns the bearer token presented when opening the channel to
	// the given daemon. Each daemon issues its own token at pairing time.
	Token func(daemonID string) (string, error)

	// OnMessage receives frames from any background channel.
	OnMessage func(daemonID string, payload []byte)
}

// NewManager builds a manager that dials daemons directly when a profile
// carries a wsUrl and through the relay otherwise.
func NewManager(registry *daemons.Registry, config Config) *Manager {
	return &Manager{
		registry: registry,
		dial:     relayDialer(config),
		channels: make(map[string]Channel),
	}
}

// NewManagerWithDialer is NewManager with a custom dialer. Test seam.
func NewManagerWithDialer(registry *daemons.Registry, dial Dialer) *Manager {
	return &Manager{
		registry: registry,
		dial:     dial,
		channels: make(map[string]Channel),
	}
}

// Recompute reconciles live channels against the derived background set.
// Call it after any registry mutation or active-daemon switch. A daemon
// whose dial fails is simply omitted until the next recompute.
func (m *Manager) Recompute() {
	profiles, activeID := m.registry.Snapshot()
	want := ComputeBackgroundSet(profiles, activeID)

	byID := make(map[string]daemons.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.channels {
		if _, keep := want[id]; !keep {
			ch.Stop()
			delete(m.channels, id)
			slog.Info("Background channel closed", "daemon_id", id)
		}
	}

	for id := range want {
		if _, open := m.channels[id]; open {
			continue
		}
		ch, err := m.dial(byID[id])
		if err != nil {
			slog.Warn("Background channel dial skipped", "daemon_id", id, "error", err)
			continue
		}
		ch.Start()
		m.channels[id] = ch
		slog.Info("Background channel opened", "daemon_id", id)
	}
}

// ConnectedIDs lists daemons with an open (or reconnecting) background
// channel.
func (m *Manager) ConnectedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.channels))
	for id := range m.channels {
		ids = append(ids, id)
	}
	return ids
}

// Stop tears down every background channel.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.channels {
		ch.Stop()
		delete(m.channels, id)
	}
}

func relayDialer(config Config) Dialer {
	return func(profile daemons.Profile) (Channel, error) {
		var token string
		if config.Token != nil {
			t, err := config.Token(profile.ID)
			if err != nil {
				return nil, err
			}
			token = t
		}

		wsURL := profile.WSURL
		if wsURL == "" {
			built, err := relay.BuildURL(relay.ConnectionParams{
				Endpoint:         config.RelayEndpoint,
				ServerID:         profile.ID,
				Role:             relay.RoleClient,
				ClientSessionKey: uuid.NewString(),
			})
			if err != nil {
				return nil, err
			}
			wsURL = built
		}
		return relay.NewChannel(profile.ID, wsURL, token, config.OnMessage), nil
	}
}
