package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/getpaseo/paseo/internal/connmgr"
	"github.com/getpaseo/paseo/internal/daemons"
)

// runConnect holds background channels open to every autoConnect daemon
// until interrupted. Each daemon is dialed with its own bearer token.
func runConnect(args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	relayOverride := fs.String("relay", "", "Relay endpoint override (host:port)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry, err := daemons.NewRegistry(ctx, st.DB())
	if err != nil {
		return err
	}

	activeID, err := st.GetSetting(ctx, activeDaemonKey)
	if err != nil {
		return err
	}
	registry.SetActive(activeID)

	relayEndpoint := *relayOverride
	if relayEndpoint == "" {
		relayEndpoint, err = st.GetSetting(ctx, relayEndpointKey)
		if err != nil {
			return err
		}
	}
	if relayEndpoint == "" {
		return fmt.Errorf("no relay endpoint configured; pair with a daemon first or pass --relay")
	}

	mgr := connmgr.NewManager(registry, connmgr.Config{
		RelayEndpoint: relayEndpoint,
		Token: func(daemonID string) (string, error) {
			token, err := st.GetSetting(ctx, daemonTokenKey(daemonID))
			if err != nil {
				return "", err
			}
			if token == "" {
				return "", fmt.Errorf("no token stored for daemon %s", daemonID)
			}
			return token, nil
		},
		OnMessage: func(daemonID string, payload []byte) {
			slog.Info("Daemon event", "daemon_id", daemonID, "bytes", len(payload))
		},
	})
	mgr.Recompute()

	ids := mgr.ConnectedIDs()
	if len(ids) == 0 {
		slog.Warn("No background daemons to connect")
	} else {
		slog.Info("Background channels open", "daemons", ids)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	slog.Info("Received shutdown signal", "signal", sig)

	mgr.Stop()
	return nil
}
