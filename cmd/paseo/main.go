package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/getpaseo/paseo/internal/store"
)

var AppVersion string

const (
	activeDaemonKey     = "client.active_daemon"
	relayEndpointKey    = "client.relay_endpoint"
	daemonTokenKeyBase  = "client.token."
	defaultDaemonAddr   = "http://127.0.0.1:8787"
	defaultClientDBName = "client.db"
)

func daemonTokenKey(daemonID string) string {
	return daemonTokenKeyBase + daemonID
}

func openClientStore() (*store.Store, error) {
	dir := os.Getenv("PASEO_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".paseo")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return store.Open(filepath.Join(dir, defaultClientDBName))
}

func usage() {
	fmt.Fprintf(os.Stderr, `paseo - Paseo client

Usage:
  paseo pair    --daemon <url> [--name <name>] [--code <totp>]
  paseo list
  paseo use     <daemon-id>
  paseo remove  <daemon-id>
  paseo auto    <daemon-id> <on|off>
  paseo totp    [--daemon <url>] [--regenerate]
  paseo connect
`)
}

func main() {
	initLogger(os.Getenv("PASEO_LOG_LEVEL"))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "pair":
		err = runPair(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "use":
		err = runUse(os.Args[2:])
	case "remove":
		err = runRemove(os.Args[2:])
	case "auto":
		err = runAuto(os.Args[2:])
	case "totp":
		err = runTOTP(os.Args[2:])
	case "connect":
		err = runConnect(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
