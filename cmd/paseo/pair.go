package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/getpaseo/paseo/internal/api/http/dto"
	"github.com/getpaseo/paseo/internal/crypto"
	"github.com/getpaseo/paseo/internal/daemons"
	"github.com/getpaseo/paseo/internal/pairing"
)

type pairReply struct {
	Token    string `json:"token"`
	ClientID string `json:"clientId"`
}

func runPair(args []string) error {
	fs := flag.NewFlagSet("pair", flag.ExitOnError)
	daemonAddr := fs.String("daemon", defaultDaemonAddr, "Daemon base URL (e.g., http://host:8787)")
	name := fs.String("name", "", "Client name shown to the daemon")
	code := fs.String("code", "", "TOTP code, when the daemon requires one")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()

	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	keyPair, err := crypto.LoadOrCreateKeyPair(ctx, st)
	if err != nil {
		return fmt.Errorf("failed to load client key pair: %w", err)
	}

	offer, err := fetchOffer(*daemonAddr)
	if err != nil {
		return err
	}

	reqBody, err := json.Marshal(dto.PairRequest{
		ClientPublicKeyB64: keyPair.PublicKeyB64(),
		ClientName:         *name,
		TOTPCode:           *code,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := http.Post(*daemonAddr+"/v1/pair", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pairing failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var pairResp dto.PairResponse
	if err := json.Unmarshal(body, &pairResp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(pairResp.SealedB64)
	if err != nil {
		return fmt.Errorf("failed to decode sealed reply: %w", err)
	}
	plaintext, err := crypto.Open(sealed, &keyPair.Private)
	if err != nil {
		return fmt.Errorf("failed to open sealed reply: %w", err)
	}
	var reply pairReply
	if err := json.Unmarshal(plaintext, &reply); err != nil {
		return fmt.Errorf("failed to parse sealed reply: %w", err)
	}

	registry, err := daemons.NewRegistry(ctx, st.DB())
	if err != nil {
		return err
	}
	if err := registry.Register(ctx, daemons.Profile{ID: offer.ServerID, AutoConnect: true}); err != nil {
		return err
	}
	if err := st.SetSetting(ctx, daemonTokenKey(offer.ServerID), reply.Token); err != nil {
		return err
	}
	if err := st.SetSetting(ctx, relayEndpointKey, offer.Relay.Endpoint); err != nil {
		return err
	}
	if err := st.SetSetting(ctx, activeDaemonKey, offer.ServerID); err != nil {
		return err
	}

	fmt.Println("Paired!")
	fmt.Printf("  Daemon ID: %s\n", offer.ServerID)
	fmt.Printf("  Client ID: %s\n", reply.ClientID)
	fmt.Printf("  Relay:     %s\n", offer.Relay.Endpoint)
	return nil
}

func fetchOffer(daemonAddr string) (pairing.ConnectionOffer, error) {
	resp, err := http.Get(daemonAddr + "/v1/pair/offer")
	if err != nil {
		return pairing.ConnectionOffer{}, fmt.Errorf("failed to fetch offer: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pairing.ConnectionOffer{}, fmt.Errorf("failed to read offer: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return pairing.ConnectionOffer{}, fmt.Errorf("offer request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}
	return pairing.ParseOffer(body)
}
