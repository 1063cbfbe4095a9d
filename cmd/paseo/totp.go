package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/getpaseo/paseo/internal/api/http/dto"
)

// runTOTP enables (or regenerates) the active daemon's TOTP second factor
// and prints the provisioning URI as a scannable QR code.
func runTOTP(args []string) error {
	fs := flag.NewFlagSet("totp", flag.ExitOnError)
	daemonAddr := fs.String("daemon", defaultDaemonAddr, "Daemon base URL (e.g., http://host:8787)")
	regenerate := fs.Bool("regenerate", false, "Replace an existing TOTP secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openClientStore()
	if err != nil {
		return err
	}
	defer st.Close()

	activeID, err := st.GetSetting(ctx, activeDaemonKey)
	if err != nil {
		return err
	}
	if activeID == "" {
		return fmt.Errorf("no active daemon; pair first")
	}
	token, err := st.GetSetting(ctx, daemonTokenKey(activeID))
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("no token stored for daemon %s", activeID)
	}

	reqBody, err := json.Marshal(dto.TOTPSetupRequest{Regenerate: *regenerate})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", *daemonAddr+"/v1/auth/totp", bytes.NewBuffer(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("a TOTP secret already exists; pass --regenerate to replace it")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("totp setup failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var setup dto.TOTPSetupResponse
	if err := json.Unmarshal(body, &setup); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	fmt.Println("TOTP enabled. Scan with your authenticator app:")
	qr, err := qrcode.New(setup.URI, qrcode.Medium)
	if err == nil {
		fmt.Println(qr.ToSmallString(false))
	}
	fmt.Printf("  Secret: %s\n", setup.Secret)
	fmt.Printf("  URI:    %s\n", setup.URI)
	return nil
}
