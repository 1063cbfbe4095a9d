package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var ErrTOTPMismatch = errors.New("totp code mismatch")

const (
	totpPeriod = 30
	totpDigits = otp.DigitsSix

	// totpSkew accepts codes from one period before or after the current
	// one to tolerate clock drift between daemon and authenticator.
	totpSkew = 1
)

// TOTPSecret is a freshly generated shared secret plus its otpauth
// provisioning URI, suitable for rendering as a scannable code.
type TOTPSecret struct {
	Secret string
	URI    string
}

// GenerateTOTPSecret creates a new TOTP secret for the given account label.
// Regeneration is an explicit caller action that invalidates the prior
// secret; nothing here does it automatically.
func GenerateTOTPSecret(issuer, accountName string) (TOTPSecret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      totpPeriod,
		Digits:      totpDigits,
		Algorithm:   otp.AlgorithmSHA256,
	})
	if err != nil {
		return TOTPSecret{}, fmt.Errorf("generate totp secret: %w", err)
	}
	return TOTPSecret{Secret: key.Secret(), URI: key.URL()}, nil
}

// VerifyTOTP checks a submitted code against the shared secret, accepting
// the current period plus/minus one step. Consumed codes are not tracked;
// callers needing anti-replay must keep their own record per secret.
func VerifyTOTP(secret, code string) error {
	return VerifyTOTPAt(secret, code, time.Now())
}

// VerifyTOTPAt is VerifyTOTP with an explicit evaluation time.
func VerifyTOTPAt(secret, code string, at time.Time) error {
	valid, err := totp.ValidateCustom(code, secret, at, totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    totpDigits,
		Algorithm: otp.AlgorithmSHA256,
	})
	if err != nil || !valid {
		return ErrTOTPMismatch
	}
	return nil
}
