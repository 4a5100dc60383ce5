package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	mg "github.com/mailgun/mailgun-go/v5"
	"github.com/mailgun/mailgun-go/v5/mtypes"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/config"
)

// Verifier authenticates a webhook signature block.
type Verifier interface {
	Verify(sig *Signature) error
	Mode() string
}

// HMACVerifier checks hex(HMAC-SHA256(signingKey, timestamp+token)) through the
// Mailgun client. The client is never used for API calls.
type HMACVerifier struct {
	client *mg.Client
}

// NewHMACVerifier creates a verifier for the given webhook signing key.
func NewHMACVerifier(signingKey string) *HMACVerifier {
	client := mg.NewMailgun("")
	client.SetWebhookSigningKey(signingKey)
	return &HMACVerifier{client: client}
}

// Sign computes the signature Mailgun would send. Used by the load tester and tests.
func Sign(signingKey, timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify implements Verifier.
func (v *HMACVerifier) Verify(sig *Signature) error {
	if !sig.Complete() {
		return fmt.Errorf("%w: incomplete signature", apperrors.ErrBadRequest)
	}
	if v.client.WebhookSigningKey() == "" {
		return fmt.Errorf("%w: signing key not configured", apperrors.ErrSignature)
	}
	ok, err := v.client.VerifyWebhookSignature(mtypes.Signature{
		TimeStamp: string(sig.Timestamp),
		Token:     sig.Token,
		Signature: sig.Signature,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrSignature, err)
	}
	if !ok {
		return apperrors.ErrSignature
	}
	return nil
}

// Mode implements Verifier.
func (v *HMACVerifier) Mode() string {
	return config.VerificationEnforce
}

// BypassVerifier accepts any complete signature block. Development only.
type BypassVerifier struct{}

// Verify implements Verifier.
func (BypassVerifier) Verify(sig *Signature) error {
	if !sig.Complete() {
		return fmt.Errorf("%w: incomplete signature", apperrors.ErrBadRequest)
	}
	return nil
}

// Mode implements Verifier.
func (BypassVerifier) Mode() string {
	return config.VerificationBypass
}

// NewVerifier selects the verification strategy from configuration.
func NewVerifier(cfg *config.Config) (Verifier, error) {
	switch cfg.Webhook.Verification {
	case config.VerificationEnforce, "":
		return NewHMACVerifier(cfg.Mailgun.WebhookSigningKey), nil
	case config.VerificationBypass:
		if cfg.IsProduction() {
			return nil, errors.New("webhook signature bypass is not allowed in production")
		}
		return BypassVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown webhook verification mode %q", cfg.Webhook.Verification)
	}
}
