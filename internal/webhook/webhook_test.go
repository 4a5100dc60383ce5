package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/config"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

const testSigningKey = "key-3ax6xnjp29jd6fds4gc373sgvjxteol0"

func signedBody(event, recipient, messageID string, ts float64) []byte {
	sig := Sign(testSigningKey, "1529006854", "a8ce0edb2dd8301dee6c2405235584e45aa91d1e9f979f3de0")
	return []byte(fmt.Sprintf(`{
		"signature": {"timestamp": "1529006854", "token": "a8ce0edb2dd8301dee6c2405235584e45aa91d1e9f979f3de0", "signature": %q},
		"event-data": {"event": %q, "timestamp": %v, "id": "evt-1", "recipient": %q,
			"message": {"headers": {"message-id": %q}}}
	}`, sig, event, ts, recipient, messageID))
}

func TestHMACVerifier(t *testing.T) {
	p, err := ParsePayload(signedBody("opened", "ada@example.com", "abc@mg", 1521472262.908181))
	require.NoError(t, err)

	v := NewHMACVerifier(testSigningKey)
	assert.NoError(t, v.Verify(p.Signature))
	assert.Equal(t, config.VerificationEnforce, v.Mode())

	wrongKey := NewHMACVerifier("other-key")
	assert.ErrorIs(t, wrongKey.Verify(p.Signature), apperrors.ErrSignature)

	tampered := *p.Signature
	tampered.Token = "different-token"
	assert.ErrorIs(t, v.Verify(&tampered), apperrors.ErrSignature)

	assert.ErrorIs(t, NewHMACVerifier("").Verify(p.Signature), apperrors.ErrSignature)
}

func TestHMACVerifier_SignatureEncoding(t *testing.T) {
	v := NewHMACVerifier(testSigningKey)
	sig := Sign(testSigningKey, "1529006854", "tok")

	upper := &Signature{Timestamp: "1529006854", Token: "tok", Signature: strings.ToUpper(sig)}
	assert.NoError(t, v.Verify(upper))

	notHex := &Signature{Timestamp: "1529006854", Token: "tok", Signature: "zz" + sig[2:]}
	assert.ErrorIs(t, v.Verify(notHex), apperrors.ErrSignature)

	truncated := &Signature{Timestamp: "1529006854", Token: "tok", Signature: sig[:32]}
	assert.ErrorIs(t, v.Verify(truncated), apperrors.ErrSignature)
}

func TestVerifiers_IncompleteSignature(t *testing.T) {
	incomplete := []*Signature{
		nil,
		{Timestamp: "1", Token: "t"},
		{Token: "t", Signature: "s"},
	}
	for _, sig := range incomplete {
		assert.ErrorIs(t, NewHMACVerifier(testSigningKey).Verify(sig), apperrors.ErrBadRequest)
		assert.ErrorIs(t, BypassVerifier{}.Verify(sig), apperrors.ErrBadRequest)
	}
	assert.NoError(t, BypassVerifier{}.Verify(&Signature{Timestamp: "1", Token: "t", Signature: "anything"}))
}

func TestSignature_NumericTimestamp(t *testing.T) {
	p, err := ParsePayload([]byte(`{"signature":{"timestamp":1529006854,"token":"tok","signature":"sig"}}`))
	require.NoError(t, err)
	assert.Equal(t, flexString("1529006854"), p.Signature.Timestamp)
	assert.True(t, p.Signature.Complete())
}

func TestParsePayload_Malformed(t *testing.T) {
	_, err := ParsePayload([]byte(`{not json`))
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestPayload_Engagement(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	p, err := ParsePayload(signedBody("Opened", " Ada@Example.com ", "<abc@mg>", 1521472262.5))
	require.NoError(t, err)
	ev, err := p.Engagement(now)
	require.NoError(t, err)
	assert.Equal(t, model.EngagementOpened, ev.Event)
	assert.Equal(t, "ada@example.com", ev.Recipient)
	assert.Equal(t, "abc@mg", ev.MessageID)
	assert.True(t, time.Unix(1521472262, 500_000_000).UTC().Equal(ev.OccurredAt))

	p, err = ParsePayload(signedBody("clicked", "ada@example.com", "abc@mg", 0))
	require.NoError(t, err)
	ev, err = p.Engagement(now)
	require.NoError(t, err)
	assert.Equal(t, model.EngagementClicked, ev.Event)
	assert.True(t, now.Equal(ev.OccurredAt))
}

func TestPayload_Engagement_Errors(t *testing.T) {
	now := time.Now()

	p, err := ParsePayload([]byte(`{"signature":{"timestamp":"1","token":"t","signature":"s"}}`))
	require.NoError(t, err)
	_, err = p.Engagement(now)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)

	p, err = ParsePayload(signedBody("opened", "", "abc@mg", 1))
	require.NoError(t, err)
	_, err = p.Engagement(now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	p, err = ParsePayload(signedBody("clicked", "ada@example.com", "", 1))
	require.NoError(t, err)
	_, err = p.Engagement(now)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestPayload_Engagement_UntrackedEvent(t *testing.T) {
	p, err := ParsePayload(signedBody("delivered", "", "", 1))
	require.NoError(t, err)
	ev, err := p.Engagement(time.Now())
	require.NoError(t, err)
	assert.False(t, ev.Event.Tracked())
	assert.Equal(t, "delivered", p.EventName())
}

func TestNewVerifier(t *testing.T) {
	cfg := &config.Config{Environment: "development"}
	cfg.Mailgun.WebhookSigningKey = testSigningKey

	cfg.Webhook.Verification = config.VerificationEnforce
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	assert.IsType(t, &HMACVerifier{}, v)

	cfg.Webhook.Verification = config.VerificationBypass
	v, err = NewVerifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.VerificationBypass, v.Mode())

	cfg.Environment = config.EnvironmentProduction
	_, err = NewVerifier(cfg)
	assert.Error(t, err)

	cfg.Webhook.Verification = "sometimes"
	_, err = NewVerifier(cfg)
	assert.Error(t, err)
}

func TestNewSignedPayload_RoundTrip(t *testing.T) {
	data := &EventData{Event: "clicked", Recipient: "ada@example.com", Timestamp: 1521472262}
	data.Message.Headers.MessageID = "<abc@mg>"

	raw, err := json.Marshal(NewSignedPayload(testSigningKey, "tok-1", time.Unix(1529006854, 0), data))
	require.NoError(t, err)

	p, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, flexString("1529006854"), p.Signature.Timestamp)
	assert.NoError(t, NewHMACVerifier(testSigningKey).Verify(p.Signature))

	ev, err := p.Engagement(time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.EngagementClicked, ev.Event)
	assert.Equal(t, "abc@mg", ev.MessageID)
}
