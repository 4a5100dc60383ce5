// Package webhook verifies and decodes email provider engagement callbacks.
package webhook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/mailgun"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// flexString accepts a JSON string or number.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Signature is the signing block Mailgun attaches to every callback.
type Signature struct {
	Timestamp flexString `json:"timestamp"`
	Token     string     `json:"token"`
	Signature string     `json:"signature"`
}

// Complete reports whether all signature fields are present.
func (s *Signature) Complete() bool {
	return s != nil && s.Timestamp != "" && s.Token != "" && s.Signature != ""
}

// EventData is the subset of the Mailgun event body the service reads.
type EventData struct {
	Event     string  `json:"event"`
	Timestamp float64 `json:"timestamp"`
	ID        string  `json:"id"`
	Recipient string  `json:"recipient"`
	Message   struct {
		Headers struct {
			MessageID string `json:"message-id"`
		} `json:"headers"`
	} `json:"message"`
}

// Payload is a Mailgun webhook request body.
type Payload struct {
	Signature *Signature `json:"signature"`
	EventData *EventData `json:"event-data"`
}

// ParsePayload decodes a webhook body. Malformed JSON is a bad request.
func ParsePayload(body []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook body: %v", apperrors.ErrBadRequest, err)
	}
	return &p, nil
}

// EventName returns the lower-cased event name, or "" when event data is missing.
func (p *Payload) EventName() string {
	if p.EventData == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(p.EventData.Event))
}

// Engagement converts the event data into an engagement event. Untracked
// events are returned as-is with Tracked() false; tracked events must carry
// a recipient and a message id. A missing provider timestamp falls back to now.
func (p *Payload) Engagement(now time.Time) (model.EngagementEvent, error) {
	if p.EventData == nil {
		return model.EngagementEvent{}, fmt.Errorf("%w: missing event-data", apperrors.ErrBadRequest)
	}

	event := model.EngagementEvent{
		Event:     model.EngagementType(p.EventName()),
		Recipient: strings.ToLower(strings.TrimSpace(p.EventData.Recipient)),
		MessageID: mailgun.ParseMessageID(p.EventData.Message.Headers.MessageID),
	}
	if ts := utils.FloatSecondsToTime(p.EventData.Timestamp); !ts.IsZero() {
		event.OccurredAt = ts
	} else {
		event.OccurredAt = now.UTC()
	}

	if !event.Event.Tracked() {
		return event, nil
	}
	if event.Recipient == "" || event.MessageID == "" {
		return event, fmt.Errorf("%w: %s event requires recipient and message-id", apperrors.ErrValidation, event.Event)
	}
	return event, nil
}

// NewSignedPayload builds a callback body signed with signingKey, the way
// Mailgun signs its own deliveries.
func NewSignedPayload(signingKey, token string, sentAt time.Time, data *EventData) *Payload {
	ts := strconv.FormatInt(sentAt.Unix(), 10)
	return &Payload{
		Signature: &Signature{
			Timestamp: flexString(ts),
			Token:     token,
			Signature: Sign(signingKey, ts, token),
		},
		EventData: data,
	}
}
