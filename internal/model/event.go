package model

import (
	"time"
)

// EngagementType is a provider engagement event name.
type EngagementType string

const (
	EngagementOpened  EngagementType = "opened"
	EngagementClicked EngagementType = "clicked"
)

// Tracked reports whether the event changes contact state.
func (t EngagementType) Tracked() bool {
	return t == EngagementOpened || t == EngagementClicked
}

// EngagementEvent is a verified provider callback reduced to what reconciliation needs.
type EngagementEvent struct {
	Event      EngagementType
	Recipient  string
	MessageID  string
	OccurredAt time.Time
}

// ActivityType names a lead state change published to the event stream.
type ActivityType string

// Lead activity types (with versioning)
const (
	ActivityDisqualified ActivityType = "disqualified"
	ActivityRequalified  ActivityType = "requalified"
	ActivityEmailSent    ActivityType = "email.sent"
	ActivityEmailOpened  ActivityType = "email.opened"
	ActivityEmailClicked ActivityType = "email.clicked"
	ActivityMarkedOpened ActivityType = "email.marked_opened"
)

// LeadActivityEvent is the JSON body published for each lead state change.
type LeadActivityEvent struct {
	EventID    string                 `json:"event_id"`
	Type       ActivityType           `json:"type"`
	ContactID  string                 `json:"contact_id,omitempty"`
	Email      string                 `json:"email,omitempty"`
	MailgunID  string                 `json:"mailgun_id,omitempty"`
	UserID     string                 `json:"user_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data,omitempty"`
}
