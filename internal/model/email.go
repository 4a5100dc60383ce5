package model

import "time"

// EmailStatus is the engagement state of one sent email.
type EmailStatus string

const (
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusOpened  EmailStatus = "opened"
	EmailStatusClicked EmailStatus = "clicked"
)

// EmailSendRecord is one entry of a contact's email history.
// MailgunID is the provider message id without angle brackets.
type EmailSendRecord struct {
	Timestamp     time.Time   `json:"timestamp"`
	SentFromEmail string      `json:"sent_from_email"`
	Subject       string      `json:"subject"`
	MailgunID     string      `json:"mailgun_id"`
	Status        EmailStatus `json:"status"`
	OpenedAt      *time.Time  `json:"opened_at"`
}

// NewEmailSendRecord builds the history entry written right after a successful send.
func NewEmailSendRecord(from, subject, mailgunID string, sentAt time.Time) EmailSendRecord {
	return EmailSendRecord{
		Timestamp:     sentAt.UTC(),
		SentFromEmail: from,
		Subject:       subject,
		MailgunID:     mailgunID,
		Status:        EmailStatusSent,
	}
}

// HistoryStatus describes what happened to the history write after a successful send.
type HistoryStatus string

const (
	HistoryRecorded        HistoryStatus = "recorded"
	HistoryContactNotFound HistoryStatus = "contact_not_found"
	HistoryFailed          HistoryStatus = "failed"
)
