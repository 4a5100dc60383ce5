// Package mailgun adapts the Mailgun API to the service's outbound email needs.
package mailgun

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	mg "github.com/mailgun/mailgun-go/v5"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

const providerName = "mailgun"

// OutboundEmail is one message to hand to the provider.
type OutboundEmail struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email and returns the provider's raw message id.
type Mailer interface {
	Send(ctx context.Context, email OutboundEmail) (string, error)
}

type sendFunc func(ctx context.Context, email OutboundEmail) (string, error)

// Client sends through the Mailgun HTTP API.
type Client struct {
	domain  string
	timeout time.Duration
	send    sendFunc
}

// Ensure Client implements Mailer
var _ Mailer = (*Client)(nil)

// NewClient creates a Mailgun backed mailer for the given sending domain.
func NewClient(apiKey, domain string) *Client {
	api := mg.NewMailgun(apiKey)
	return &Client{
		domain:  domain,
		timeout: 30 * time.Second,
		send: func(ctx context.Context, email OutboundEmail) (string, error) {
			m := mg.NewMessage(domain, email.From, email.Subject, email.Text, email.To)
			if email.HTML != "" {
				m.SetHTML(email.HTML)
			}
			resp, err := api.Send(ctx, m)
			if err != nil {
				return "", err
			}
			return resp.ID, nil
		},
	}
}

// Send delivers the email. Provider failures and an empty message id are
// reported as apperrors.ErrUpstream.
func (c *Client) Send(ctx context.Context, email OutboundEmail) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.send(ctx, email)
	if err != nil {
		logger.FromContext(ctx).Error("Mailgun send failed",
			zap.String("domain", c.domain),
			zap.Error(err),
		)
		return "", apperrors.NewUpstream(providerName, 0, err.Error(), err)
	}
	if strings.TrimSpace(id) == "" {
		return "", apperrors.NewUpstream(providerName, 0, "provider returned no message id", nil)
	}
	return id, nil
}

var messageIDPattern = regexp.MustCompile(`<([^>]+)>`)

// ParseMessageID strips the angle brackets Mailgun wraps around message ids.
// A value without brackets is returned trimmed.
func ParseMessageID(raw string) string {
	if m := messageIDPattern.FindStringSubmatch(raw); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// LoggingMailer logs outgoing email instead of sending it. Used when Mailgun
// credentials are not configured outside production.
type LoggingMailer struct {
	domain string
	now    func() time.Time
}

// Ensure LoggingMailer implements Mailer
var _ Mailer = (*LoggingMailer)(nil)

// NewLoggingMailer creates a mailer that only logs.
func NewLoggingMailer(domain string) *LoggingMailer {
	if domain == "" {
		domain = "localhost"
	}
	return &LoggingMailer{domain: domain, now: time.Now}
}

// Send logs the email and returns a synthetic bracketed message id.
func (l *LoggingMailer) Send(ctx context.Context, email OutboundEmail) (string, error) {
	id := fmt.Sprintf("<mock-%d@%s>", l.now().UnixNano(), l.domain)
	logger.FromContext(ctx).Info("Mock email send (mailgun not configured)",
		zap.String("to", email.To),
		zap.String("from", email.From),
		zap.String("subject", email.Subject),
		zap.String("message_id", id),
	)
	return id, nil
}
