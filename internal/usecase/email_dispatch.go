package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/mailgun"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/internal/validator"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

// SendEmailInput is the outreach email request.
type SendEmailInput struct {
	To        string `json:"to" validate:"notblank"`
	From      string `json:"from" validate:"notblank"`
	Subject   string `json:"subject" validate:"notblank"`
	TextBody  string `json:"textBody" validate:"required_without=HTMLBody"`
	HTMLBody  string `json:"htmlBody" validate:"required_without=TextBody"`
	ContactID string `json:"contactId" validate:"required,uuid"`
}

// SendEmailResult reports the provider id and whether history was recorded.
// HistoryStatus other than recorded means the email went out but the
// contact's history was not updated.
type SendEmailResult struct {
	ProviderID    string
	MailgunID     string
	HistoryStatus model.HistoryStatus
}

// SendEmail sends through the mailer, then appends the send to the contact's
// email history. The two steps are not atomic and a failed history write is
// never retried.
func (s *LeadService) SendEmail(ctx context.Context, in SendEmailInput) (*SendEmailResult, error) {
	log := logger.FromContext(ctx).With(zap.String("contact_id", in.ContactID))

	in.TextBody = strings.TrimSpace(in.TextBody)
	in.HTMLBody = strings.TrimSpace(in.HTMLBody)
	if err := validator.Validate(in); err != nil {
		observer.IncEmailSendFailure("validation")
		return nil, err
	}

	providerID, err := s.mailer.Send(ctx, mailgun.OutboundEmail{
		To:      in.To,
		From:    in.From,
		Subject: in.Subject,
		Text:    in.TextBody,
		HTML:    in.HTMLBody,
	})
	if err != nil {
		observer.IncEmailSendFailure("upstream")
		log.Error("Email send failed", zap.String("to", in.To), zap.Error(err))
		return nil, err
	}

	mailgunID := mailgun.ParseMessageID(providerID)
	result := &SendEmailResult{
		ProviderID:    providerID,
		MailgunID:     mailgunID,
		HistoryStatus: model.HistoryRecorded,
	}

	record := model.NewEmailSendRecord(in.From, in.Subject, mailgunID, s.now())
	if err := s.contactRepo.AppendEmailHistory(ctx, in.ContactID, record); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			result.HistoryStatus = model.HistoryContactNotFound
			log.Warn("Email sent but contact not found for history", zap.String("mailgun_id", mailgunID))
		} else {
			result.HistoryStatus = model.HistoryFailed
			log.Error("Email sent but history write failed", zap.String("mailgun_id", mailgunID), zap.Error(err))
		}
	}
	observer.IncEmailsSent(string(result.HistoryStatus))

	if result.HistoryStatus == model.HistoryRecorded {
		log.Info("Email sent and recorded", zap.String("mailgun_id", mailgunID))
		s.publish(ctx, model.LeadActivityEvent{
			Type:      model.ActivityEmailSent,
			ContactID: in.ContactID,
			Email:     in.To,
			MailgunID: mailgunID,
			Data:      map[string]interface{}{"subject": in.Subject},
		})
	}
	return result, nil
}
