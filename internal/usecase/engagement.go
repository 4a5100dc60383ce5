package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
)

// EngagementOutcome is the result of reconciling one webhook event.
type EngagementOutcome string

const (
	EngagementRecorded EngagementOutcome = "recorded"
	EngagementIgnored  EngagementOutcome = "ignored"
)

// ReconcileEngagement applies a verified opened or clicked event to the
// contact that has both the recipient address and the message id.
// Other events are ignored. Replays write the same values again.
func (s *LeadService) ReconcileEngagement(ctx context.Context, event model.EngagementEvent) (EngagementOutcome, error) {
	log := logger.FromContext(ctx).With(
		zap.String("event", string(event.Event)),
		zap.String("mailgun_id", event.MessageID),
	)

	if !event.Event.Tracked() {
		observer.IncWebhookEvent(string(event.Event), string(EngagementIgnored))
		log.Debug("Ignoring untracked webhook event")
		return EngagementIgnored, nil
	}

	event.Recipient = strings.ToLower(strings.TrimSpace(event.Recipient))
	event.MessageID = strings.TrimSpace(event.MessageID)
	if event.Recipient == "" || event.MessageID == "" {
		observer.IncWebhookEvent(string(event.Event), "invalid")
		return "", fmt.Errorf("%w: recipient and message id are required", apperrors.ErrValidation)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	if err := s.contactRepo.RecordEngagement(ctx, event); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			observer.IncWebhookEvent(string(event.Event), "not_found")
			log.Warn("No contact matched webhook event", zap.String("recipient", event.Recipient))
			return "", err
		}
		observer.IncWebhookEvent(string(event.Event), "error")
		log.Error("Failed to record webhook event", zap.Error(err))
		return "", err
	}

	observer.IncWebhookEvent(string(event.Event), string(EngagementRecorded))
	log.Info("Recorded email engagement", zap.String("recipient", event.Recipient))

	activity := model.ActivityEmailOpened
	if event.Event == model.EngagementClicked {
		activity = model.ActivityEmailClicked
	}
	s.publish(ctx, model.LeadActivityEvent{
		Type:       activity,
		Email:      event.Recipient,
		MailgunID:  event.MessageID,
		OccurredAt: event.OccurredAt,
	})
	return EngagementRecorded, nil
}
