package jetstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// ActivityStreamConfig builds the stream that captures every lead activity subject.
func ActivityStreamConfig(name, subjectPrefix string, maxAgeDays int) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      name,
		Subjects:  []string{subjectPrefix + ".>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(maxAgeDays) * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

// LeadActivityPublisher publishes lead activity events as JSON to <prefix>.<type>.
type LeadActivityPublisher struct {
	client        ClientInterface
	subjectPrefix string
	timeout       time.Duration
}

// Ensure LeadActivityPublisher implements ActivityPublisher
var _ ActivityPublisher = (*LeadActivityPublisher)(nil)

// NewLeadActivityPublisher creates a publisher on top of a JetStream client.
func NewLeadActivityPublisher(client ClientInterface, subjectPrefix string) *LeadActivityPublisher {
	return &LeadActivityPublisher{
		client:        client,
		subjectPrefix: subjectPrefix,
		timeout:       2 * time.Second,
	}
}

// Subject returns the subject an activity type is published on.
func (p *LeadActivityPublisher) Subject(activityType model.ActivityType) string {
	return p.subjectPrefix + "." + string(activityType)
}

// PublishActivity fills event id and time when missing and publishes the event.
// Failures are logged and counted only.
func (p *LeadActivityPublisher) PublishActivity(ctx context.Context, event model.LeadActivityEvent) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = utils.Now()
	}
	log := logger.FromContext(ctx).With(
		zap.String("activity_type", string(event.Type)),
		zap.String("event_id", event.EventID),
	)

	data, err := json.Marshal(event)
	if err != nil {
		observer.IncActivityPublish(string(event.Type), err)
		log.Error("Failed to encode lead activity event", zap.Error(err))
		return
	}

	// Detach from request cancellation so a finished response does not abort the publish.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.client.Publish(pubCtx, p.Subject(event.Type), event.EventID, data, map[string]string{
		"Content-Type": "application/json",
	})
	observer.IncActivityPublish(string(event.Type), err)
	if err != nil {
		log.Warn("Failed to publish lead activity event", zap.Error(err))
		return
	}
	log.Debug("Published lead activity event")
}

// NoopPublisher drops every event. Used when NATS is not configured.
type NoopPublisher struct{}

// PublishActivity implements ActivityPublisher.
func (NoopPublisher) PublishActivity(ctx context.Context, event model.LeadActivityEvent) {
	logger.FromContext(ctx).Debug("Lead activity publishing disabled", zap.String("activity_type", string(event.Type)))
}
