package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"

	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

// ClientInterface defines the interface for the JetStream client
// This allows for easy mocking in tests
type ClientInterface interface {
	// SetupStream ensures the stream exists with the given configuration
	SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error

	// Publish publishes a message to a subject with optional headers.
	// msgID is used for server-side de-duplication when non-empty.
	Publish(ctx context.Context, subject, msgID string, data []byte, headers map[string]string) error

	// Close closes the NATS connection
	Close()
}

// ActivityPublisher emits lead activity events. Implementations never fail the caller.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, event model.LeadActivityEvent)
}
