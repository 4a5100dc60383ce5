package mock

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/lead-outreach-service/internal/jetstream"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

// ClientMock is a mock implementation of the JetStream Client
type ClientMock struct {
	mock.Mock
}

// Ensure ClientMock implements jetstream.ClientInterface
var _ jetstream.ClientInterface = (*ClientMock)(nil)

// SetupStream mocks the SetupStream method
func (m *ClientMock) SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error {
	args := m.Called(ctx, streamConfig)
	return args.Error(0)
}

// Publish mocks the Publish method
func (m *ClientMock) Publish(ctx context.Context, subject, msgID string, data []byte, headers map[string]string) error {
	args := m.Called(ctx, subject, msgID, data, headers)
	return args.Error(0)
}

// Close mocks the Close method
func (m *ClientMock) Close() {
	m.Called()
}

// ActivityPublisherMock records published lead activity events
type ActivityPublisherMock struct {
	mock.Mock
}

// Ensure ActivityPublisherMock implements jetstream.ActivityPublisher
var _ jetstream.ActivityPublisher = (*ActivityPublisherMock)(nil)

// PublishActivity mocks the PublishActivity method
func (m *ActivityPublisherMock) PublishActivity(ctx context.Context, event model.LeadActivityEvent) {
	m.Called(ctx, event)
}
