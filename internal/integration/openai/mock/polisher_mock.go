package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/lead-outreach-service/internal/integration/openai"
)

// PolisherMock mocks the Polisher interface
type PolisherMock struct {
	mock.Mock
}

// Ensure PolisherMock implements openai.Polisher
var _ openai.Polisher = (*PolisherMock)(nil)

// Polish mocks the Polish method
func (m *PolisherMock) Polish(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}
