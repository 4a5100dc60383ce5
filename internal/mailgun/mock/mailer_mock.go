package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/lead-outreach-service/internal/mailgun"
)

// MailerMock mocks the Mailer interface
type MailerMock struct {
	mock.Mock
}

// Ensure MailerMock implements mailgun.Mailer
var _ mailgun.Mailer = (*MailerMock)(nil)

// Send mocks the Send method
func (m *MailerMock) Send(ctx context.Context, email mailgun.OutboundEmail) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
