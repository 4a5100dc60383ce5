package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

// --- ContactRepo Mock ---

// ContactRepoMock mocks the ContactRepo interface
type ContactRepoMock struct {
	mock.Mock
}

// FindContacts mocks the FindContacts method
func (m *ContactRepoMock) FindContacts(ctx context.Context, predicate contactquery.Predicate, page contactquery.Page) ([]model.Contact, int64, error) {
	args := m.Called(ctx, predicate, page)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]model.Contact), args.Get(1).(int64), args.Error(2)
}

// FindContactByID mocks the FindContactByID method
func (m *ContactRepoMock) FindContactByID(ctx context.Context, id string) (*model.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// UpdateContactFields mocks the UpdateContactFields method
func (m *ContactRepoMock) UpdateContactFields(ctx context.Context, id string, updates map[string]interface{}) (*model.Contact, error) {
	args := m.Called(ctx, id, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// MarkEmailOpened mocks the MarkEmailOpened method
func (m *ContactRepoMock) MarkEmailOpened(ctx context.Context, id string, openedAt time.Time) (*model.Contact, error) {
	args := m.Called(ctx, id, openedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Contact), args.Error(1)
}

// AppendEmailHistory mocks the AppendEmailHistory method
func (m *ContactRepoMock) AppendEmailHistory(ctx context.Context, contactID string, record model.EmailSendRecord) error {
	args := m.Called(ctx, contactID, record)
	return args.Error(0)
}

// RecordEngagement mocks the RecordEngagement method
func (m *ContactRepoMock) RecordEngagement(ctx context.Context, event model.EngagementEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// SetCoordinates mocks the SetCoordinates method
func (m *ContactRepoMock) SetCoordinates(ctx context.Context, id string, coords model.Coordinates) error {
	args := m.Called(ctx, id, coords)
	return args.Error(0)
}

// --- UserRepo Mock ---

// UserRepoMock mocks the UserRepo interface
type UserRepoMock struct {
	mock.Mock
}

// CreateUser mocks the CreateUser method
func (m *UserRepoMock) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// FindUserByEmail mocks the FindUserByEmail method
func (m *UserRepoMock) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// --- HealthChecker Mock ---

// HealthCheckerMock mocks the HealthChecker interface
type HealthCheckerMock struct {
	mock.Mock
}

// Ping mocks the Ping method
func (m *HealthCheckerMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks the Close method
func (m *HealthCheckerMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
