package storage

import (
	"context"
	"time"

	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

// ContactRepo defines contact storage operations.
// Every mutating call is a single UPDATE statement.
type ContactRepo interface {
	FindContacts(ctx context.Context, predicate contactquery.Predicate, page contactquery.Page) ([]model.Contact, int64, error)
	FindContactByID(ctx context.Context, id string) (*model.Contact, error)
	UpdateContactFields(ctx context.Context, id string, updates map[string]interface{}) (*model.Contact, error)
	MarkEmailOpened(ctx context.Context, id string, openedAt time.Time) (*model.Contact, error)
	AppendEmailHistory(ctx context.Context, contactID string, record model.EmailSendRecord) error
	RecordEngagement(ctx context.Context, event model.EngagementEvent) error
	SetCoordinates(ctx context.Context, id string, coords model.Coordinates) error
}

// UserRepo defines account storage operations.
type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User) error
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// HealthChecker reports database reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
