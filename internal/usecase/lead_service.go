package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/jetstream"
	"gitlab.com/timkado/api/lead-outreach-service/internal/mailgun"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/reqctx"
	"gitlab.com/timkado/api/lead-outreach-service/internal/storage"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// disqualificationKey is the patch key handled by the disqualification state machine.
const disqualificationKey = "disqualification"

// ContactPage is one page of query results.
type ContactPage struct {
	Contacts    []model.Contact `json:"contacts"`
	TotalItems  int64           `json:"totalItems"`
	CurrentPage int             `json:"currentPage"`
	TotalPages  int             `json:"totalPages"`
}

// LeadService implements contact querying, editing, email dispatch and
// engagement reconciliation.
type LeadService struct {
	contactRepo storage.ContactRepo
	mailer      mailgun.Mailer
	publisher   jetstream.ActivityPublisher
	now         func() time.Time
}

// NewLeadService creates a new lead service
func NewLeadService(
	contactRepo storage.ContactRepo,
	mailer mailgun.Mailer,
	publisher jetstream.ActivityPublisher,
) *LeadService {
	if publisher == nil {
		publisher = jetstream.NoopPublisher{}
	}
	return &LeadService{
		contactRepo: contactRepo,
		mailer:      mailer,
		publisher:   publisher,
		now:         utils.Now,
	}
}

// validateContactID rejects ids that cannot name a contact.
func validateContactID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: invalid contact ID format", apperrors.ErrBadRequest)
	}
	return nil
}

// ListContacts runs the query engine for one page.
func (s *LeadService) ListContacts(ctx context.Context, filter contactquery.Filter, page contactquery.Page) (*ContactPage, error) {
	predicate := contactquery.Build(filter)
	contacts, total, err := s.contactRepo.FindContacts(ctx, predicate, page)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to list contacts",
			zap.Int("page", page.Number),
			zap.Int("limit", page.Limit),
			zap.Error(err),
		)
		return nil, err
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return &ContactPage{
		Contacts:    contacts,
		TotalItems:  total,
		CurrentPage: page.Number,
		TotalPages:  page.TotalPages(total),
	}, nil
}

// GetContact loads one contact by id.
func (s *LeadService) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	if err := validateContactID(id); err != nil {
		return nil, err
	}
	return s.contactRepo.FindContactByID(ctx, id)
}

// UpdateContact merges a partial JSON object into a contact.
//
// Editable profile keys are written as given, read-only keys are ignored,
// unknown keys are rejected. A body "id" must match the path id. The
// "disqualification" key runs through NormalizeDisqualification; a null or
// empty reason set requalifies the contact.
func (s *LeadService) UpdateContact(ctx context.Context, id string, patch map[string]json.RawMessage) (*model.Contact, error) {
	log := logger.FromContext(ctx).With(zap.String("contact_id", id))
	if err := validateContactID(id); err != nil {
		return nil, err
	}

	now := s.now()
	updates, disq, touchedDisq, err := buildContactUpdates(id, patch, now)
	if err != nil {
		log.Warn("Rejected contact update", zap.Error(err))
		return nil, err
	}
	updates["updated_at"] = now

	contact, err := s.contactRepo.UpdateContactFields(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	if touchedDisq {
		activity := model.ActivityRequalified
		data := map[string]interface{}{}
		if disq != nil {
			activity = model.ActivityDisqualified
			data["reasons"] = disq.Reasons
			if disq.OtherReasonText != "" {
				data["other_reason_text"] = disq.OtherReasonText
			}
		}
		log.Info("Contact qualification changed", zap.String("activity", string(activity)))
		s.publish(ctx, model.LeadActivityEvent{
			Type:      activity,
			ContactID: id,
			Email:     contact.Email,
			Data:      data,
		})
	}
	return contact, nil
}

// buildContactUpdates turns a JSON patch into a column map.
func buildContactUpdates(id string, patch map[string]json.RawMessage, now time.Time) (map[string]interface{}, *model.Disqualification, bool, error) {
	editable := model.EditableContactFields()
	readOnly := model.ReadOnlyContactFields()
	updates := make(map[string]interface{}, len(patch)+1)

	var (
		disq        *model.Disqualification
		touchedDisq bool
		unknown     []string
	)

	for key, raw := range patch {
		switch {
		case key == "id":
			var bodyID string
			if err := json.Unmarshal(raw, &bodyID); err != nil || (bodyID != "" && bodyID != id) {
				return nil, nil, false, fmt.Errorf("%w: body id does not match path id", apperrors.ErrBadRequest)
			}
		case key == disqualificationKey:
			var in *model.DisqualificationInput
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, nil, false, fmt.Errorf("%w: disqualification must be an object with a reasons array", apperrors.ErrValidation)
			}
			record, err := model.NormalizeDisqualification(in, now)
			if err != nil {
				return nil, nil, false, err
			}
			touchedDisq = true
			disq = record
			if record == nil {
				updates[disqualificationKey] = nil
			} else {
				updates[disqualificationKey] = record
			}
		default:
			if column, ok := editable[key]; ok {
				var value *string
				if err := json.Unmarshal(raw, &value); err != nil {
					return nil, nil, false, fmt.Errorf("%w: field '%s' must be a string", apperrors.ErrValidation, key)
				}
				if value == nil {
					updates[column] = ""
				} else {
					updates[column] = strings.TrimSpace(*value)
				}
				continue
			}
			if _, ok := readOnly[key]; ok {
				continue
			}
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, nil, false, fmt.Errorf("%w: unknown fields: %s", apperrors.ErrBadRequest, strings.Join(unknown, ", "))
	}
	return updates, disq, touchedDisq, nil
}

// MarkOpened records a manual opened marker for a contact.
func (s *LeadService) MarkOpened(ctx context.Context, id string) (*model.Contact, error) {
	if err := validateContactID(id); err != nil {
		return nil, err
	}
	contact, err := s.contactRepo.MarkEmailOpened(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, model.LeadActivityEvent{
		Type:      model.ActivityMarkedOpened,
		ContactID: id,
		Email:     contact.Email,
	})
	return contact, nil
}

// publish stamps the acting user and hands the event to the publisher.
func (s *LeadService) publish(ctx context.Context, event model.LeadActivityEvent) {
	if userID, err := reqctx.UserIDFromContext(ctx); err == nil {
		event.UserID = userID
	}
	s.publisher.PublishActivity(ctx, event)
}
