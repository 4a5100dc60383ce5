package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
	"gitlab.com/timkado/api/lead-outreach-service/internal/observer"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/logger"
	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

const contactEntity = "contact"

// appendHistoryExpr appends one record, treating a missing or non-array history as empty.
const appendHistoryExpr = `CASE WHEN jsonb_typeof(email_history) = 'array' THEN email_history ELSE '[]'::jsonb END || jsonb_build_array(CAST(? AS jsonb))`

// recordEngagementSQL rewrites only the history element whose mailgun_id matches and
// stamps the contact-level timestamps. The WHERE clause is the compound match:
// recipient address (case-insensitive) plus presence of the message id in the history.
// The matched element takes the event kind and event time; the last delivery wins.
const recordEngagementSQL = `UPDATE contacts SET
	email_history = (
		SELECT jsonb_agg(
			CASE WHEN h.elem->>'mailgun_id' = ? THEN
				h.elem || jsonb_build_object(
					'status', CAST(? AS text),
					'opened_at', to_jsonb(CAST(? AS timestamptz))
				)
			ELSE h.elem END
			ORDER BY h.ord)
		FROM jsonb_array_elements(contacts.email_history) WITH ORDINALITY AS h(elem, ord)
	),
	%s,
	updated_at = ?
WHERE lower(email) = ? AND email_history @> jsonb_build_array(jsonb_build_object('mailgun_id', CAST(? AS text)))`

const (
	openedTimestampSet  = `last_email_opened_timestamp = ?`
	clickedTimestampSet = `last_email_clicked_timestamp = ?, last_email_opened_timestamp = ?`
)

// FindContacts counts the contacts matching the predicate and loads the requested page.
func (r *PostgresRepo) FindContacts(ctx context.Context, predicate contactquery.Predicate, page contactquery.Page) ([]model.Contact, int64, error) {
	startTime := utils.Now()
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Contact{})
		if !predicate.Empty() {
			q = q.Where(predicate.SQL, predicate.Args...)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		observer.ObserveDbOperationDuration("count", contactEntity, time.Since(startTime), err)
		return nil, 0, checkConstraintViolation(err)
	}

	contacts := make([]model.Contact, 0, page.Limit)
	if total == 0 || int64(page.Offset()) >= total {
		observer.ObserveDbOperationDuration("find", contactEntity, time.Since(startTime), nil)
		return contacts, total, nil
	}

	err := scoped().
		Order("created_at ASC").
		Order("id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&contacts).Error
	observer.ObserveDbOperationDuration("find", contactEntity, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to find contacts", zap.Error(err))
		return nil, 0, checkConstraintViolation(err)
	}
	return contacts, total, nil
}

// FindContactByID loads one contact.
func (r *PostgresRepo) FindContactByID(ctx context.Context, id string) (*model.Contact, error) {
	startTime := utils.Now()
	var contact model.Contact
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error
	observer.ObserveDbOperationDuration("find_by_id", contactEntity, time.Since(startTime), err)
	if err != nil {
		return nil, checkConstraintViolation(err)
	}
	return &contact, nil
}

// UpdateContactFields applies a column map to one contact and returns the updated row.
// updated_at is stamped when the caller did not set it.
func (r *PostgresRepo) UpdateContactFields(ctx context.Context, id string, updates map[string]interface{}) (*model.Contact, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", apperrors.ErrBadRequest)
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = utils.Now()
	}

	startTime := utils.Now()
	var updated model.Contact
	result := r.db.WithContext(ctx).
		Model(&updated).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(updates)
	observer.ObserveDbOperationDuration("update", contactEntity, time.Since(startTime), result.Error)
	if result.Error != nil {
		logger.FromContext(ctx).Error("Failed to update contact", zap.String("contact_id", id), zap.Error(result.Error))
		return nil, checkConstraintViolation(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, id)
	}
	return &updated, nil
}

// MarkEmailOpened records a manual open marker on the contact.
func (r *PostgresRepo) MarkEmailOpened(ctx context.Context, id string, openedAt time.Time) (*model.Contact, error) {
	return r.UpdateContactFields(ctx, id, map[string]interface{}{
		"last_email_opened_timestamp": openedAt,
		"updated_at":                  openedAt,
	})
}

// AppendEmailHistory atomically appends one record to the contact's email history.
func (r *PostgresRepo) AppendEmailHistory(ctx context.Context, contactID string, record model.EmailSendRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: failed to encode email history record: %w", apperrors.ErrBadRequest, err)
	}

	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Contact{}).
		Where("id = ?", contactID).
		Updates(map[string]interface{}{
			"email_history": gorm.Expr(appendHistoryExpr, string(payload)),
			"updated_at":    utils.Now(),
		})
	observer.ObserveDbOperationDuration("append_history", contactEntity, time.Since(startTime), result.Error)
	if result.Error != nil {
		logger.FromContext(ctx).Error("Failed to append email history",
			zap.String("contact_id", contactID),
			zap.String("mailgun_id", record.MailgunID),
			zap.Error(result.Error),
		)
		return checkConstraintViolation(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, contactID)
	}
	return nil
}

// RecordEngagement applies an opened or clicked event in one UPDATE. It returns
// ErrNotFound when no contact has that recipient address and message id.
func (r *PostgresRepo) RecordEngagement(ctx context.Context, event model.EngagementEvent) error {
	var (
		stampSQL  string
		stampArgs []interface{}
	)
	switch event.Event {
	case model.EngagementOpened:
		stampSQL = openedTimestampSet
		stampArgs = []interface{}{event.OccurredAt}
	case model.EngagementClicked:
		stampSQL = clickedTimestampSet
		stampArgs = []interface{}{event.OccurredAt, event.OccurredAt}
	default:
		return fmt.Errorf("%w: untracked engagement event %q", apperrors.ErrBadRequest, event.Event)
	}

	status := string(event.Event)
	args := []interface{}{event.MessageID, status, event.OccurredAt}
	args = append(args, stampArgs...)
	args = append(args, utils.Now(), event.Recipient, event.MessageID)

	startTime := utils.Now()
	result := r.db.WithContext(ctx).Exec(fmt.Sprintf(recordEngagementSQL, stampSQL), args...)
	observer.ObserveDbOperationDuration("record_engagement", contactEntity, time.Since(startTime), result.Error)
	if result.Error != nil {
		logger.FromContext(ctx).Error("Failed to record engagement",
			zap.String("event", status),
			zap.String("mailgun_id", event.MessageID),
			zap.Error(result.Error),
		)
		return checkConstraintViolation(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: no contact for recipient with message %s", apperrors.ErrNotFound, event.MessageID)
	}
	return nil
}

// SetCoordinates stores resolved coordinates without touching updated_at.
func (r *PostgresRepo) SetCoordinates(ctx context.Context, id string, coords model.Coordinates) error {
	startTime := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&model.Contact{}).
		Where("id = ?", id).
		UpdateColumn("coordinates", datatypes.NewJSONType(coords))
	observer.ObserveDbOperationDuration("set_coordinates", contactEntity, time.Since(startTime), result.Error)
	if result.Error != nil {
		return checkConstraintViolation(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: contact %s", apperrors.ErrNotFound, id)
	}
	return nil
}
