package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

const testContactID = "7a1c2a9e-5b7f-4d41-9a0e-3f3f5d0b8c11"

var contactColumns = []string{"id", "first_name", "last_name", "email", "email_history", "disqualification", "last_email_opened_timestamp", "created_at", "updated_at"}

// jsonContains matches a JSON argument containing the given fragment.
type jsonContains string

// Match satisfies sqlmock.Argument interface
func (j jsonContains) Match(v driver.Value) bool {
	switch s := v.(type) {
	case string:
		return strings.Contains(s, string(j))
	case []byte:
		return strings.Contains(string(s), string(j))
	}
	return false
}

func TestPostgresRepo_FindContacts_CountsThenPages(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()
	predicate := contactquery.Build(contactquery.Filter{Industry: "retail", DisqualificationStatus: contactquery.Qualified})
	page := contactquery.Page{Number: 3, Limit: 10}
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "contacts" WHERE industry ILIKE $1 AND NOT (CASE WHEN jsonb_typeof(disqualification -> 'reasons') = 'array'`)).
		WithArgs("%retail%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))

	rows := sqlmock.NewRows(contactColumns).
		AddRow("c-21", "Ada", "Lovelace", "ada@example.com", []byte(`[{"mailgun_id":"m1@mg","status":"sent","subject":"Hi"}]`), nil, nil, now, now).
		AddRow("c-22", "Alan", "Turing", "alan@example.com", []byte(`[]`), []byte(`{"reasons":[]}`), now, now, now).
		AddRow("c-23", "Grace", "Hopper", "grace@example.com", []byte(`[]`), nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE industry ILIKE $1 AND NOT (CASE`) + `.*` + regexp.QuoteMeta(`ORDER BY created_at ASC,id ASC LIMIT`)).
		WillReturnRows(rows)

	contacts, total, err := repo.FindContacts(ctx, predicate, page)
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)
	assert.Equal(t, 3, page.TotalPages(total))
	require.Len(t, contacts, 3)
	assert.True(t, contacts[0].HasBeenEmailed())
	assert.Equal(t, "m1@mg", contacts[0].EmailHistory[0].MailgunID)
	assert.False(t, contacts[1].IsDisqualified())
	assert.NotNil(t, contacts[1].LastEmailOpenedTimestamp)
}

func TestPostgresRepo_FindContacts_NoPredicate(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "contacts"`) + `$`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	contacts, total, err := repo.FindContacts(context.Background(), contactquery.Predicate{}, contactquery.Page{Number: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, contacts)
	assert.Empty(t, contacts)
}

func TestPostgresRepo_FindContacts_PageBeyondTotal(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "contacts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	contacts, total, err := repo.FindContacts(context.Background(), contactquery.Predicate{}, contactquery.Page{Number: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, contacts)
}

func TestPostgresRepo_FindContacts_HugePageSkipsSelect(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "contacts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))

	page := contactquery.Page{Number: 92233720368547760, Limit: 100}
	contacts, total, err := repo.FindContacts(context.Background(), contactquery.Predicate{}, page)
	require.NoError(t, err)
	assert.Equal(t, int64(23), total)
	assert.Empty(t, contacts)
}

func TestPostgresRepo_FindContacts_DatabaseError(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "contacts"`)).
		WillReturnError(errors.New("connection reset by peer"))

	_, _, err := repo.FindContacts(context.Background(), contactquery.Predicate{}, contactquery.Page{Number: 1, Limit: 10})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestPostgresRepo_FindContactByID(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE id = $1`)).
		WithArgs(testContactID, 1).
		WillReturnRows(sqlmock.NewRows(contactColumns).
			AddRow(testContactID, "Ada", "Lovelace", "ada@example.com", []byte(`[]`), []byte(`{"reasons":["other"],"other_reason_text":"moved"}`), nil, now, now))

	contact, err := repo.FindContactByID(context.Background(), testContactID)
	require.NoError(t, err)
	assert.Equal(t, testContactID, contact.ID)
	assert.True(t, contact.IsDisqualified())
	assert.Equal(t, "moved", contact.Disqualification.OtherReasonText)
}

func TestPostgresRepo_FindContactByID_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "contacts" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.FindContactByID(context.Background(), testContactID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresRepo_UpdateContactFields_Returning(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()
	record := model.Disqualification{Reasons: []model.DisqualificationReason{model.ReasonInactive}, Timestamp: now}

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "contacts" SET "disqualification"=$1,"title"=$2,"updated_at"=$3 WHERE id = $4 RETURNING *`)).
		WithArgs(jsonContains(`"reasons":["inactive"]`), "CTO", AnyTime{}, testContactID).
		WillReturnRows(sqlmock.NewRows(contactColumns).
			AddRow(testContactID, "Ada", "Lovelace", "ada@example.com", []byte(`[]`), []byte(`{"reasons":["inactive"]}`), nil, now, now))

	updated, err := repo.UpdateContactFields(context.Background(), testContactID, map[string]interface{}{
		"title":            "CTO",
		"disqualification": record,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsDisqualified())
}

func TestPostgresRepo_UpdateContactFields_Requalify(t *testing.T) {
	repo, mock := newTestRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "contacts" SET "disqualification"=$1,"updated_at"=$2 WHERE id = $3 RETURNING *`)).
		WithArgs(nil, AnyTime{}, testContactID).
		WillReturnRows(sqlmock.NewRows(contactColumns).
			AddRow(testContactID, "Ada", "Lovelace", "ada@example.com", []byte(`[]`), nil, nil, now, now))

	updated, err := repo.UpdateContactFields(context.Background(), testContactID, map[string]interface{}{
		"disqualification": nil,
	})
	require.NoError(t, err)
	assert.False(t, updated.IsDisqualified())
	assert.Nil(t, updated.Disqualification)
}

func TestPostgresRepo_UpdateContactFields_NotFound(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "contacts" SET "title"=$1,"updated_at"=$2 WHERE id = $3 RETURNING *`)).
		WillReturnRows(sqlmock.NewRows(contactColumns))

	_, err := repo.UpdateContactFields(context.Background(), testContactID, map[string]interface{}{"title": "CEO"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresRepo_UpdateContactFields_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.UpdateContactFields(context.Background(), testContactID, map[string]interface{}{})
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestPostgresRepo_MarkEmailOpened(t *testing.T) {
	repo, mock := newTestRepo(t)
	openedAt := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE "contacts" SET "last_email_opened_timestamp"=$1,"updated_at"=$2 WHERE id = $3 RETURNING *`)).
		WithArgs(openedAt, openedAt, testContactID).
		WillReturnRows(sqlmock.NewRows(contactColumns).
			AddRow(testContactID, "Ada", "Lovelace", "ada@example.com", []byte(`[]`), nil, openedAt, openedAt, openedAt))

	updated, err := repo.MarkEmailOpened(context.Background(), testContactID, openedAt)
	require.NoError(t, err)
	require.NotNil(t, updated.LastEmailOpenedTimestamp)
	assert.True(t, openedAt.Equal(*updated.LastEmailOpenedTimestamp))
}

func TestPostgresRepo_AppendEmailHistory(t *testing.T) {
	repo, mock := newTestRepo(t)
	record := model.NewEmailSendRecord("me@example.com", "Intro", "20240101.abc@mg.example.com", time.Now())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "email_history"=CASE WHEN jsonb_typeof(email_history) = 'array' THEN email_history ELSE '[]'::jsonb END || jsonb_build_array(CAST($1 AS jsonb)),"updated_at"=$2 WHERE id = $3`)).
		WithArgs(jsonContains(`"mailgun_id":"20240101.abc@mg.example.com"`), AnyTime{}, testContactID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.AppendEmailHistory(context.Background(), testContactID, record)
	assert.NoError(t, err)
}

func TestPostgresRepo_AppendEmailHistory_ContactMissing(t *testing.T) {
	repo, mock := newTestRepo(t)
	record := model.NewEmailSendRecord("me@example.com", "Intro", "abc@mg", time.Now())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "email_history"=`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.AppendEmailHistory(context.Background(), testContactID, record)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresRepo_AppendEmailHistory_DatabaseError(t *testing.T) {
	repo, mock := newTestRepo(t)
	record := model.NewEmailSendRecord("me@example.com", "Intro", "abc@mg", time.Now())

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "email_history"=`)).
		WillReturnError(errors.New("connection reset by peer"))

	err := repo.AppendEmailHistory(context.Background(), testContactID, record)
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
}

func TestPostgresRepo_RecordEngagement_Opened(t *testing.T) {
	repo, mock := newTestRepo(t)
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	event := model.EngagementEvent{Event: model.EngagementOpened, Recipient: "ada@example.com", MessageID: "abc@mg", OccurredAt: at}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE contacts SET email_history = ( SELECT jsonb_agg(`) + `.*` +
		regexp.QuoteMeta(`WITH ORDINALITY AS h(elem, ord) ), last_email_opened_timestamp = $4, updated_at = $5 WHERE lower(email) = $6 AND email_history @> jsonb_build_array(jsonb_build_object('mailgun_id', CAST($7 AS text)))`)).
		WithArgs("abc@mg", "opened", at, at, AnyTime{}, "ada@example.com", "abc@mg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.RecordEngagement(context.Background(), event))
}

func TestPostgresRepo_RecordEngagement_Clicked(t *testing.T) {
	repo, mock := newTestRepo(t)
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	event := model.EngagementEvent{Event: model.EngagementClicked, Recipient: "ada@example.com", MessageID: "abc@mg", OccurredAt: at}

	mock.ExpectExec(regexp.QuoteMeta(`last_email_clicked_timestamp = $4, last_email_opened_timestamp = $5, updated_at = $6 WHERE lower(email) = $7`)).
		WithArgs("abc@mg", "clicked", at, at, at, AnyTime{}, "ada@example.com", "abc@mg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.RecordEngagement(context.Background(), event))
}

func TestPostgresRepo_RecordEngagement_OverwritesMatchedElement(t *testing.T) {
	repo, mock := newTestRepo(t)
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	event := model.EngagementEvent{Event: model.EngagementOpened, Recipient: "ada@example.com", MessageID: "abc@mg", OccurredAt: at}

	// The element's status and opened_at are plain parameters, not conditional on stored values.
	mock.ExpectExec(regexp.QuoteMeta(`CASE WHEN h.elem->>'mailgun_id' = $1 THEN h.elem || jsonb_build_object( 'status', CAST($2 AS text), 'opened_at', to_jsonb(CAST($3 AS timestamptz)) ) ELSE h.elem END`)).
		WithArgs("abc@mg", "opened", at, at, AnyTime{}, "ada@example.com", "abc@mg").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.RecordEngagement(context.Background(), event))
}

func TestPostgresRepo_RecordEngagement_NoMatch(t *testing.T) {
	repo, mock := newTestRepo(t)
	event := model.EngagementEvent{Event: model.EngagementOpened, Recipient: "other@example.com", MessageID: "abc@mg", OccurredAt: time.Now()}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE contacts SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RecordEngagement(context.Background(), event)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgresRepo_RecordEngagement_UntrackedEvent(t *testing.T) {
	repo, _ := newTestRepo(t)
	event := model.EngagementEvent{Event: "delivered", Recipient: "ada@example.com", MessageID: "abc@mg"}

	err := repo.RecordEngagement(context.Background(), event)
	assert.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestPostgresRepo_SetCoordinates(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "contacts" SET "coordinates"=$1 WHERE id = $2`)).
		WithArgs(jsonContains(`"lat":30.27`), testContactID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetCoordinates(context.Background(), testContactID, model.Coordinates{Lat: 30.27, Lng: -97.74})
	assert.NoError(t, err)
}
