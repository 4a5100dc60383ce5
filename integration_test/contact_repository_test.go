//go:build integration

package integration_test

import (
	"time"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/lead-outreach-service/internal/apperrors"
	"gitlab.com/timkado/api/lead-outreach-service/internal/contactquery"
	"gitlab.com/timkado/api/lead-outreach-service/internal/model"
)

type ContactRepositoryTestSuite struct {
	BaseIntegrationSuite
}

func (s *ContactRepositoryTestSuite) seed(contacts ...*model.Contact) {
	s.Require().NoError(seedContacts(s.Ctx, s.DB, contacts...))
}

func (s *ContactRepositoryTestSuite) find(f contactquery.Filter, page contactquery.Page) ([]model.Contact, int64) {
	contacts, total, err := s.Repo.FindContacts(s.Ctx, contactquery.Build(f), page)
	s.Require().NoError(err)
	return contacts, total
}

func ids(contacts []model.Contact) []string {
	out := make([]string, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

func (s *ContactRepositoryTestSuite) TestFilters() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opened := base.Add(time.Hour)
	sent := datatypes.JSONSlice[model.EmailSendRecord]{model.NewEmailSendRecordFake()}

	fresh := model.NewContact(&model.Contact{FirstName: "Grace", Industry: "Software", City: "Boston", CreatedAt: base})
	emailed := model.NewContact(&model.Contact{Industry: "Retail", City: "Austin", EmailHistory: sent, CreatedAt: base.Add(time.Minute)})
	engaged := model.NewContact(&model.Contact{Industry: "Software", City: "Austin", EmailHistory: sent, LastEmailOpenedTimestamp: &opened, CreatedAt: base.Add(2 * time.Minute)})
	dropped := model.NewContact(&model.Contact{Industry: "Finance", City: "Boston", Disqualification: model.NewDisqualificationFake(model.ReasonInactive), CreatedAt: base.Add(3 * time.Minute)})
	emptyReasons := model.NewContact(&model.Contact{Industry: "Finance", City: "Denver", Disqualification: &model.Disqualification{Reasons: []model.DisqualificationReason{}}, CreatedAt: base.Add(4 * time.Minute)})
	s.seed(fresh, emailed, engaged, dropped, emptyReasons)

	all := contactquery.Page{Number: 1, Limit: 100}

	got, total := s.find(contactquery.Filter{}, all)
	s.Equal(int64(5), total)
	s.Equal([]string{fresh.ID, emailed.ID, engaged.ID, dropped.ID, emptyReasons.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{Industry: "soft"}, all)
	s.ElementsMatch([]string{fresh.ID, engaged.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{City: "AUSTIN"}, all)
	s.ElementsMatch([]string{emailed.ID, engaged.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{SearchTerm: "grac"}, all)
	s.Contains(ids(got), fresh.ID)

	got, _ = s.find(contactquery.Filter{EmailStatus: contactquery.EmailContacted}, all)
	s.ElementsMatch([]string{emailed.ID, engaged.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{EmailStatus: contactquery.EmailNotContacted}, all)
	s.ElementsMatch([]string{fresh.ID, dropped.ID, emptyReasons.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{DisqualificationStatus: contactquery.Disqualified}, all)
	s.Equal([]string{dropped.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{DisqualificationStatus: contactquery.Qualified}, all)
	s.ElementsMatch([]string{fresh.ID, emailed.ID, engaged.ID, emptyReasons.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{OpenedEmailStatus: contactquery.NotOpenedSent}, all)
	s.Equal([]string{emailed.ID}, ids(got))

	got, _ = s.find(contactquery.Filter{Industry: "Software", OpenedEmailStatus: contactquery.Opened}, all)
	s.Equal([]string{engaged.ID}, ids(got))
}

func (s *ContactRepositoryTestSuite) TestPaging() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var seeded []string
	for i := 0; i < 7; i++ {
		c := model.NewContact(&model.Contact{CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		s.seed(c)
		seeded = append(seeded, c.ID)
	}

	got, total := s.find(contactquery.Filter{}, contactquery.Page{Number: 2, Limit: 3})
	s.Equal(int64(7), total)
	s.Equal(seeded[3:6], ids(got))

	got, total = s.find(contactquery.Filter{}, contactquery.Page{Number: 4, Limit: 3})
	s.Equal(int64(7), total)
	s.Empty(got)
}

func (s *ContactRepositoryTestSuite) TestUpdateAndRequalify() {
	c := model.NewContact()
	s.seed(c)

	disq := model.NewDisqualificationFake(model.ReasonOther)
	updated, err := s.Repo.UpdateContactFields(s.Ctx, c.ID, map[string]interface{}{
		"title":            "VP Sales",
		"disqualification": disq,
	})
	s.Require().NoError(err)
	s.Equal("VP Sales", updated.Title)
	s.Require().NotNil(updated.Disqualification)
	s.Equal(disq.OtherReasonText, updated.Disqualification.OtherReasonText)
	s.True(updated.IsDisqualified())

	updated, err = s.Repo.UpdateContactFields(s.Ctx, c.ID, map[string]interface{}{"disqualification": nil})
	s.Require().NoError(err)
	s.False(updated.IsDisqualified())

	_, err = s.Repo.UpdateContactFields(s.Ctx, model.NewContact().ID, map[string]interface{}{"title": "x"})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ContactRepositoryTestSuite) TestEmailHistoryAndEngagement() {
	c := model.NewContact(&model.Contact{Email: "lead@example.com"})
	s.seed(c)

	sentAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := model.NewEmailSendRecord("sales@example.com", "Hello", "first@mg.example.com", sentAt)
	second := model.NewEmailSendRecord("sales@example.com", "Follow up", "second@mg.example.com", sentAt.Add(time.Hour))
	s.Require().NoError(s.Repo.AppendEmailHistory(s.Ctx, c.ID, first))
	s.Require().NoError(s.Repo.AppendEmailHistory(s.Ctx, c.ID, second))
	s.ErrorIs(s.Repo.AppendEmailHistory(s.Ctx, model.NewContact().ID, first), apperrors.ErrNotFound)

	openedAt := sentAt.Add(2 * time.Hour)
	s.Require().NoError(s.Repo.RecordEngagement(s.Ctx, model.EngagementEvent{
		Event: model.EngagementOpened, Recipient: "lead@example.com", MessageID: "second@mg.example.com", OccurredAt: openedAt,
	}))

	stored, err := loadContact(s.Ctx, s.DB, c.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.EmailHistory, 2)
	s.Equal(model.EmailStatusSent, stored.EmailHistory[0].Status)
	s.Equal(model.EmailStatusOpened, stored.EmailHistory[1].Status)
	s.Require().NotNil(stored.EmailHistory[1].OpenedAt)
	s.True(openedAt.Equal(*stored.EmailHistory[1].OpenedAt))
	s.Require().NotNil(stored.LastEmailOpenedTimestamp)
	s.True(openedAt.Equal(*stored.LastEmailOpenedTimestamp))

	clickedAt := openedAt.Add(time.Minute)
	s.Require().NoError(s.Repo.RecordEngagement(s.Ctx, model.EngagementEvent{
		Event: model.EngagementClicked, Recipient: "lead@example.com", MessageID: "second@mg.example.com", OccurredAt: clickedAt,
	}))

	stored, err = loadContact(s.Ctx, s.DB, c.ID)
	s.Require().NoError(err)
	s.Equal(model.EmailStatusClicked, stored.EmailHistory[1].Status)
	s.True(clickedAt.Equal(*stored.EmailHistory[1].OpenedAt))
	s.Require().NotNil(stored.LastEmailClickedTimestamp)
	s.True(clickedAt.Equal(*stored.LastEmailClickedTimestamp))
	s.True(clickedAt.Equal(*stored.LastEmailOpenedTimestamp))

	// A later delivery overwrites the element whatever its current status.
	lateOpen := clickedAt.Add(time.Minute)
	s.Require().NoError(s.Repo.RecordEngagement(s.Ctx, model.EngagementEvent{
		Event: model.EngagementOpened, Recipient: "lead@example.com", MessageID: "second@mg.example.com", OccurredAt: lateOpen,
	}))

	stored, err = loadContact(s.Ctx, s.DB, c.ID)
	s.Require().NoError(err)
	s.Equal(model.EmailStatusOpened, stored.EmailHistory[1].Status)
	s.True(lateOpen.Equal(*stored.EmailHistory[1].OpenedAt))
	s.True(lateOpen.Equal(*stored.LastEmailOpenedTimestamp))
	s.True(clickedAt.Equal(*stored.LastEmailClickedTimestamp))
	s.Equal(model.EmailStatusSent, stored.EmailHistory[0].Status)

	err = s.Repo.RecordEngagement(s.Ctx, model.EngagementEvent{
		Event: model.EngagementOpened, Recipient: "someone@else.com", MessageID: "second@mg.example.com", OccurredAt: openedAt,
	})
	s.ErrorIs(err, apperrors.ErrNotFound)
	err = s.Repo.RecordEngagement(s.Ctx, model.EngagementEvent{
		Event: model.EngagementOpened, Recipient: "lead@example.com", MessageID: "unknown@mg.example.com", OccurredAt: openedAt,
	})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ContactRepositoryTestSuite) TestMarkOpenedAndCoordinates() {
	c := model.NewContact()
	s.seed(c)

	openedAt := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	updated, err := s.Repo.MarkEmailOpened(s.Ctx, c.ID, openedAt)
	s.Require().NoError(err)
	s.Require().NotNil(updated.LastEmailOpenedTimestamp)
	s.True(openedAt.Equal(*updated.LastEmailOpenedTimestamp))

	s.Require().NoError(s.Repo.SetCoordinates(s.Ctx, c.ID, model.Coordinates{Lat: 42.36, Lng: -71.06}))
	stored, err := loadContact(s.Ctx, s.DB, c.ID)
	s.Require().NoError(err)
	loc, ok := stored.Location()
	s.True(ok)
	s.InDelta(42.36, loc.Lat, 1e-9)
	s.True(openedAt.Equal(stored.UpdatedAt), "coordinates must not touch updated_at")
}
