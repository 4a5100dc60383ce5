package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/lead-outreach-service/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// NewContact creates a new Contact instance with default fake data.
// Non-zero fields of the optional override replace the generated values.
func NewContact(overrideDefaults ...*Contact) *Contact {
	person := gofakeit.Person()
	addr := gofakeit.Address()
	base := &Contact{
		ID:                     gofakeit.UUID(),
		FirstName:              person.FirstName,
		LastName:               person.LastName,
		Title:                  gofakeit.JobTitle(),
		OrganizationName:       gofakeit.Company(),
		OrganizationWebsiteURL: gofakeit.URL(),
		Email:                  gofakeit.Email(),
		Address:                addr.Address,
		City:                   addr.City,
		State:                  addr.State,
		Industry:               gofakeit.RandomString([]string{"Software", "Healthcare", "Retail", "Manufacturing", "Finance"}),
		LinkedinURL:            "https://www.linkedin.com/in/" + gofakeit.Username(),
		TwitterURL:             "https://twitter.com/" + gofakeit.Username(),
		FacebookURL:            "https://facebook.com/" + gofakeit.Username(),
		Headline:               gofakeit.HipsterSentence(6),
		EmailHistory:           datatypes.JSONSlice[EmailSendRecord]{},
		CreatedAt:              utils.Now().Add(-time.Duration(gofakeit.Number(1, 365)) * 24 * time.Hour),
		UpdatedAt:              utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = pick(ovr.ID, base.ID)
		base.FirstName = pick(ovr.FirstName, base.FirstName)
		base.LastName = pick(ovr.LastName, base.LastName)
		base.Title = pick(ovr.Title, base.Title)
		base.OrganizationName = pick(ovr.OrganizationName, base.OrganizationName)
		base.OrganizationWebsiteURL = pick(ovr.OrganizationWebsiteURL, base.OrganizationWebsiteURL)
		base.Email = pick(ovr.Email, base.Email)
		base.Address = pick(ovr.Address, base.Address)
		base.City = pick(ovr.City, base.City)
		base.State = pick(ovr.State, base.State)
		base.Industry = pick(ovr.Industry, base.Industry)
		base.Headline = pick(ovr.Headline, base.Headline)
		// Pointer and slice fields are taken as-is so tests can force nil
		base.Coordinates = ovr.Coordinates
		base.Disqualification = ovr.Disqualification
		base.LastEmailOpenedTimestamp = ovr.LastEmailOpenedTimestamp
		base.LastEmailClickedTimestamp = ovr.LastEmailClickedTimestamp
		if ovr.EmailHistory != nil {
			base.EmailHistory = ovr.EmailHistory
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewEmailSendRecordFake creates a sent history entry with fake data.
func NewEmailSendRecordFake(overrideDefaults ...*EmailSendRecord) EmailSendRecord {
	base := EmailSendRecord{
		Timestamp:     utils.Now().Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour),
		SentFromEmail: gofakeit.Email(),
		Subject:       gofakeit.Sentence(5),
		MailgunID:     gofakeit.Numerify("##############.#######") + "@" + gofakeit.DomainName(),
		Status:        EmailStatusSent,
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.SentFromEmail = pick(ovr.SentFromEmail, base.SentFromEmail)
		base.Subject = pick(ovr.Subject, base.Subject)
		base.MailgunID = pick(ovr.MailgunID, base.MailgunID)
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if !ovr.Timestamp.IsZero() {
			base.Timestamp = ovr.Timestamp
		}
		base.OpenedAt = ovr.OpenedAt
	}
	return base
}

// NewDisqualificationFake creates an active disqualification record.
func NewDisqualificationFake(reasons ...DisqualificationReason) *Disqualification {
	if len(reasons) == 0 {
		reasons = []DisqualificationReason{ReasonInactive}
	}
	d := &Disqualification{Reasons: reasons, Timestamp: utils.Now()}
	for _, r := range reasons {
		if r == ReasonOther {
			d.OtherReasonText = gofakeit.Sentence(4)
		}
	}
	return d
}

// NewUser creates a new User instance with default fake data.
func NewUser(overrideDefaults ...*User) *User {
	base := &User{
		ID:           gofakeit.UUID(),
		Name:         gofakeit.Name(),
		Email:        gofakeit.Email(),
		PasswordHash: gofakeit.Password(true, true, true, false, false, 60),
		CreatedAt:    utils.Now(),
		UpdatedAt:    utils.Now(),
	}
	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		base.ID = pick(ovr.ID, base.ID)
		base.Name = pick(ovr.Name, base.Name)
		base.Email = pick(ovr.Email, base.Email)
		base.PasswordHash = pick(ovr.PasswordHash, base.PasswordHash)
	}
	return base
}
