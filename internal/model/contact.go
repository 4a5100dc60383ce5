package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Coordinates is a resolved map position for a contact.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Contact represents a lead in the PostgreSQL database.
type Contact struct {
	ID                        string                               `json:"id" gorm:"primaryKey;type:text"`
	FirstName                 string                               `json:"first_name,omitempty" gorm:"type:text"`
	LastName                  string                               `json:"last_name,omitempty" gorm:"type:text"`
	Title                     string                               `json:"title,omitempty" gorm:"type:text"`
	OrganizationName          string                               `json:"organization_name,omitempty" gorm:"type:text"`
	OrganizationWebsiteURL    string                               `json:"organization_website_url,omitempty" gorm:"column:organization_website_url;type:text"`
	Email                     string                               `json:"email,omitempty" gorm:"index;type:text"`
	Address                   string                               `json:"address,omitempty" gorm:"type:text"`
	City                      string                               `json:"city,omitempty" gorm:"index;type:text"`
	State                     string                               `json:"state,omitempty" gorm:"type:text"`
	Industry                  string                               `json:"industry,omitempty" gorm:"index;type:text"`
	LinkedinURL               string                               `json:"linkedin_url,omitempty" gorm:"column:linkedin_url;type:text"`
	TwitterURL                string                               `json:"twitter_url,omitempty" gorm:"column:twitter_url;type:text"`
	FacebookURL               string                               `json:"facebook_url,omitempty" gorm:"column:facebook_url;type:text"`
	Headline                  string                               `json:"headline,omitempty" gorm:"type:text"`
	Coordinates               *datatypes.JSONType[Coordinates]     `json:"coordinates,omitempty" gorm:"type:jsonb"`
	EmailHistory              datatypes.JSONSlice[EmailSendRecord] `json:"email_history" gorm:"type:jsonb;not null;default:'[]'"`
	LastEmailOpenedTimestamp  *time.Time                           `json:"last_email_opened_timestamp,omitempty"`
	LastEmailClickedTimestamp *time.Time                           `json:"last_email_clicked_timestamp,omitempty"`
	Disqualification          *Disqualification                    `json:"disqualification,omitempty" gorm:"type:jsonb"`
	CreatedAt                 time.Time                            `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt                 time.Time                            `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Contact model, respecting the Namer.
func (Contact) TableName(namer schema.Namer) string {
	return namer.TableName("contacts")
}

// IsDisqualified reports whether the contact carries a disqualification with at least one reason.
func (c *Contact) IsDisqualified() bool {
	return c.Disqualification.Active()
}

// HasBeenEmailed reports whether at least one outreach email was recorded.
func (c *Contact) HasBeenEmailed() bool {
	return len(c.EmailHistory) > 0
}

// Location returns the stored coordinates, if any.
func (c *Contact) Location() (Coordinates, bool) {
	if c.Coordinates == nil {
		return Coordinates{}, false
	}
	return c.Coordinates.Data(), true
}

// GeocodeQuery returns the free-text address used to resolve coordinates.
// Falls back to "city, state" when no street address is known.
func (c *Contact) GeocodeQuery() string {
	if c.Address != "" {
		return c.Address
	}
	switch {
	case c.City != "" && c.State != "":
		return c.City + ", " + c.State
	case c.City != "":
		return c.City
	default:
		return c.State
	}
}

// EditableContactFields lists the JSON keys a partial update may write,
// mapped to their column names.
func EditableContactFields() map[string]string {
	return map[string]string{
		"first_name":               "first_name",
		"last_name":                "last_name",
		"title":                    "title",
		"organization_name":        "organization_name",
		"organization_website_url": "organization_website_url",
		"email":                    "email",
		"address":                  "address",
		"city":                     "city",
		"state":                    "state",
		"industry":                 "industry",
		"linkedin_url":             "linkedin_url",
		"twitter_url":              "twitter_url",
		"facebook_url":             "facebook_url",
		"headline":                 "headline",
	}
}

// ReadOnlyContactFields lists keys that clients may echo back but never overwrite.
func ReadOnlyContactFields() map[string]struct{} {
	return map[string]struct{}{
		"id":                           {},
		"email_history":                {},
		"last_email_opened_timestamp":  {},
		"last_email_clicked_timestamp": {},
		"coordinates":                  {},
		"created_at":                   {},
		"updated_at":                   {},
	}
}
