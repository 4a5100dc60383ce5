// Package contactquery turns list-page query parameters into a SQL predicate
// over the contacts table and computes paging.
package contactquery

import (
	"net/url"
	"strings"
)

// EmailStatus filters on whether any email was sent.
type EmailStatus string

const (
	EmailContacted    EmailStatus = "contacted"
	EmailNotContacted EmailStatus = "not_contacted"
)

// DisqualificationStatus filters on the disqualification record.
type DisqualificationStatus string

const (
	Disqualified DisqualificationStatus = "disqualified"
	Qualified    DisqualificationStatus = "qualified"
)

// OpenedStatus filters on the last opened timestamp.
type OpenedStatus string

const (
	Opened        OpenedStatus = "opened"
	NotOpenedSent OpenedStatus = "not_opened_sent"
)

// ClickedStatus filters on the last clicked timestamp.
type ClickedStatus string

const (
	Clicked          ClickedStatus = "clicked"
	NotClickedOpened ClickedStatus = "not_clicked_opened"
)

// Filter holds one optional value per filter dimension.
// Empty fields do not constrain the result.
type Filter struct {
	SearchTerm             string
	Industry               string
	City                   string
	EmailStatus            EmailStatus
	DisqualificationStatus DisqualificationStatus
	OpenedEmailStatus      OpenedStatus
	ClickedEmailStatus     ClickedStatus
}

// ParseFilter reads the filter from query parameters. Unrecognized enum
// values, including "all", are treated as no filter.
func ParseFilter(q url.Values) Filter {
	f := Filter{
		SearchTerm: strings.TrimSpace(q.Get("searchTerm")),
		Industry:   strings.TrimSpace(q.Get("industry")),
		City:       strings.TrimSpace(q.Get("city")),
	}

	switch s := EmailStatus(q.Get("emailStatus")); s {
	case EmailContacted, EmailNotContacted:
		f.EmailStatus = s
	}
	switch s := DisqualificationStatus(q.Get("disqualificationStatus")); s {
	case Disqualified, Qualified:
		f.DisqualificationStatus = s
	}
	switch s := OpenedStatus(q.Get("openedEmailStatus")); s {
	case Opened, NotOpenedSent:
		f.OpenedEmailStatus = s
	}
	switch s := ClickedStatus(q.Get("clickedEmailStatus")); s {
	case Clicked, NotClickedOpened:
		f.ClickedEmailStatus = s
	}
	return f
}

// IsEmpty reports whether the filter matches every contact.
func (f Filter) IsEmpty() bool {
	return f == Filter{}
}
