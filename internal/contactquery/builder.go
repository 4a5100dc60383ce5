package contactquery

import (
	"strings"
)

// searchColumns are matched by the free-text search term.
var searchColumns = []string{
	"first_name",
	"last_name",
	"organization_name",
	"email",
	"title",
	"address",
}

const (
	emailedPredicate = "(CASE WHEN jsonb_typeof(email_history) = 'array' THEN jsonb_array_length(email_history) ELSE 0 END > 0)"

	// disqualifiedPredicate matches Contact.IsDisqualified: the record exists
	// and its reasons field is a non-empty array.
	disqualifiedPredicate = "(CASE WHEN jsonb_typeof(disqualification -> 'reasons') = 'array' THEN jsonb_array_length(disqualification -> 'reasons') ELSE 0 END > 0)"

	openedPredicate  = "last_email_opened_timestamp IS NOT NULL"
	clickedPredicate = "last_email_clicked_timestamp IS NOT NULL"
)

// Predicate is a parameterized WHERE fragment. An empty SQL matches everything.
type Predicate struct {
	SQL  string
	Args []interface{}
}

// Empty reports whether the predicate has no conditions.
func (p Predicate) Empty() bool {
	return p.SQL == ""
}

// Build converts the filter into a conjunction of conditions. Only the
// search term expands into a disjunction across searchColumns.
func Build(f Filter) Predicate {
	var (
		clauses []string
		args    []interface{}
	)

	if f.SearchTerm != "" {
		pattern := containsPattern(f.SearchTerm)
		ors := make([]string, len(searchColumns))
		for i, col := range searchColumns {
			ors[i] = col + " ILIKE ?"
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if f.Industry != "" {
		clauses = append(clauses, "industry ILIKE ?")
		args = append(args, containsPattern(f.Industry))
	}
	if f.City != "" {
		clauses = append(clauses, "city ILIKE ?")
		args = append(args, containsPattern(f.City))
	}

	switch f.EmailStatus {
	case EmailContacted:
		clauses = append(clauses, emailedPredicate)
	case EmailNotContacted:
		clauses = append(clauses, "NOT "+emailedPredicate)
	}

	switch f.DisqualificationStatus {
	case Disqualified:
		clauses = append(clauses, disqualifiedPredicate)
	case Qualified:
		clauses = append(clauses, "NOT "+disqualifiedPredicate)
	}

	switch f.OpenedEmailStatus {
	case Opened:
		clauses = append(clauses, openedPredicate)
	case NotOpenedSent:
		clauses = append(clauses, emailedPredicate, "last_email_opened_timestamp IS NULL")
	}

	switch f.ClickedEmailStatus {
	case Clicked:
		clauses = append(clauses, clickedPredicate)
	case NotClickedOpened:
		clauses = append(clauses, openedPredicate, "last_email_clicked_timestamp IS NULL")
	}

	return Predicate{SQL: strings.Join(clauses, " AND "), Args: args}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive substring pattern with LIKE
// metacharacters in the user input taken literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
