package contactquery

import (
	"math"
	"net/url"
	"strconv"
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// ParsePage reads page and limit from query parameters. Missing, malformed or
// non-positive values fall back to page 1 and defaultLimit; limit is capped at maxLimit
// and page is capped so the offset cannot overflow.
func ParsePage(q url.Values, defaultLimit, maxLimit int) Page {
	p := Page{Number: 1, Limit: defaultLimit}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 {
		p.Limit = l
	}
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Limit > 0 && p.Number > math.MaxInt/p.Limit {
		p.Number = math.MaxInt / p.Limit
	}
	return p
}

// Offset returns the number of rows to skip. It never goes negative and
// saturates at math.MaxInt.
func (p Page) Offset() int {
	if p.Number <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Limit
}

// TotalPages returns ceil(total/limit).
func (p Page) TotalPages(total int64) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(p.Limit) - 1) / int64(p.Limit))
}
