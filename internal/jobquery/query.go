// Package jobquery turns user driven search, filter and paging changes into
// job list fetches, publishing only the result of the latest effective query.
package jobquery

import (
	"fmt"
	"strings"

	"github.com/celestiaorg/jobdesk/internal/types"
)

// StatusFilter restricts the job list by proposal state
type StatusFilter string

const (
	// StatusAll applies no status restriction
	StatusAll StatusFilter = "all"
	// StatusPending lists jobs without a proposal
	StatusPending StatusFilter = "pending"
	// StatusGenerated lists jobs with a generated proposal
	StatusGenerated StatusFilter = "generated"
	// StatusDraft lists jobs with an edited, unsent proposal
	StatusDraft StatusFilter = "draft"
	// StatusApplied lists jobs that have been applied to
	StatusApplied StatusFilter = "applied"
)

// StatusFilters lists every valid filter in display order
var StatusFilters = []StatusFilter{StatusAll, StatusPending, StatusGenerated, StatusDraft, StatusApplied}

// ParseStatusFilter validates a filter name
func ParseStatusFilter(s string) (StatusFilter, error) {
	f := StatusFilter(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range StatusFilters {
		if f == valid {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status filter %q", types.ErrValidation, s)
}

// DefaultPageSize is the page size used when none is configured
const DefaultPageSize = 20

// Query is the effective job list query. It is a value; every change
// produces a new Query.
type Query struct {
	SearchText string
	Status     StatusFilter
	Page       int
	PageSize   int
}

// NewQuery returns the initial query for the given page size
func NewQuery(pageSize int) Query {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Query{Status: StatusAll, Page: 1, PageSize: pageSize}
}

// Equivalent reports whether q and other would fetch the same page
func (q Query) Equivalent(other Query) bool {
	return strings.TrimSpace(q.SearchText) == strings.TrimSpace(other.SearchText) &&
		q.Status == other.Status &&
		q.Page == other.Page &&
		q.PageSize == other.PageSize
}

// Params converts the query into list endpoint parameters
func (q Query) Params() types.ListJobsParams {
	return types.ListJobsParams{
		Search: strings.TrimSpace(q.SearchText),
		Status: string(q.Status),
		Page:   q.Page,
		Limit:  q.PageSize,
	}
}

// PageCount returns the number of pages for total items, never less than one
func PageCount(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

type actionKind int

const (
	actionCommitSearch actionKind = iota
	actionSetStatus
	actionSetPage
	actionClear
)

type action struct {
	kind   actionKind
	text   string
	status StatusFilter
	page   int
}

// reduce applies one user change to the whole query tuple. A filter change
// and its page reset happen in the same step.
func reduce(q Query, a action) Query {
	switch a.kind {
	case actionCommitSearch:
		token := strings.TrimSpace(a.text)
		if token != q.SearchText {
			q.SearchText = token
			q.Page = 1
		}
	case actionSetStatus:
		if a.status != q.Status {
			q.Status = a.status
			q.Page = 1
		}
	case actionSetPage:
		q.Page = max(1, a.page)
	case actionClear:
		q.SearchText = ""
		q.Status = StatusAll
		q.Page = 1
	}
	return q
}
