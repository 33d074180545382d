package handler

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/msomdec/field-review/internal/domain"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// ReviewFilter is the review list state carried in the URL query so list
// pages can be bookmarked and shared.
type ReviewFilter struct {
	Status   domain.ReviewStatus
	Query    string
	Page     int
	PageSize int
}

// ParseReviewFilter reads a filter from query values. Unknown statuses and
// out-of-range paging fall back to defaults.
func ParseReviewFilter(q url.Values) ReviewFilter {
	f := ReviewFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Page:     1,
		PageSize: defaultPageSize,
	}
	switch s := domain.ReviewStatus(q.Get("status")); s {
	case domain.ReviewStatusOpen, domain.ReviewStatusInProgress, domain.ReviewStatusComplete:
		f.Status = s
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		f.Page = n
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil && n > 0 && n <= maxPageSize {
		f.PageSize = n
	}
	return f
}

// Values encodes the filter, leaving out anything at its default.
func (f ReviewFilter) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Page > 1 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 && f.PageSize != defaultPageSize {
		v.Set("size", strconv.Itoa(f.PageSize))
	}
	return v
}

// URL returns path with the filter's query string.
func (f ReviewFilter) URL(path string) string {
	if enc := f.Values().Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}

// WithPage returns a copy of f on page n.
func (f ReviewFilter) WithPage(n int) ReviewFilter {
	f.Page = n
	return f
}

func (f ReviewFilter) domain() domain.ReviewFilter {
	size := f.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	return domain.ReviewFilter{
		Status: f.Status,
		Query:  f.Query,
		Limit:  size,
		Offset: (max(f.Page, 1) - 1) * size,
	}
}
