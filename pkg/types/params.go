package types

import "math"

// Pagination selects one page of a result set. Page is 1-based and defaults
// to 1. A nil or zero Limit means the whole result set.
type Pagination struct {
	Page  *uint32 `json:"page,omitempty"`
	Limit *uint32 `json:"limit,omitempty"`
}

// Bounded reports whether the pagination restricts the result size.
func (p *Pagination) Bounded() bool {
	return p != nil && p.Limit != nil && *p.Limit > 0
}

// Window returns the skip and limit for a bounded pagination.
// Callers should check Bounded first; for an unbounded value both are zero.
// A skip past the int64 range saturates, so far pages are empty.
func (p *Pagination) Window() (skip, limit int64) {
	if !p.Bounded() {
		return 0, 0
	}
	page := uint32(1)
	if p.Page != nil && *p.Page > 1 {
		page = *p.Page
	}
	limit = int64(*p.Limit)
	if int64(page-1) > math.MaxInt64/limit {
		return math.MaxInt64, limit
	}
	return int64(page-1) * limit, limit
}

// QueryParams is the input of a find request.
// Filters and Sort are passed through as raw wire values.
type QueryParams struct {
	Collection string      `json:"collection"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Filters    any         `json:"filters,omitempty"`
	Sort       any         `json:"sort,omitempty"`
}

// MutateParams is the input of add, update and remove requests.
type MutateParams struct {
	Collection string `json:"collection"`
	Data       []any  `json:"data"`
}

// UniqueIndexParams requests one unique ascending compound index.
type UniqueIndexParams struct {
	Collection string   `json:"collection"`
	Fields     []string `json:"fields"`
}

// ExecutionResult reports the effect of a raw statement.
// LastInsertRow duplicates LastInsertID for clients written against the
// older field name.
type ExecutionResult struct {
	RowsAffected  int64 `json:"rowsAffected"`
	LastInsertID  int64 `json:"lastInsertId"`
	LastInsertRow int64 `json:"lastInsertRow"`
}
