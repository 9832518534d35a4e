package models

import (
	"net/url"
	"strconv"
	"strings"
)

// SortKey names the field a task listing is ordered by.
type SortKey string

const (
	SortByCreatedAt SortKey = "created_at"
	SortByUpdatedAt SortKey = "updated_at"
	SortByDeadline  SortKey = "deadline"
	SortByPriority  SortKey = "priority"
)

// Valid reports whether k is a supported sort key.
func (k SortKey) Valid() bool {
	switch k {
	case SortByCreatedAt, SortByUpdatedAt, SortByDeadline, SortByPriority:
		return true
	}
	return false
}

// SortOrder is the direction of a sort.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DefaultPageSize is used when a criteria carries no page size.
const DefaultPageSize = 20

// ViewCriteria selects, orders and pages a set of tasks.
// Empty Status or Priority means "no filter".
type ViewCriteria struct {
	Query     string
	Status    Status
	Priority  Priority
	SortBy    SortKey
	SortOrder SortOrder
	Page      int
	PageSize  int
}

// Normalize fills defaults and enforces page >= 1.
func (c ViewCriteria) Normalize() ViewCriteria {
	c.Query = strings.TrimSpace(c.Query)
	if !c.SortBy.Valid() {
		c.SortBy = SortByCreatedAt
	}
	if c.SortOrder != SortAsc && c.SortOrder != SortDesc {
		c.SortOrder = SortDesc
	}
	if c.Page < 1 {
		c.Page = 1
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}

// Matches reports whether t passes the query, status and priority filters.
func (c ViewCriteria) Matches(t Task) bool {
	if c.Status != "" && t.Status != c.Status {
		return false
	}
	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}
	if q := strings.TrimSpace(c.Query); q != "" {
		return strings.Contains(strings.ToLower(t.Title), strings.ToLower(q))
	}
	return true
}

// Values encodes the criteria as listing query parameters. Unset fields are omitted.
func (c ViewCriteria) Values() url.Values {
	v := url.Values{}
	if q := strings.TrimSpace(c.Query); q != "" {
		v.Set("q", q)
	}
	if c.Status != "" {
		v.Set("status", string(c.Status))
	}
	if c.Priority != "" {
		v.Set("priority", string(c.Priority))
	}
	if c.SortBy != "" {
		v.Set("sort_by", string(c.SortBy))
	}
	if c.SortOrder != "" {
		v.Set("sort_order", string(c.SortOrder))
	}
	if c.Page > 0 {
		v.Set("page", strconv.Itoa(c.Page))
	}
	if c.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(c.PageSize))
	}
	return v
}

// ParseCriteria reads listing query parameters. Numbers that fail to parse are
// left at zero and filled in by Normalize.
func ParseCriteria(v url.Values) ViewCriteria {
	page, _ := strconv.Atoi(v.Get("page"))
	size, _ := strconv.Atoi(v.Get("page_size"))
	return ViewCriteria{
		Query:     v.Get("q"),
		Status:    Status(v.Get("status")),
		Priority:  Priority(v.Get("priority")),
		SortBy:    SortKey(v.Get("sort_by")),
		SortOrder: SortOrder(strings.ToLower(v.Get("sort_order"))),
		Page:      page,
		PageSize:  size,
	}
}

// TaskPage is one page of a task listing. Total is the filtered count before slicing.
type TaskPage struct {
	Items    []Task `json:"items"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Total    int    `json:"total"`
}

// TotalPages returns the number of pages, never less than one.
func (p TaskPage) TotalPages() int {
	return PageCount(p.Total, p.PageSize)
}

// PageCount returns ceil(total/size), at least 1.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

// ViewMode is the persisted layout preference for task views.
type ViewMode string

const (
	ViewModeList  ViewMode = "list"
	ViewModeBoard ViewMode = "board"
)

// ParseViewMode returns the mode named by s. The legacy name "kanban" maps to board.
func ParseViewMode(s string) (ViewMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "list":
		return ViewModeList, true
	case "board", "kanban":
		return ViewModeBoard, true
	}
	return "", false
}
