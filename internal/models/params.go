package models

import "github.com/google/uuid"

const (
	MinAge          = 18
	MaxAge          = 99
	DefaultPageSize = 10
	MaxPageSize     = 50

	OrderByCreated    = "created"
	OrderByLastActive = "lastActive"

	// GenderAny disables the gender filter.
	GenderAny = "any"
)

// UserParams drives the filtered, sorted and paginated member listing.
type UserParams struct {
	UserID     uuid.UUID `form:"-"`
	Gender     string    `form:"gender"`
	MinAge     int       `form:"minAge"`
	MaxAge     int       `form:"maxAge"`
	Likers     bool      `form:"likers"`
	Likees     bool      `form:"likees"`
	OrderBy    string    `form:"orderBy"`
	PageNumber int       `form:"pageNumber"`
	PageSize   int       `form:"pageSize"`
}

// NewUserParams returns params with the default age band and first page.
func NewUserParams(userID uuid.UUID) UserParams {
	return UserParams{
		UserID:     userID,
		MinAge:     MinAge,
		MaxAge:     MaxAge,
		PageNumber: 1,
		PageSize:   DefaultPageSize,
	}
}

// Normalize clamps paging and the age band into range. A zero age bound
// falls back to the default band edge.
func (p *UserParams) Normalize(defaultSize, maxSize int) {
	if p.PageNumber < 1 {
		p.PageNumber = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}

	if p.MinAge < MinAge {
		p.MinAge = MinAge
	}
	if p.MaxAge <= 0 || p.MaxAge > MaxAge {
		p.MaxAge = MaxAge
	}
	if p.MinAge > p.MaxAge {
		p.MinAge, p.MaxAge = p.MaxAge, p.MinAge
	}

	if p.OrderBy != OrderByCreated {
		p.OrderBy = OrderByLastActive
	}
}

// HasAgeFilter reports whether the band differs from the default one.
func (p UserParams) HasAgeFilter() bool {
	return p.MinAge != MinAge || p.MaxAge != MaxAge
}

// Offset is the number of rows skipped before the requested page.
func (p UserParams) Offset() int {
	return (p.PageNumber - 1) * p.PageSize
}

// PagedResult is one page of a filtered result set.
type PagedResult[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
	TotalPages int `json:"totalPages"`
}

// NewPagedResult builds a page, computing TotalPages from the count.
func NewPagedResult[T any](items []T, total, pageNumber, pageSize int) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &PagedResult[T]{
		Items:      items,
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: pages,
	}
}

// MapPage converts the items of a page, keeping its metadata.
func MapPage[T, U any](page *PagedResult[T], fn func(T) U) *PagedResult[U] {
	out := make([]U, len(page.Items))
	for i, item := range page.Items {
		out[i] = fn(item)
	}
	return &PagedResult[U]{
		Items:      out,
		TotalCount: page.TotalCount,
		PageNumber: page.PageNumber,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}
