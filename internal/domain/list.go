package domain

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PageOptions narrows a listing to a window of rows. Nil fields leave the
// corresponding clause off the query.
type PageOptions struct {
	Offset *int
	Limit  *int
}

// ListOptions captures filtering, ordering, paging and relation loading
// preferences for a listing. An unknown SortField is silently ignored and
// the listing stays unsorted on that field.
type ListOptions struct {
	Relations []string
	SortField string
	SortOrder SortDirection
	Filters   []Predicate
	Page      PageOptions
}
