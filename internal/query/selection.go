package query

import (
	"context"
	"strings"

	"tronquery/internal/domain"
)

// Selection is an unexecuted query over one model. The entity service
// builds its base predicate here and layers ordering and paging on top
// before running it.
type Selection[T any] struct {
	engine    *Engine[T]
	conds     []domain.Predicate
	orderCol  string
	orderDir  domain.SortDirection
	offset    *int
	limit     *int
	relations []string
}

// Where adds a predicate; all predicates are ANDed.
func (s *Selection[T]) Where(p domain.Predicate) *Selection[T] {
	if !p.IsZero() {
		s.conds = append(s.conds, p)
	}
	return s
}

// OrderBy sorts the selection by a declared column. Unknown columns are
// silently ignored, leaving the selection unsorted on that field.
func (s *Selection[T]) OrderBy(column string, dir domain.SortDirection) *Selection[T] {
	if !s.engine.model.HasField(column) {
		return s
	}
	s.orderCol = column
	s.orderDir = dir
	return s
}

// Offset skips the first n rows.
func (s *Selection[T]) Offset(n int) *Selection[T] {
	s.offset = &n
	return s
}

// Limit caps the number of returned rows.
func (s *Selection[T]) Limit(n int) *Selection[T] {
	s.limit = &n
	return s
}

// Paginate applies the set page options.
func (s *Selection[T]) Paginate(page domain.PageOptions) *Selection[T] {
	if page.Offset != nil {
		s.Offset(*page.Offset)
	}
	if page.Limit != nil {
		s.Limit(*page.Limit)
	}
	return s
}

func (s *Selection[T]) build() (string, []any) {
	b := newSQLBuilder()
	var sb strings.Builder
	sb.WriteString(s.engine.selectBase())

	if len(s.conds) > 0 {
		parts := make([]string, len(s.conds))
		for i, c := range s.conds {
			parts[i] = "(" + b.bind(c) + ")"
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if s.orderCol != "" {
		direction := "ASC"
		if s.orderDir == domain.SortDesc {
			direction = "DESC"
		}
		sb.WriteString(" ORDER BY " + s.orderCol + " " + direction)
	}

	if s.limit != nil {
		sb.WriteString(" LIMIT " + b.placeholder(b.addArg(*s.limit)))
	}
	if s.offset != nil {
		sb.WriteString(" OFFSET " + b.placeholder(b.addArg(*s.offset)))
	}

	return sb.String(), b.args
}

// All executes the selection and hydrates any requested relations.
func (s *Selection[T]) All(ctx context.Context) ([]*T, error) {
	stmt, args := s.build()
	out, err := s.engine.queryAll(ctx, stmt, args)
	if err != nil {
		return nil, err
	}
	if err := s.engine.loadRelations(ctx, out, s.relations); err != nil {
		return nil, err
	}
	return out, nil
}

// First executes the selection capped at one row, returning nil when
// nothing matches.
func (s *Selection[T]) First(ctx context.Context) (*T, error) {
	rows, err := s.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
