package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tronquery/internal/domain"
	"tronquery/internal/schema"
)

// DBTX is the subset of a pgx pool or transaction the engine executes
// against.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Engine translates declarative query intents for one model into SQL
// executed against the store. It owns no business rules; the entity
// service layers uniqueness and not-found semantics on top.
type Engine[T any] struct {
	model schema.Model[T]
	db    DBTX
	cols  string
}

// NewEngine validates the model descriptor and binds it to an executor.
func NewEngine[T any](model schema.Model[T], db DBTX) (*Engine[T], error) {
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("register model: %w", err)
	}
	return &Engine[T]{
		model: model,
		db:    db,
		cols:  strings.Join(model.Columns(), ", "),
	}, nil
}

// WithTx returns an engine running against the given transaction instead
// of the pool.
func (e *Engine[T]) WithTx(tx DBTX) *Engine[T] {
	return &Engine[T]{model: e.model, db: tx, cols: e.cols}
}

// Model exposes the bound descriptor.
func (e *Engine[T]) Model() schema.Model[T] { return e.model }

func (e *Engine[T]) selectBase() string {
	return "SELECT " + e.cols + " FROM " + e.model.Table
}

func (e *Engine[T]) queryAll(ctx context.Context, stmt string, args []any) ([]*T, error) {
	rows, err := e.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.model.Table, err)
	}
	defer rows.Close()

	out := []*T{}
	for rows.Next() {
		inst := new(T)
		if err := rows.Scan(e.model.ScanDest(inst)...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", e.model.Table, err)
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", e.model.Table, err)
	}
	return out, nil
}

// All returns every persisted instance, optionally hydrating relations.
func (e *Engine[T]) All(ctx context.Context, relations ...string) ([]*T, error) {
	out, err := e.queryAll(ctx, e.selectBase(), nil)
	if err != nil {
		return nil, err
	}
	if err := e.loadRelations(ctx, out, relations); err != nil {
		return nil, err
	}
	return out, nil
}

// whereEquals appends an ANDed equality clause for the map, with keys in
// deterministic order. Keys must name declared fields.
func (e *Engine[T]) whereEquals(b *sqlBuilder, filter map[string]any) (string, error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !e.model.HasField(k) {
			return "", fmt.Errorf("model %s has no field %q", e.model.Name, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, len(keys))
	for i, k := range keys {
		idx := b.addArg(filter[k])
		clauses[i] = k + " = " + b.placeholder(idx)
	}
	return " WHERE " + strings.Join(clauses, " AND "), nil
}

// FilterByFields returns instances matching every key/value pair in
// filter. When exclude is given, rows matching it are removed via set
// difference; the service layer uses this to ignore an instance's own row
// during update uniqueness checks. An empty result is not an error.
func (e *Engine[T]) FilterByFields(ctx context.Context, filter, exclude map[string]any, relations ...string) ([]*T, error) {
	b := newSQLBuilder()

	stmt := e.selectBase()
	if len(filter) > 0 {
		clause, err := e.whereEquals(b, filter)
		if err != nil {
			return nil, err
		}
		stmt += clause
	}

	if len(exclude) > 0 {
		clause, err := e.whereEquals(b, exclude)
		if err != nil {
			return nil, err
		}
		stmt += " EXCEPT " + e.selectBase() + clause
	}

	out, err := e.queryAll(ctx, stmt, b.args)
	if err != nil {
		return nil, err
	}
	if err := e.loadRelations(ctx, out, relations); err != nil {
		return nil, err
	}
	return out, nil
}

// Where executes an expression filter immediately. Callers that need to
// compose further clauses use Select instead.
func (e *Engine[T]) Where(ctx context.Context, pred domain.Predicate, relations ...string) ([]*T, error) {
	return e.Select(relations...).Where(pred).All(ctx)
}

// Select returns an unexecuted selection handle.
func (e *Engine[T]) Select(relations ...string) *Selection[T] {
	return &Selection[T]{engine: e, relations: relations}
}

// Scalar returns the first matching instance or nil. It dispatches on the
// criteria type: an equality map goes through FilterByFields, a predicate
// through the expression path.
func (e *Engine[T]) Scalar(ctx context.Context, criteria any, relations ...string) (*T, error) {
	switch c := criteria.(type) {
	case map[string]any:
		rows, err := e.FilterByFields(ctx, c, nil, relations...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	case domain.Predicate:
		return e.Select(relations...).Where(c).First(ctx)
	default:
		return nil, fmt.Errorf("scalar criteria must be a field map or predicate, got %T", criteria)
	}
}

// insertColumns returns the map's keys in declared field order, with the
// id column first when explicitly provided.
func (e *Engine[T]) insertColumns(fields map[string]any) []string {
	cols := make([]string, 0, len(fields))
	if _, ok := fields[e.model.IDColumn]; ok {
		cols = append(cols, e.model.IDColumn)
	}
	for _, f := range e.model.Fields {
		if _, ok := fields[f.Name]; ok {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// Create persists a new instance built from the field map and returns it
// fully materialized, generated identifier included.
func (e *Engine[T]) Create(ctx context.Context, fields map[string]any) (*T, error) {
	if err := e.model.CheckFields(fields); err != nil {
		return nil, err
	}

	var stmt string
	b := newSQLBuilder()
	if len(fields) == 0 {
		stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", e.model.Table, e.cols)
	} else {
		cols := e.insertColumns(fields)
		placeholders := make([]string, len(cols))
		for i, c := range cols {
			placeholders[i] = b.placeholder(b.addArg(fields[c]))
		}
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			e.model.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), e.cols)
	}

	inst := new(T)
	if err := e.db.QueryRow(ctx, stmt, b.args...).Scan(e.model.ScanDest(inst)...); err != nil {
		return nil, fmt.Errorf("insert into %s: %w", e.model.Table, err)
	}
	return inst, nil
}

// BulkInsert persists many rows in a single statement and returns the
// requested field of each inserted row, in input order. Every row must
// provide the same set of fields.
func (e *Engine[T]) BulkInsert(ctx context.Context, rows []map[string]any, returning string) ([]any, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if returning == "" {
		returning = e.model.IDColumn
	}
	if !e.model.HasField(returning) {
		return nil, fmt.Errorf("model %s has no field %q", e.model.Name, returning)
	}
	if err := e.model.CheckFields(rows[0]); err != nil {
		return nil, err
	}

	cols := e.insertColumns(rows[0])
	b := newSQLBuilder()
	tuples := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("bulk insert into %s: row %d has mismatched fields", e.model.Table, i)
		}
		placeholders := make([]string, len(cols))
		for j, c := range cols {
			value, ok := row[c]
			if !ok {
				return nil, fmt.Errorf("bulk insert into %s: row %d is missing field %q", e.model.Table, i, c)
			}
			placeholders[j] = b.placeholder(b.addArg(value))
		}
		tuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s RETURNING %s",
		e.model.Table, strings.Join(cols, ", "), strings.Join(tuples, ", "), returning)

	result, err := e.db.Query(ctx, stmt, b.args...)
	if err != nil {
		return nil, fmt.Errorf("bulk insert into %s: %w", e.model.Table, err)
	}
	defer result.Close()

	var inserted []any
	for result.Next() {
		var value any
		if err := result.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan inserted %s: %w", returning, err)
		}
		inserted = append(inserted, value)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("iterate inserted rows: %w", err)
	}
	return inserted, nil
}

// Update applies the field map onto the instance through the schema's
// setters, persists the change and refreshes the instance from the
// returned row. An empty field map only refreshes. The id column is
// immutable once assigned and cannot appear in the field map.
func (e *Engine[T]) Update(ctx context.Context, inst *T, fields map[string]any) error {
	id := e.model.ID(inst)

	if _, ok := fields[e.model.IDColumn]; ok {
		return fmt.Errorf("update %s %d: %s is immutable", e.model.Table, id, e.model.IDColumn)
	}

	if len(fields) == 0 {
		stmt := fmt.Sprintf("%s WHERE %s = $1", e.selectBase(), e.model.IDColumn)
		if err := e.db.QueryRow(ctx, stmt, id).Scan(e.model.ScanDest(inst)...); err != nil {
			return fmt.Errorf("refresh %s %d: %w", e.model.Table, id, err)
		}
		return nil
	}

	if err := e.model.SetFields(inst, fields); err != nil {
		return err
	}

	b := newSQLBuilder()
	cols := e.insertColumns(fields)
	assignments := make([]string, len(cols))
	for i, c := range cols {
		assignments[i] = c + " = " + b.placeholder(b.addArg(fields[c]))
	}
	idIdx := b.addArg(id)

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING %s",
		e.model.Table, strings.Join(assignments, ", "), e.model.IDColumn, b.placeholder(idIdx), e.cols)

	if err := e.db.QueryRow(ctx, stmt, b.args...).Scan(e.model.ScanDest(inst)...); err != nil {
		return fmt.Errorf("update %s %d: %w", e.model.Table, id, err)
	}
	return nil
}

// UpdateFields is a set-based update: every row matching the predicate is
// changed without being fetched first. A zero predicate updates all rows.
func (e *Engine[T]) UpdateFields(ctx context.Context, fields map[string]any, pred domain.Predicate) error {
	if len(fields) == 0 {
		return nil
	}
	if err := e.model.CheckFields(fields); err != nil {
		return err
	}
	if _, ok := fields[e.model.IDColumn]; ok {
		return fmt.Errorf("update %s by predicate: %s is immutable", e.model.Table, e.model.IDColumn)
	}

	b := newSQLBuilder()
	cols := e.insertColumns(fields)
	assignments := make([]string, len(cols))
	for i, c := range cols {
		assignments[i] = c + " = " + b.placeholder(b.addArg(fields[c]))
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s", e.model.Table, strings.Join(assignments, ", "))
	if !pred.IsZero() {
		stmt += " WHERE " + b.bind(pred)
	}

	if _, err := e.db.Exec(ctx, stmt, b.args...); err != nil {
		return fmt.Errorf("update %s by predicate: %w", e.model.Table, err)
	}
	return nil
}

// Delete removes the instance's row.
func (e *Engine[T]) Delete(ctx context.Context, inst *T) error {
	id := e.model.ID(inst)
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", e.model.Table, e.model.IDColumn)
	if _, err := e.db.Exec(ctx, stmt, id); err != nil {
		return fmt.Errorf("delete %s %d: %w", e.model.Table, id, err)
	}
	return nil
}

// GetByIDs fetches a batch of instances, used by the dataloader.
func (e *Engine[T]) GetByIDs(ctx context.Context, ids []int64) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	stmt := fmt.Sprintf("%s WHERE %s = ANY($1)", e.selectBase(), e.model.IDColumn)
	return e.queryAll(ctx, stmt, []any{ids})
}

// List composes the selection handle with the listing options: ANDed
// predicates, ordering (ascending by id unless told otherwise) and
// paging.
func (e *Engine[T]) List(ctx context.Context, opts domain.ListOptions) ([]*T, error) {
	sel := e.Select(opts.Relations...)
	for _, f := range opts.Filters {
		sel.Where(f)
	}

	field := opts.SortField
	if field == "" {
		field = e.model.IDColumn
	}
	direction := domain.SortAsc
	if strings.EqualFold(string(opts.SortOrder), string(domain.SortDesc)) {
		direction = domain.SortDesc
	}

	return sel.OrderBy(field, direction).Paginate(opts.Page).All(ctx)
}

// loadRelations hydrates the named relations for a whole result set. The
// "*" wildcard loads every declared relation.
func (e *Engine[T]) loadRelations(ctx context.Context, out []*T, relations []string) error {
	if len(relations) == 0 || len(out) == 0 {
		return nil
	}

	names := relations
	if len(relations) == 1 && relations[0] == "*" {
		names = e.model.RelationNames()
	}

	for _, name := range names {
		rel, ok := e.model.Relation(name)
		if !ok {
			return fmt.Errorf("model %s has no relation %q", e.model.Name, name)
		}
		if err := rel.Load(ctx, e.db, out); err != nil {
			return fmt.Errorf("load relation %s.%s: %w", e.model.Name, name, err)
		}
	}
	return nil
}
