package service

import (
	"context"
	"fmt"

	"tronquery/internal/domain"
	"tronquery/internal/schema"
)

// Store is the query-engine contract the service depends on. The pgx
// engine implements it; tests substitute an in-memory fake.
type Store[T any] interface {
	FilterByFields(ctx context.Context, filter, exclude map[string]any, relations ...string) ([]*T, error)
	List(ctx context.Context, opts domain.ListOptions) ([]*T, error)
	Scalar(ctx context.Context, criteria any, relations ...string) (*T, error)
	Create(ctx context.Context, fields map[string]any) (*T, error)
	BulkInsert(ctx context.Context, rows []map[string]any, returning string) ([]any, error)
	Update(ctx context.Context, inst *T, fields map[string]any) error
	Delete(ctx context.Context, inst *T) error
}

// Service is the per-model façade over the query engine. It adds the
// guarantees an API boundary needs: uniqueness validation before writes,
// not-found translation and relation hydration.
type Service[T any] struct {
	model schema.Model[T]
	store Store[T]
}

// New builds a service for one registered model.
func New[T any](model schema.Model[T], store Store[T]) *Service[T] {
	return &Service[T]{model: model, store: store}
}

// checkUniqueFields runs one equality query per unique field present in
// data. When excludeID is set the instance's own row is excluded from the
// match set, so an update does not collide with itself. The checks are
// sequential; the store's unique constraints backstop concurrent writers.
func (s *Service[T]) checkUniqueFields(ctx context.Context, data map[string]any, excludeID *int64) error {
	for _, field := range s.model.UniqueFields() {
		value, ok := data[field]
		if !ok {
			continue
		}

		var exclude map[string]any
		if excludeID != nil {
			exclude = map[string]any{s.model.IDColumn: *excludeID}
		}

		matches, err := s.store.FilterByFields(ctx, map[string]any{field: value}, exclude)
		if err != nil {
			return fmt.Errorf("check unique %s.%s: %w", s.model.Name, field, err)
		}
		if len(matches) > 0 {
			return domain.ConflictError{Model: s.model.Name, Field: field, Value: value}
		}
	}
	return nil
}

// Create validates uniqueness and persists a new instance. When relations
// are requested the instance is re-fetched with them hydrated, since the
// insert path cannot load relations in the same round trip.
func (s *Service[T]) Create(ctx context.Context, data map[string]any, relations ...string) (*T, error) {
	if err := s.checkUniqueFields(ctx, data, nil); err != nil {
		return nil, err
	}

	inst, err := s.store.Create(ctx, data)
	if err != nil {
		return nil, err
	}

	if len(relations) > 0 {
		id := s.model.ID(inst)
		return s.store.Scalar(ctx, map[string]any{s.model.IDColumn: id}, relations...)
	}
	return inst, nil
}

// CreateBulk extracts the row list keyed by bulkKey from the payload,
// inserts all rows in one statement and reshapes the returned identifiers
// into a list of single-field objects. There is no per-row uniqueness
// pre-check on this path; store constraints are the only guard.
func (s *Service[T]) CreateBulk(ctx context.Context, data map[string]any, bulkKey, returning string) (map[string][]map[string]any, error) {
	raw, ok := data[bulkKey]
	if !ok {
		return nil, fmt.Errorf("payload has no %q key", bulkKey)
	}

	var rows []map[string]any
	switch v := raw.(type) {
	case []map[string]any:
		rows = v
	case []any:
		rows = make([]map[string]any, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%d]: expected object, got %T", bulkKey, i, item)
			}
			rows[i] = m
		}
	default:
		return nil, fmt.Errorf("%q must be a list of objects, got %T", bulkKey, raw)
	}

	inserted, err := s.store.BulkInsert(ctx, rows, returning)
	if err != nil {
		return nil, err
	}

	ids := make([]map[string]any, len(inserted))
	for i, value := range inserted {
		ids[i] = map[string]any{"id": value}
	}
	return map[string][]map[string]any{bulkKey: ids}, nil
}

// Retrieve fetches an instance by id.
func (s *Service[T]) Retrieve(ctx context.Context, id int64, relations ...string) (*T, error) {
	inst, err := s.store.Scalar(ctx, map[string]any{s.model.IDColumn: id}, relations...)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, domain.NotFoundError{Model: s.model.Name, ID: id}
	}
	return inst, nil
}

// Update re-validates uniqueness excluding the instance's own id, applies
// the field map and returns the refreshed instance.
func (s *Service[T]) Update(ctx context.Context, data map[string]any, id int64, relations ...string) (*T, error) {
	if err := s.checkUniqueFields(ctx, data, &id); err != nil {
		return nil, err
	}

	inst, err := s.Retrieve(ctx, id, relations...)
	if err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, inst, data); err != nil {
		return nil, err
	}
	return inst, nil
}

// Delete removes an instance by id.
func (s *Service[T]) Delete(ctx context.Context, id int64) error {
	inst, err := s.store.Scalar(ctx, map[string]any{s.model.IDColumn: id})
	if err != nil {
		return err
	}
	if inst == nil {
		return domain.NotFoundError{Model: s.model.Name, ID: id}
	}
	return s.store.Delete(ctx, inst)
}

// List returns instances with the given filtering, sorting, paging and
// relation options. Sorting defaults to ascending by id.
func (s *Service[T]) List(ctx context.Context, opts domain.ListOptions) ([]*T, error) {
	if opts.SortField == "" {
		opts.SortField = s.model.IDColumn
	}
	if opts.SortOrder != domain.SortDesc {
		opts.SortOrder = domain.SortAsc
	}
	return s.store.List(ctx, opts)
}
