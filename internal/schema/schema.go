package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of a pgx pool or transaction needed to load
// related rows.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Field describes one persisted column of a model.
type Field[T any] struct {
	Name   string
	Unique bool

	// Set writes a raw value onto the instance. Setters are declared at
	// registration so that field updates are validated against the
	// model's schema instead of applied dynamically by name.
	Set func(*T, any) error
}

// Relation is a named association to another model, loaded for a whole
// result set in a second round trip.
type Relation[T any] struct {
	Name string
	Load func(ctx context.Context, q Querier, parents []*T) error
}

// Model describes how instances of T map to a table: column layout,
// primary identifier, unique fields and named relations.
type Model[T any] struct {
	Name      string
	Table     string
	IDColumn  string
	Fields    []Field[T]
	Relations []Relation[T]

	// ID reads the primary identifier of an instance.
	ID func(*T) int64
	// ScanDest returns scan targets pointing into inst, aligned with
	// Columns() order.
	ScanDest func(inst *T) []any
}

// Validate checks the model definition at registration time.
func (m Model[T]) Validate() error {
	if m.Table == "" {
		return fmt.Errorf("model %s: table name is required", m.Name)
	}
	if m.IDColumn == "" {
		return fmt.Errorf("model %s: id column is required", m.Name)
	}
	if m.ID == nil || m.ScanDest == nil {
		return fmt.Errorf("model %s: ID and ScanDest accessors are required", m.Name)
	}
	seen := map[string]bool{m.IDColumn: true}
	for _, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("model %s: field with empty name", m.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("model %s: duplicate field %q", m.Name, f.Name)
		}
		if f.Set == nil {
			return fmt.Errorf("model %s: field %q has no setter", m.Name, f.Name)
		}
		seen[f.Name] = true
	}
	rels := map[string]bool{}
	for _, r := range m.Relations {
		if r.Name == "" || r.Load == nil {
			return fmt.Errorf("model %s: relation with empty name or loader", m.Name)
		}
		if rels[r.Name] {
			return fmt.Errorf("model %s: duplicate relation %q", m.Name, r.Name)
		}
		rels[r.Name] = true
	}
	return nil
}

// Columns returns the column list in scan order: id column first, then
// declared fields.
func (m Model[T]) Columns() []string {
	cols := make([]string, 0, len(m.Fields)+1)
	cols = append(cols, m.IDColumn)
	for _, f := range m.Fields {
		cols = append(cols, f.Name)
	}
	return cols
}

// HasField reports whether name is the id column or a declared field.
func (m Model[T]) HasField(name string) bool {
	if name == m.IDColumn {
		return true
	}
	for _, f := range m.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// UniqueFields returns the names of all fields marked unique.
func (m Model[T]) UniqueFields() []string {
	var unique []string
	for _, f := range m.Fields {
		if f.Unique {
			unique = append(unique, f.Name)
		}
	}
	return unique
}

// CheckFields verifies that every key in data names a declared field.
func (m Model[T]) CheckFields(data map[string]any) error {
	for name := range data {
		if !m.HasField(name) {
			return fmt.Errorf("model %s has no field %q", m.Name, name)
		}
	}
	return nil
}

// SetFields applies data onto inst through the declared setters,
// rejecting unknown field names.
func (m Model[T]) SetFields(inst *T, data map[string]any) error {
	if err := m.CheckFields(data); err != nil {
		return err
	}
	for _, f := range m.Fields {
		value, ok := data[f.Name]
		if !ok {
			continue
		}
		if err := f.Set(inst, value); err != nil {
			return fmt.Errorf("set %s.%s: %w", m.Name, f.Name, err)
		}
	}
	return nil
}

// Relation looks up a declared relation by name.
func (m Model[T]) Relation(name string) (Relation[T], bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation[T]{}, false
}

// RelationNames returns every declared relation name, used to resolve the
// "*" wildcard.
func (m Model[T]) RelationNames() []string {
	names := make([]string, len(m.Relations))
	for i, r := range m.Relations {
		names[i] = r.Name
	}
	return names
}
