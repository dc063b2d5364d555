package domain

import "fmt"

// NotFoundError reports that no persisted instance exists for the id.
// The message format is part of the API contract.
type NotFoundError struct {
	Model string
	ID    int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID №%d not found", e.Model, e.ID)
}

// ConflictError reports a unique-field collision detected before a write
// was committed.
type ConflictError struct {
	Model string
	Field string
	Value any
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s with %s=%v already exists", e.Model, e.Field, e.Value)
}
