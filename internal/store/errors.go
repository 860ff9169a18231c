package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for the entity/component data model. Absence of
// subscribers is never an error; these cover invariant violations only.
var (
	// ErrUnknownEntity is returned when operating on a destroyed or
	// never-created entity id.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrDuplicateName is returned when creating an entity with a name
	// already bound to another alive entity.
	ErrDuplicateName = errors.New("entity name already bound")

	// ErrDuplicateComponent is returned when attaching a component that
	// is already attached.
	ErrDuplicateComponent = errors.New("component already attached")

	// ErrMissingComponent is returned when changing or removing a
	// component that is not attached.
	ErrMissingComponent = errors.New("component not attached")
)

// EntityError wraps an entity-level failure with the offending id.
type EntityError struct {
	Entity EntityID
	Err    error
}

// Error implements the error interface.
func (e *EntityError) Error() string {
	return fmt.Sprintf("entity %d: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *EntityError) Unwrap() error {
	return e.Err
}

// ComponentError wraps a component-level failure with its entity and
// component name.
type ComponentError struct {
	Entity    EntityID
	Component string
	Err       error
}

// Error implements the error interface.
func (e *ComponentError) Error() string {
	return fmt.Sprintf("entity %d, component %q: %v", e.Entity, e.Component, e.Err)
}

// Unwrap returns the underlying error.
func (e *ComponentError) Unwrap() error {
	return e.Err
}

func entityErr(id EntityID, err error) error {
	return &EntityError{Entity: id, Err: err}
}

func componentErr(id EntityID, name string, err error) error {
	return &ComponentError{Entity: id, Component: name, Err: err}
}
