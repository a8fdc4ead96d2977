package silo

import "fmt"

// NoSuchEntityError is returned when an entity handle is stale or was
// never allocated.
type NoSuchEntityError struct {
	Entity Entity
}

func (e NoSuchEntityError) Error() string {
	return fmt.Sprintf("no such entity: %v", e.Entity)
}

// MissingComponentError is returned when an entity exists but does not
// carry the requested component.
type MissingComponentError struct {
	Entity    Entity
	Component ComponentID
}

func (e MissingComponentError) Error() string {
	return fmt.Sprintf("entity %v is missing component %v", e.Entity, e.Component)
}

// QueryOneError is returned by QueryOne when an entity exists but
// does not satisfy the query's filters.
type QueryOneError struct {
	Entity Entity
}

func (e QueryOneError) Error() string {
	return fmt.Sprintf("entity %v does not satisfy query", e.Entity)
}

// ComponentBorrowConflictError is returned when a query() iterator would
// alias a column that another outstanding iterator already holds
// incompatibly.
type ComponentBorrowConflictError struct {
	Component ComponentID
	Archetype archetypeID
}

func (e ComponentBorrowConflictError) Error() string {
	return fmt.Sprintf("borrow conflict on component %v in archetype %v", e.Component, e.Archetype)
}

// DuplicateBundleTypeError is returned when a bundle lists the same
// component more than once.
type DuplicateBundleTypeError struct {
	Component ComponentID
}

func (e DuplicateBundleTypeError) Error() string {
	return fmt.Sprintf("bundle contains duplicate component %v", e.Component)
}

// BatchIncompleteError is returned when a ColumnBatch is closed before
// every declared column received its full row count.
type BatchIncompleteError struct {
	Declared, Written int
}

func (e BatchIncompleteError) Error() string {
	return fmt.Sprintf("column batch incomplete: wrote %d of %d declared rows", e.Written, e.Declared)
}

// LockedWorldError is returned when a mutation is attempted while the
// world is locked by an in-flight iteration.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is locked by an in-progress query iteration"
}

// ComponentExistsError is returned when AddComponent targets a component
// the entity already carries.
type ComponentExistsError struct {
	Component ComponentID
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component %v already present on entity", e.Component)
}

// AliasedAccessError is returned at fetch-construction time when a single
// query requests unique access to a component together with any other
// access to the same component.
type AliasedAccessError struct {
	Component ComponentID
}

func (e AliasedAccessError) Error() string {
	return fmt.Sprintf("query aliases component %v (&mut T requested alongside another access)", e.Component)
}
