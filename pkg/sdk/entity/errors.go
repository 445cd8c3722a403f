package entity

import "errors"

var (
	// ErrUnconfiguredID is returned when the id of an entity is read before the server assigned one
	ErrUnconfiguredID = errors.New("entity id is not configured, hydrate the entity or construct it with an id")

	// ErrIDReassigned is returned when hydration would change an id that is already set
	ErrIDReassigned = errors.New("entity id is immutable once assigned")

	// ErrTypeRegistered is returned when a type key is registered twice
	ErrTypeRegistered = errors.New("entity type is already registered")

	// ErrInvalidType is returned when a type key or factory is unusable
	ErrInvalidType = errors.New("invalid entity type registration")
)
