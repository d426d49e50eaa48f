package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation reports an entity invariant violated before reaching the store.
	ErrValidation = errors.New("validation error")
	// ErrIdentityImmutable reports an attempt to change an already assigned identity.
	ErrIdentityImmutable = errors.New("identity is immutable once assigned")
)

// Entity is a record with a store-assigned identity.
type Entity interface {
	ID() int64
	AssignID(id int64) error
	Name() string
}

// Forgetter is implemented by entities that cache related instances.
// The persistence context calls Forget when a related entity is removed from the store.
type Forgetter interface {
	Forget(e Entity)
}

type identity struct {
	id int64
}

// ID returns the store-assigned identity, or 0 while the entity is transient.
func (i *identity) ID() int64 { return i.id }

// AssignID sets the identity. It succeeds once; later calls fail with ErrIdentityImmutable.
func (i *identity) AssignID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: identity must be positive, got %d", ErrValidation, id)
	}
	if i.id != 0 {
		return fmt.Errorf("%w: already %d", ErrIdentityImmutable, i.id)
	}
	i.id = id
	return nil
}

func requireName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name is required", ErrValidation, kind)
	}
	return nil
}
