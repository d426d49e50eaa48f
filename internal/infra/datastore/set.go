package datastore

import (
	"context"

	"github.com/screensound/catalog/internal/domain/model"
)

// EntitySet is the typed view of one entity type inside a Context.
type EntitySet[T model.Entity] struct {
	pc  *Context
	m   *Mapping[T]
	err error
}

// Set returns the set for T. T must be registered in the context's Model;
// otherwise every call on the set fails.
func Set[T model.Entity](pc *Context) *EntitySet[T] {
	m, err := mappingOf[T](pc.model)
	return &EntitySet[T]{pc: pc, m: m, err: err}
}

// All fetches every stored T in identity order, reusing tracked instances.
func (s *EntitySet[T]) All(ctx context.Context) ([]T, error) {
	if s.err != nil {
		return nil, s.err
	}
	return query(ctx, s.pc, s.m, "", "")
}

// Find returns the T with the given identity, from the identity map when tracked.
func (s *EntitySet[T]) Find(ctx context.Context, id int64) (T, bool, error) {
	if s.err != nil {
		var zero T
		return zero, false, s.err
	}
	return find(ctx, s.pc, s.m, id)
}

// Add marks a transient entity for insertion on the next SaveChanges.
func (s *EntitySet[T]) Add(e T) error {
	_, err := s.track(e, stateAdded)
	return err
}

// Update marks e as modified. An instance other than the tracked one for the
// same identity replaces it after the next successful SaveChanges.
func (s *EntitySet[T]) Update(e T) error {
	_, err := s.track(e, stateModified)
	return err
}

// Remove marks e for deletion. Removing an entity that was only added drops it.
func (s *EntitySet[T]) Remove(e T) error {
	_, err := s.track(e, stateDeleted)
	return err
}

func (s *EntitySet[T]) track(e T, st entityState) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pc.track(e, st)
}
