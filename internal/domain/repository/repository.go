package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/screensound/catalog/internal/domain/model"
)

var (
	// ErrConnection reports that the store is unreachable or the session is closed.
	ErrConnection = errors.New("connection error")
	// ErrPersistence reports a constraint violation during a flush.
	ErrPersistence = errors.New("persistence error")
	// ErrNotFound reports that a caller-supplied identity matches no stored row.
	ErrNotFound = errors.New("not found")
)

// Predicate selects entities in memory.
type Predicate[T any] func(T) bool

// Repository abstracts persistence of one entity type regardless of the underlying DB.
// Every mutating call flushes before returning, so later reads observe it.
type Repository[T model.Entity] interface {
	// List returns all entities in store-native order.
	List(ctx context.Context) ([]T, error)
	// FindOne returns the first entity matching pred; ok is false when none match.
	FindOne(ctx context.Context, pred Predicate[T]) (e T, ok bool, err error)
	// FindMany returns every entity matching pred in store-native order.
	FindMany(ctx context.Context, pred Predicate[T]) ([]T, error)
	Add(ctx context.Context, e T) error
	Update(ctx context.Context, e T) error
	Delete(ctx context.Context, e T) error
}

// ByID matches the entity with the given identity.
func ByID[T model.Entity](id int64) Predicate[T] {
	return func(e T) bool { return e.ID() == id }
}

// ByName matches names case-insensitively.
func ByName[T model.Entity](name string) Predicate[T] {
	name = strings.TrimSpace(name)
	return func(e T) bool { return strings.EqualFold(e.Name(), name) }
}

// And matches when every predicate matches.
func And[T any](preds ...Predicate[T]) Predicate[T] {
	return func(e T) bool {
		for _, p := range preds {
			if !p(e) {
				return false
			}
		}
		return true
	}
}
