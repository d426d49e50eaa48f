package datastore

import (
	"context"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
)

// Repo implements repository.Repository for any registered entity type.
// Lookups run the predicate over a full fetch; every mutation flushes.
type Repo[T model.Entity] struct {
	pc  *Context
	set *EntitySet[T]
}

var (
	_ repository.Repository[*model.Artist] = (*Repo[*model.Artist])(nil)
	_ repository.Repository[*model.Song]   = (*Repo[*model.Song])(nil)
	_ repository.Repository[*model.Genre]  = (*Repo[*model.Genre])(nil)
)

func NewRepository[T model.Entity](pc *Context) *Repo[T] {
	return &Repo[T]{pc: pc, set: Set[T](pc)}
}

func (r *Repo[T]) List(ctx context.Context) ([]T, error) {
	return r.set.All(ctx)
}

func (r *Repo[T]) FindOne(ctx context.Context, pred repository.Predicate[T]) (T, bool, error) {
	var zero T
	all, err := r.set.All(ctx)
	if err != nil {
		return zero, false, err
	}
	for _, e := range all {
		if pred(e) {
			return e, true, nil
		}
	}
	return zero, false, nil
}

func (r *Repo[T]) FindMany(ctx context.Context, pred repository.Predicate[T]) ([]T, error) {
	all, err := r.set.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, e := range all {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Repo[T]) Add(ctx context.Context, e T) error    { return r.save(ctx, e, stateAdded) }
func (r *Repo[T]) Update(ctx context.Context, e T) error { return r.save(ctx, e, stateModified) }
func (r *Repo[T]) Delete(ctx context.Context, e T) error { return r.save(ctx, e, stateDeleted) }

func (r *Repo[T]) save(ctx context.Context, e T, st entityState) error {
	undo, err := r.set.track(e, st)
	if err != nil {
		return err
	}
	if err := r.pc.SaveChanges(ctx); err != nil {
		undo()
		return err
	}
	return nil
}
