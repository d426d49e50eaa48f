package usecase

import (
	"context"
	"fmt"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
	"github.com/screensound/catalog/internal/infra/datastore"
)

// ListParams pages a listing. Zero values mean the first page of 20.
type ListParams struct {
	Limit  int
	Offset int
}

type ListResult[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	NextOffset int `json:"next_offset"`
}

// paginate cuts one page out of items; NextOffset is -1 on the last page.
func paginate[T any](items []T, p ListParams) ListResult[T] {
	offset, limit := 0, 20
	if p.Offset > 0 {
		offset = p.Offset
	}
	// limit stays within 1..100
	if p.Limit > 0 && p.Limit <= 100 {
		limit = p.Limit
	}
	total := len(items)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	next := end
	if end >= total {
		next = -1
	}
	page := make([]T, end-offset)
	copy(page, items[offset:end])
	return ListResult[T]{Items: page, Total: total, NextOffset: next}
}

// inContext runs fn with a persistence context scoped to this call.
func inContext[R any](ctx context.Context, ds datastore.DataStore, fn func(pc *datastore.Context) (R, error)) (R, error) {
	var zero R
	pc, err := ds.NewContext(ctx)
	if err != nil {
		return zero, err
	}
	defer pc.Close()
	return fn(pc)
}

func mapAll[E, V any](items []E, fn func(E) V) []V {
	out := make([]V, len(items))
	for i, e := range items {
		out[i] = fn(e)
	}
	return out
}

// findOne is FindOne turning absence into ErrNotFound.
func findOne[T model.Entity](ctx context.Context, repo repository.Repository[T], pred repository.Predicate[T], what string) (T, error) {
	e, ok, err := repo.FindOne(ctx, pred)
	if err != nil {
		return e, err
	}
	if !ok {
		return e, fmt.Errorf("%w: %s", repository.ErrNotFound, what)
	}
	return e, nil
}
