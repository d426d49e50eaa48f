package model

import "context"

// Loader fetches the members of a relationship on demand.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Collection is a lazily loaded to-many relationship. The first Get runs the
// bound loader; the result is cached on the owning entity from then on.
// Local additions and removals made before the first load are replayed over
// the fetched items so the in-memory view never lags behind the caller.
type Collection[T comparable] struct {
	load   Loader[T]
	loaded bool
	items  []T
	ops    []collectionOp[T]
}

type collectionOp[T comparable] struct {
	item   T
	remove bool
}

// Bind installs the loader used on first access.
func (c *Collection[T]) Bind(load Loader[T]) { c.load = load }

// Loaded reports whether the relationship has been materialized.
func (c *Collection[T]) Loaded() bool { return c.loaded }

// Get returns the members, loading them the first time.
func (c *Collection[T]) Get(ctx context.Context) ([]T, error) {
	if !c.loaded {
		var items []T
		if c.load != nil {
			fetched, err := c.load(ctx)
			if err != nil {
				return nil, err
			}
			items = fetched
		}
		c.items = items
		for _, op := range c.ops {
			c.apply(op)
		}
		c.loaded = true
	}
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out, nil
}

// Drop forgets item entirely, including pending local changes that mention it.
func (c *Collection[T]) Drop(item T) {
	c.items = without(c.items, item)
	ops := c.ops[:0]
	for _, op := range c.ops {
		if op.item != item {
			ops = append(ops, op)
		}
	}
	c.ops = ops
}

func (c *Collection[T]) add(item T)    { c.record(collectionOp[T]{item: item}) }
func (c *Collection[T]) remove(item T) { c.record(collectionOp[T]{item: item, remove: true}) }

func (c *Collection[T]) record(op collectionOp[T]) {
	if c.loaded {
		c.apply(op)
		return
	}
	c.ops = append(c.ops, op)
}

// settle aligns item's membership with committed store state. An unloaded
// collection only drops pending changes for item; its first load reads the store.
func (c *Collection[T]) settle(item T, member bool) {
	if !c.loaded {
		c.Drop(item)
		return
	}
	c.apply(collectionOp[T]{item: item, remove: !member})
}

func (c *Collection[T]) apply(op collectionOp[T]) {
	if op.remove {
		c.items = without(c.items, op.item)
		return
	}
	for _, it := range c.items {
		if it == op.item {
			return
		}
	}
	c.items = append(c.items, op.item)
}

func without[T comparable](items []T, item T) []T {
	out := items[:0]
	for _, it := range items {
		if it != item {
			out = append(out, it)
		}
	}
	return out
}

// Reference is a lazily loaded to-one relationship.
type Reference[T comparable] struct {
	load   func(ctx context.Context) (T, error)
	loaded bool
	value  T
}

// Bind installs the loader used on first access.
func (r *Reference[T]) Bind(load func(ctx context.Context) (T, error)) { r.load = load }

// Get returns the referenced entity, loading it the first time.
func (r *Reference[T]) Get(ctx context.Context) (T, error) {
	if !r.loaded && r.load != nil {
		v, err := r.load(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		r.value = v
		r.loaded = true
	}
	return r.value, nil
}

// Set stores v as the loaded value.
func (r *Reference[T]) Set(v T) {
	r.value = v
	r.loaded = true
}

// Peek returns the cached value without loading.
func (r *Reference[T]) Peek() (T, bool) { return r.value, r.loaded }

// Reset discards the cached value; the next Get loads again.
func (r *Reference[T]) Reset() {
	var zero T
	r.value = zero
	r.loaded = false
}
