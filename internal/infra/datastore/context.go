package datastore

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"

	"github.com/screensound/catalog/internal/domain/model"
	"github.com/screensound/catalog/internal/domain/repository"
)

type entityState int

const (
	stateAdded entityState = iota + 1
	stateModified
	stateDeleted
)

func (s entityState) String() string {
	switch s {
	case stateAdded:
		return "added"
	case stateModified:
		return "modified"
	case stateDeleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

type identityKey struct {
	table string
	id    int64
}

type entry struct {
	entity  model.Entity
	mapping tableMapping
	state   entityState
	seq     int
}

// Context is a unit of work over one dedicated store connection.
// It keeps an identity map of every entity it materialized and the changes
// recorded since the last SaveChanges. A Context serves one request or command
// and is not safe for concurrent use.
type Context struct {
	conn  *sql.Conn
	model *Model

	identity map[identityKey]model.Entity
	tracked  map[model.Entity]*entry
	seq      int
	closed   bool
}

// NewContext acquires a connection from db. A nil model means CatalogModel.
func NewContext(ctx context.Context, db *sql.DB, m *Model) (*Context, error) {
	if m == nil {
		m = CatalogModel()
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, readErr("acquire connection", err)
	}
	return &Context{
		conn:     conn,
		model:    m,
		identity: map[identityKey]model.Entity{},
		tracked:  map[model.Entity]*entry{},
	}, nil
}

// Close releases the connection and drops all tracking state.
func (pc *Context) Close() error {
	if pc.closed {
		return nil
	}
	pc.closed = true
	pc.identity = map[identityKey]model.Entity{}
	pc.tracked = map[model.Entity]*entry{}
	return pc.conn.Close()
}

// track records a state change for e and returns a func restoring the previous one.
func (pc *Context) track(e model.Entity, st entityState) (func(), error) {
	if pc.closed {
		return nil, errClosed
	}
	tm, ok := pc.model.mappingFor(e)
	if !ok {
		return nil, fmt.Errorf("datastore: no mapping registered for %T", e)
	}
	prev, had := pc.tracked[e]
	var saved entry
	if had {
		saved = *prev
	}
	undo := func() {
		if had {
			*prev = saved
			pc.tracked[e] = prev
			return
		}
		delete(pc.tracked, e)
	}

	switch st {
	case stateAdded:
		if e.ID() != 0 {
			return nil, fmt.Errorf("%w: %s %q already has identity %d", model.ErrValidation, tm.table(), e.Name(), e.ID())
		}
		if had && prev.state == stateAdded {
			return undo, nil
		}
	case stateModified:
		if had && prev.state == stateAdded {
			return undo, nil
		}
		if e.ID() == 0 {
			return nil, fmt.Errorf("%w: %s %q has no identity", repository.ErrNotFound, tm.table(), e.Name())
		}
	case stateDeleted:
		if had && prev.state == stateAdded {
			delete(pc.tracked, e)
			return undo, nil
		}
		if e.ID() == 0 {
			return nil, fmt.Errorf("%w: %s %q has no identity", repository.ErrNotFound, tm.table(), e.Name())
		}
	}
	pc.seq++
	pc.tracked[e] = &entry{entity: e, mapping: tm, state: st, seq: pc.seq}
	return undo, nil
}

// live returns every entity the context knows about that is not marked for
// removal, ordered by mapping then identity.
func (pc *Context) live() []model.Entity {
	seen := map[model.Entity]bool{}
	var out []model.Entity
	for _, e := range pc.identity {
		if en, ok := pc.tracked[e]; ok && en.state == stateDeleted {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	for e, en := range pc.tracked {
		if en.state != stateDeleted && !seen[e] {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b model.Entity) int {
		ma, _ := pc.model.mappingFor(a)
		mb, _ := pc.model.mappingFor(b)
		return cmp.Or(cmp.Compare(ma.order(), mb.order()), cmp.Compare(a.ID(), b.ID()))
	})
	return out
}

// trackRelated marks transient entities reachable from live ones as added.
func (pc *Context) trackRelated() []model.Entity {
	var added []model.Entity
	for _, e := range pc.live() {
		tm, _ := pc.model.mappingFor(e)
		for _, r := range tm.related(e) {
			if r == nil || r.ID() != 0 {
				continue
			}
			if _, ok := pc.tracked[r]; ok {
				continue
			}
			if _, err := pc.track(r, stateAdded); err == nil {
				added = append(added, r)
			}
		}
	}
	return added
}

func (pc *Context) changes(st entityState) []*entry {
	var out []*entry
	for _, en := range pc.tracked {
		if en.state == st {
			out = append(out, en)
		}
	}
	slices.SortFunc(out, func(a, b *entry) int {
		switch st {
		case stateAdded:
			return cmp.Or(cmp.Compare(a.mapping.order(), b.mapping.order()), cmp.Compare(a.seq, b.seq))
		case stateDeleted:
			return cmp.Or(cmp.Compare(b.mapping.order(), a.mapping.order()), cmp.Compare(a.seq, b.seq))
		default:
			return cmp.Compare(a.seq, b.seq)
		}
	})
	return out
}

// SaveChanges writes every recorded change in one transaction: inserts
// (parents first), updates, dependent rows such as join tables, then deletes
// (children first). Identities are applied to new entities only after commit.
// On failure nothing is written and the recorded changes stay as they were.
func (pc *Context) SaveChanges(ctx context.Context) error {
	if pc.closed {
		return errClosed
	}
	autoAdded := pc.trackRelated()
	inserts := pc.changes(stateAdded)
	updates := pc.changes(stateModified)
	deletes := pc.changes(stateDeleted)

	var dependents []model.Entity
	for _, e := range pc.live() {
		tm, _ := pc.model.mappingFor(e)
		if tm.pending(e) {
			dependents = append(dependents, e)
		}
	}
	if len(inserts)+len(updates)+len(deletes)+len(dependents) == 0 {
		return nil
	}

	w, commits, err := pc.flush(ctx, inserts, updates, dependents, deletes)
	if err != nil {
		for _, e := range autoAdded {
			delete(pc.tracked, e)
		}
		slog.DebugContext(ctx, "save changes rolled back", slog.Any("error", err))
		return err
	}

	for _, en := range inserts {
		if err := en.entity.AssignID(w.ids[en.entity]); err != nil {
			slog.WarnContext(ctx, "assign identity", slog.String("table", en.mapping.table()), slog.Any("error", err))
		}
		pc.identity[identityKey{en.mapping.table(), en.entity.ID()}] = en.entity
		en.mapping.bind(pc, en.entity)
	}
	for _, en := range updates {
		k := identityKey{en.mapping.table(), en.entity.ID()}
		if cur, ok := pc.identity[k]; !ok || cur != en.entity {
			pc.identity[k] = en.entity
			en.mapping.bind(pc, en.entity)
		}
	}
	for _, commit := range commits {
		commit()
	}
	if len(inserts)+len(updates) > 0 {
		live := pc.live()
		for _, en := range slices.Concat(inserts, updates) {
			en.mapping.fixup(en.entity, live)
		}
	}
	pc.tracked = map[model.Entity]*entry{}
	for _, en := range deletes {
		pc.evict(en.entity, map[model.Entity]bool{})
	}
	slog.DebugContext(ctx, "save changes",
		slog.Int("inserted", len(inserts)),
		slog.Int("updated", len(updates)),
		slog.Int("dependents", len(dependents)),
		slog.Int("deleted", len(deletes)),
	)
	return nil
}

func (pc *Context) flush(ctx context.Context, inserts, updates []*entry, dependents []model.Entity, deletes []*entry) (*Writer, []func(), error) {
	tx, err := pc.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, readErr("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	w := &Writer{tx: tx, ids: map[model.Entity]int64{}}
	for _, en := range inserts {
		id, err := en.mapping.insert(ctx, w, en.entity)
		if err != nil {
			return nil, nil, err
		}
		w.ids[en.entity] = id
	}
	for _, en := range updates {
		if err := en.mapping.update(ctx, w, en.entity); err != nil {
			return nil, nil, err
		}
	}
	var commits []func()
	for _, e := range dependents {
		tm, _ := pc.model.mappingFor(e)
		commit, err := tm.afterSave(ctx, w, e)
		if err != nil {
			return nil, nil, err
		}
		if commit != nil {
			commits = append(commits, commit)
		}
	}
	for _, en := range deletes {
		if err := en.mapping.remove(ctx, w, en.entity); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, flushErr("commit", err)
	}
	committed = true
	return w, commits, nil
}

// evict drops e, and whatever the store removed with it, from the identity
// map and from every cached relationship that still points at it.
func (pc *Context) evict(e model.Entity, seen map[model.Entity]bool) {
	if seen[e] {
		return
	}
	seen[e] = true
	tm, ok := pc.model.mappingFor(e)
	if !ok {
		return
	}
	cascaded := tm.cascade(e, pc.live())
	k := identityKey{tm.table(), e.ID()}
	gone := []model.Entity{e}
	if cur, ok := pc.identity[k]; ok {
		delete(pc.identity, k)
		if cur != e {
			gone = append(gone, cur)
		}
	}
	for _, g := range gone {
		for _, other := range pc.identity {
			if f, ok := other.(model.Forgetter); ok {
				f.Forget(g)
			}
		}
	}
	for _, c := range cascaded {
		pc.evict(c, seen)
	}
}

// lookup returns the tracked instance for (table, id).
func (pc *Context) lookup(table string, id int64) (model.Entity, bool) {
	e, ok := pc.identity[identityKey{table, id}]
	return e, ok
}

// query materializes the rows of m matching where, in identity order.
func query[T model.Entity](ctx context.Context, pc *Context, m *Mapping[T], join, where string, args ...any) ([]T, error) {
	if pc.closed {
		return nil, errClosed
	}
	rows, err := pc.conn.QueryContext(ctx, m.selectSQL(join, where), args...)
	if err != nil {
		return nil, readErr("query "+m.Table, err)
	}
	var scanned []T
	for rows.Next() {
		e, err := m.Scan(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan %s: %w", m.Table, err)
		}
		scanned = append(scanned, e)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, readErr("query "+m.Table, err)
	}
	_ = rows.Close()

	out := make([]T, 0, len(scanned))
	for _, e := range scanned {
		out = append(out, materialize(pc, m, e))
	}
	return out, nil
}

// materialize returns the tracked instance for e's identity, registering e
// when none is tracked yet.
func materialize[T model.Entity](pc *Context, m *Mapping[T], e T) T {
	k := identityKey{m.Table, e.ID()}
	if cur, ok := pc.identity[k]; ok {
		if t, ok := cur.(T); ok {
			return t
		}
	}
	pc.identity[k] = e
	if m.Bind != nil {
		m.Bind(pc, e)
	}
	return e
}

// find returns the entity of m with the given identity.
func find[T model.Entity](ctx context.Context, pc *Context, m *Mapping[T], id int64) (T, bool, error) {
	var zero T
	if pc.closed {
		return zero, false, errClosed
	}
	if cur, ok := pc.lookup(m.Table, id); ok {
		if t, ok := cur.(T); ok {
			return t, true, nil
		}
	}
	found, err := query(ctx, pc, m, "", "t.id = ?", id)
	if err != nil || len(found) == 0 {
		return zero, false, err
	}
	return found[0], true, nil
}
