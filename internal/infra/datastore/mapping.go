package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/screensound/catalog/internal/domain/model"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Mapping binds an entity type to its table.
//
// Scan reads the id column followed by Columns; Values returns Columns in the
// same order. The optional hooks describe relationships:
//   - Bind installs lazy loaders on a freshly materialized entity
//   - Related lists transient entities that must be inserted before e
//   - Pending reports whether AfterSave has work for e
//   - AfterSave writes dependent rows (join tables) once e has an identity and
//     returns a hook run after commit
//   - Cascade picks tracked entities the store removes together with e
//   - Fixup brings the cached relations of live entities in line with e after commit
type Mapping[T model.Entity] struct {
	Table   string
	Columns []string

	Scan   func(sc Scanner) (T, error)
	Values func(w *Writer, e T) ([]any, error)

	Bind      func(pc *Context, e T)
	Related   func(e T) []model.Entity
	Pending   func(e T) bool
	AfterSave func(ctx context.Context, w *Writer, e T) (commit func(), err error)
	Cascade   func(e T, candidates []model.Entity) []model.Entity
	Fixup     func(e T, live []model.Entity)

	rank int
}

// Model is the registry of entity mappings, in dependency order: a parent
// must be registered before the entities that reference it.
type Model struct {
	byType map[reflect.Type]tableMapping
	order  []tableMapping
}

func NewModel() *Model {
	return &Model{byType: map[reflect.Type]tableMapping{}}
}

// Register adds the mapping for T, replacing an earlier one.
func Register[T model.Entity](m *Model, mp Mapping[T]) {
	typ := reflect.TypeFor[T]()
	mp.rank = len(m.order)
	if prev, ok := m.byType[typ]; ok {
		mp.rank = prev.order()
		m.order[mp.rank] = &mp
	} else {
		m.order = append(m.order, &mp)
	}
	m.byType[typ] = &mp
}

func mappingOf[T model.Entity](m *Model) (*Mapping[T], error) {
	tm, ok := m.byType[reflect.TypeFor[T]()]
	if !ok {
		return nil, fmt.Errorf("datastore: no mapping registered for %s", reflect.TypeFor[T]())
	}
	return tm.(*Mapping[T]), nil
}

func (m *Model) mappingFor(e model.Entity) (tableMapping, bool) {
	tm, ok := m.byType[reflect.TypeOf(e)]
	return tm, ok
}

// tableMapping is the untyped view of Mapping[T] used by the flush.
type tableMapping interface {
	table() string
	order() int
	insert(ctx context.Context, w *Writer, e model.Entity) (int64, error)
	update(ctx context.Context, w *Writer, e model.Entity) error
	remove(ctx context.Context, w *Writer, e model.Entity) error
	related(e model.Entity) []model.Entity
	pending(e model.Entity) bool
	afterSave(ctx context.Context, w *Writer, e model.Entity) (func(), error)
	cascade(e model.Entity, candidates []model.Entity) []model.Entity
	fixup(e model.Entity, live []model.Entity)
	bind(pc *Context, e model.Entity)
}

func (m *Mapping[T]) table() string { return m.Table }
func (m *Mapping[T]) order() int    { return m.rank }

func (m *Mapping[T]) selectSQL(join, where string) string {
	cols := make([]string, 0, len(m.Columns)+1)
	cols = append(cols, "t.id")
	for _, c := range m.Columns {
		cols = append(cols, "t."+c)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s t", strings.Join(cols, ", "), m.Table)
	if join != "" {
		b.WriteString(" " + join)
	}
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	b.WriteString(" ORDER BY t.id")
	return b.String()
}

func (m *Mapping[T]) insertSQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(m.Columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", m.Table, strings.Join(m.Columns, ", "), marks)
}

func (m *Mapping[T]) updateSQL() string {
	sets := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		sets[i] = c + " = ?"
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", m.Table, strings.Join(sets, ", "))
}

func (m *Mapping[T]) insert(ctx context.Context, w *Writer, e model.Entity) (int64, error) {
	args, err := m.Values(w, e.(T))
	if err != nil {
		return 0, err
	}
	res, err := w.Exec(ctx, m.insertSQL(), args...)
	if err != nil {
		return 0, flushErr("insert into "+m.Table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, flushErr("insert into "+m.Table, err)
	}
	return id, nil
}

func (m *Mapping[T]) update(ctx context.Context, w *Writer, e model.Entity) error {
	args, err := m.Values(w, e.(T))
	if err != nil {
		return err
	}
	args = append(args, e.ID())
	res, err := w.Exec(ctx, m.updateSQL(), args...)
	if err != nil {
		return flushErr("update "+m.Table, err)
	}
	return requireRow(res, m.Table, e.ID())
}

func (m *Mapping[T]) remove(ctx context.Context, w *Writer, e model.Entity) error {
	res, err := w.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", m.Table), e.ID())
	if err != nil {
		return flushErr("delete from "+m.Table, err)
	}
	return requireRow(res, m.Table, e.ID())
}

func (m *Mapping[T]) related(e model.Entity) []model.Entity {
	if m.Related == nil {
		return nil
	}
	return m.Related(e.(T))
}

func (m *Mapping[T]) pending(e model.Entity) bool {
	return m.AfterSave != nil && m.Pending != nil && m.Pending(e.(T))
}

func (m *Mapping[T]) afterSave(ctx context.Context, w *Writer, e model.Entity) (func(), error) {
	if m.AfterSave == nil {
		return nil, nil
	}
	return m.AfterSave(ctx, w, e.(T))
}

func (m *Mapping[T]) cascade(e model.Entity, candidates []model.Entity) []model.Entity {
	if m.Cascade == nil {
		return nil
	}
	return m.Cascade(e.(T), candidates)
}

func (m *Mapping[T]) fixup(e model.Entity, live []model.Entity) {
	if m.Fixup != nil {
		m.Fixup(e.(T), live)
	}
}

func (m *Mapping[T]) bind(pc *Context, e model.Entity) {
	if m.Bind != nil {
		m.Bind(pc, e.(T))
	}
}

// Writer executes statements inside one flush and resolves identities that
// are assigned by that flush but not yet applied to the entities.
type Writer struct {
	tx  *sql.Tx
	ids map[model.Entity]int64
}

// IDOf returns e's identity, including one assigned earlier in this flush.
func (w *Writer) IDOf(e model.Entity) int64 {
	if id := e.ID(); id != 0 {
		return id
	}
	return w.ids[e]
}

func (w *Writer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return w.tx.ExecContext(ctx, query, args...)
}
