package repositories

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
)

// MemoryStore keeps records in process memory. It honours the same contract as
// SQLStore, including unique columns, and is used for tests and local runs
// without a database.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	table  string
	schema *schema
	unique []string
	rows   map[string]*T
	order  []string
}

// NewMemoryStore creates an empty store. unique names columns that must not
// repeat across rows; NULLs never conflict.
func NewMemoryStore[T any](table string, unique ...string) *MemoryStore[T] {
	return &MemoryStore[T]{
		table:  table,
		schema: schemaFor[T](),
		unique: unique,
		rows:   make(map[string]*T),
	}
}

// GetOne retrieves a record by ID
func (m *MemoryStore[T]) GetOne(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.rows[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("get %s: no row with id %q", m.table, id))
	}
	return clone(rec), nil
}

// GetList retrieves the records matching query
func (m *MemoryStore[T]) GetList(ctx context.Context, q ListQuery) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, err := m.match(q)
	if err != nil {
		return nil, err
	}

	if len(q.Sort) > 0 {
		var sortErr error
		sort.SliceStable(matched, func(i, j int) bool {
			for _, f := range q.Sort {
				a, err := m.columnValue(matched[i], f.Field)
				if err != nil {
					sortErr = err
					return false
				}
				b, err := m.columnValue(matched[j], f.Field)
				if err != nil {
					sortErr = err
					return false
				}
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				if f.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	if q.PerPage > 0 {
		start := q.offset()
		if start >= len(matched) {
			return []*T{}, nil
		}
		end := start + q.PerPage
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[start:end]
	}

	out := make([]*T, len(matched))
	for i, rec := range matched {
		out[i] = clone(rec)
	}
	return out, nil
}

// Count returns how many records match the filter and search of query
func (m *MemoryStore[T]) Count(ctx context.Context, q ListQuery) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, err := m.match(q)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// Create inserts a new record
func (m *MemoryStore[T]) Create(ctx context.Context, rec *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.schema.id(rec) == "" {
		m.schema.setID(rec, uuid.NewString())
	}
	id := m.schema.id(rec)
	if _, exists := m.rows[id]; exists {
		return m.duplicate(columnID, id)
	}
	if err := m.checkUnique(rec, ""); err != nil {
		return err
	}

	m.schema.stampCreate(rec, time.Now().UTC())
	m.rows[id] = clone(rec)
	m.order = append(m.order, id)
	return nil
}

// Update writes the changed columns of next onto the record with the given id
func (m *MemoryStore[T]) Update(ctx context.Context, id string, next, previous *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rows[id]
	if !ok {
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("update %s: no row with id %q", m.table, id))
	}

	cols, err := m.schema.changed(next, previous)
	if err != nil {
		return fmt.Errorf("failed to diff %s row: %w", m.table, err)
	}
	if len(cols) == 0 {
		return nil
	}

	updated := clone(stored)
	for _, col := range cols {
		m.schema.field(updated, col).Set(deepCopy(m.schema.field(next, col)))
	}
	if err := m.checkUnique(updated, id); err != nil {
		return err
	}

	now := time.Now().UTC()
	m.schema.touch(next, columnUpdatedAt, now, false)
	m.schema.touch(updated, columnUpdatedAt, now, false)
	m.rows[id] = updated
	return nil
}

// match returns the stored rows selected by the filter and search, in insertion order
func (m *MemoryStore[T]) match(q ListQuery) ([]*T, error) {
	for col := range q.Filter {
		if !m.schema.has(col) {
			return nil, fmt.Errorf("%s has no column %s", m.table, col)
		}
	}

	var term string
	if q.Search != nil {
		term = strings.ToLower(strings.TrimSpace(q.Search.Term))
	}

	out := make([]*T, 0, len(m.order))
	for _, id := range m.order {
		rec := m.rows[id]

		ok, err := m.matchFilter(rec, q)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if term != "" && !m.matchSearch(rec, q.Search.Columns, term) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore[T]) matchFilter(rec *T, q ListQuery) (bool, error) {
	for col, want := range q.Filter {
		got, err := m.columnValue(rec, col)
		if err != nil {
			return false, err
		}
		switch w := plainFilterValue(want).(type) {
		case []interface{}:
			found := false
			for _, candidate := range w {
				if sameValue(got, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		default:
			if !sameValue(got, w) {
				return false, nil
			}
		}
	}
	return true, nil
}

func (m *MemoryStore[T]) matchSearch(rec *T, columns []string, term string) bool {
	for _, col := range columns {
		if !m.schema.has(col) {
			continue
		}
		v, err := m.columnValue(rec, col)
		if err != nil {
			continue
		}
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func (m *MemoryStore[T]) columnValue(rec *T, col string) (any, error) {
	if !m.schema.has(col) {
		return nil, fmt.Errorf("%s has no column %s", m.table, col)
	}
	return m.schema.value(rec, col)
}

// checkUnique rejects rec when another row holds the same value in a unique column
func (m *MemoryStore[T]) checkUnique(rec *T, selfID string) error {
	for _, col := range m.unique {
		v, err := m.columnValue(rec, col)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		for id, other := range m.rows {
			if id == selfID {
				continue
			}
			ov, err := m.columnValue(other, col)
			if err != nil {
				return err
			}
			if reflect.DeepEqual(v, ov) {
				return m.duplicate(col, fmt.Sprint(v))
			}
		}
	}
	return nil
}

func (m *MemoryStore[T]) duplicate(col, value string) error {
	return apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists,
		fmt.Sprintf("create %s: duplicate %s %q", m.table, col, value)).
		WithCode("DUPLICATE_KEY")
}
