package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

// table — строки одного типа сущностей и счётчик serial-идентификаторов.
type table[K comparable, E any] struct {
	rows map[K]E
	seq  int64
}

func newTable[K comparable, E any]() *table[K, E] {
	return &table[K, E]{rows: make(map[K]E)}
}

func (t *table[K, E]) clone(copyFn func(E) E) *table[K, E] {
	out := &table[K, E]{rows: make(map[K]E, len(t.rows)), seq: t.seq}
	for k, v := range t.rows {
		out.rows[k] = copyFn(v)
	}
	return out
}

// schema описывает, как хранить сущность E с ключом K и фильтром F.
type schema[K comparable, E any, F any] struct {
	name  string
	key   func(E) K
	less  func(a, b K) bool
	match func(F, E) bool
	// window возвращает окно выборки фильтра; nil — фильтр без окна.
	window func(F) domain.Page
	// assignID присваивает serial-идентификатор; nil для составных ключей.
	assignID func(e *E, id int64)
	stamp    func(e *E, now time.Time, created bool)
	// version возвращает указатель на поле версии; nil для неверсионируемых сущностей.
	version func(e *E) *int64
	// duplicate сообщает о нарушении уникального индекса между двумя разными строками.
	duplicate func(a, b E) bool
	copy      func(E) E
}

func identity[E any](e E) E { return e }

// repository — реализация domain.Repository поверх таблицы состояния.
// Если tx == nil, каждая запись фиксируется сразу.
type repository[K comparable, E any, F any] struct {
	store  *Store
	tx     *unitOfWork
	schema *schema[K, E, F]
	pick   func(*state) *table[K, E]
}

func (r *repository[K, E, F]) read(fn func(t *table[K, E]) error) error {
	if r.tx != nil {
		st, err := r.tx.current()
		if err != nil {
			return err
		}
		return fn(r.pick(st))
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return fn(r.pick(r.store.committed))
}

func (r *repository[K, E, F]) write(ctx context.Context, fn func(t *table[K, E]) error) error {
	if r.tx != nil {
		st, err := r.tx.current()
		if err != nil {
			return err
		}
		return fn(r.pick(st))
	}
	if err := r.store.acquire(ctx); err != nil {
		return err
	}
	defer r.store.release()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.pick(r.store.committed))
}

func (r *repository[K, E, F]) GetByID(ctx context.Context, id K) (E, error) {
	var out E
	if err := ctx.Err(); err != nil {
		return out, err
	}
	err := r.read(func(t *table[K, E]) error {
		row, ok := t.rows[id]
		if !ok {
			return fmt.Errorf("%s %v: %w", r.schema.name, id, domain.ErrRecordNotFound)
		}
		out = r.schema.copy(row)
		return nil
	})
	return out, err
}

func (r *repository[K, E, F]) GetAll(ctx context.Context) ([]E, error) {
	var zero F
	return r.find(ctx, zero, false)
}

func (r *repository[K, E, F]) Find(ctx context.Context, filter F) ([]E, error) {
	return r.find(ctx, filter, true)
}

func (r *repository[K, E, F]) find(ctx context.Context, filter F, useFilter bool) ([]E, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []E
	err := r.read(func(t *table[K, E]) error {
		out = r.matching(t, filter, useFilter)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if useFilter && r.schema.window != nil {
		out = applyWindow(out, r.schema.window(filter))
	}
	return out, nil
}

func (r *repository[K, E, F]) matching(t *table[K, E], filter F, useFilter bool) []E {
	keys := make([]K, 0, len(t.rows))
	for k, row := range t.rows {
		if useFilter && !r.schema.match(filter, row) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return r.schema.less(keys[i], keys[j]) })

	out := make([]E, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.schema.copy(t.rows[k]))
	}
	return out
}

func applyWindow[E any](rows []E, page domain.Page) []E {
	limit, offset := page.Window()
	if offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func (r *repository[K, E, F]) Add(ctx context.Context, entity *E) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.write(ctx, func(t *table[K, E]) error {
		row := r.schema.copy(*entity)
		if r.schema.assignID != nil {
			r.schema.assignID(&row, t.seq+1)
		}
		key := r.schema.key(row)
		if _, exists := t.rows[key]; exists {
			return fmt.Errorf("%s %v: %w", r.schema.name, key, domain.ErrDuplicateKey)
		}
		if err := r.checkUnique(t, key, row); err != nil {
			return err
		}
		r.schema.stamp(&row, r.store.now(), true)
		if r.schema.version != nil {
			*r.schema.version(&row) = 1
		}
		if r.schema.assignID != nil {
			t.seq++
		}
		t.rows[key] = row
		*entity = r.schema.copy(row)
		return nil
	})
}

func (r *repository[K, E, F]) Update(ctx context.Context, entity *E) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.write(ctx, func(t *table[K, E]) error {
		row := r.schema.copy(*entity)
		key := r.schema.key(row)
		current, ok := t.rows[key]
		if !ok {
			return fmt.Errorf("%s %v: %w", r.schema.name, key, domain.ErrRecordNotFound)
		}
		if r.schema.version != nil {
			if *r.schema.version(&current) != *r.schema.version(&row) {
				return fmt.Errorf("%s %v: %w", r.schema.name, key, domain.ErrVersionConflict)
			}
			*r.schema.version(&row)++
		}
		if err := r.checkUnique(t, key, row); err != nil {
			return err
		}
		r.schema.stamp(&row, r.store.now(), false)
		t.rows[key] = row
		*entity = r.schema.copy(row)
		return nil
	})
}

func (r *repository[K, E, F]) checkUnique(t *table[K, E], key K, row E) error {
	if r.schema.duplicate == nil {
		return nil
	}
	for k, other := range t.rows {
		if k == key {
			continue
		}
		if r.schema.duplicate(row, other) {
			return fmt.Errorf("%s: %w", r.schema.name, domain.ErrDuplicateKey)
		}
	}
	return nil
}

func (r *repository[K, E, F]) Delete(ctx context.Context, id K) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.write(ctx, func(t *table[K, E]) error {
		if _, ok := t.rows[id]; !ok {
			return fmt.Errorf("%s %v: %w", r.schema.name, id, domain.ErrRecordNotFound)
		}
		delete(t.rows, id)
		return nil
	})
}

func (r *repository[K, E, F]) Exists(ctx context.Context, filter F) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *repository[K, E, F]) Count(ctx context.Context, filter F) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := r.read(func(t *table[K, E]) error {
		for _, row := range t.rows {
			if r.schema.match(filter, row) {
				n++
			}
		}
		return nil
	})
	return n, err
}
