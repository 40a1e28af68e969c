package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

// tableDef описывает отображение сущности E с ключом K и фильтром F на таблицу.
type tableDef[K comparable, E any, F any] struct {
	name    string
	columns string
	orderBy string
	// serial — ключ генерируется базой и возвращается из INSERT.
	serial   bool
	keyOf    func(e *E) K
	keyWhere func(k K, w *where)
	scan     func(row pgx.Row) (E, error)
	// insert возвращает колонки и значения новой строки без serial id, created_at и version.
	insert func(e *E) ([]string, []any)
	// update возвращает изменяемые колонки и значения.
	update func(e *E) ([]string, []any)
	// version возвращает указатель на версию; nil для неверсионируемых таблиц.
	version     func(e *E) *int64
	filter      func(f F, w *where)
	page        func(f F) domain.Page
	setCreated  func(e *E, id int64, createdAt time.Time)
	setModified func(e *E, modifiedAt time.Time)
}

type repository[K comparable, E any, F any] struct {
	q   querier
	def *tableDef[K, E, F]
}

func (r *repository[K, E, F]) GetByID(ctx context.Context, id K) (E, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var w where
	r.def.keyWhere(id, &w)
	row := r.q.QueryRow(ctx, "SELECT "+r.def.columns+" FROM "+r.def.name+w.sql(), w.args...)
	entity, err := r.def.scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity, fmt.Errorf("%s %v: %w", r.def.name, id, domain.ErrRecordNotFound)
		}
		return entity, fmt.Errorf("select %s: %w", r.def.name, err)
	}
	return entity, nil
}

func (r *repository[K, E, F]) GetAll(ctx context.Context) ([]E, error) {
	return r.selectRows(ctx, &where{}, domain.Page{})
}

func (r *repository[K, E, F]) Find(ctx context.Context, filter F) ([]E, error) {
	var w where
	r.def.filter(filter, &w)
	var page domain.Page
	if r.def.page != nil {
		page = r.def.page(filter)
	}
	return r.selectRows(ctx, &w, page)
}

func (r *repository[K, E, F]) selectRows(ctx context.Context, w *where, page domain.Page) ([]E, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := "SELECT " + r.def.columns + " FROM " + r.def.name + w.sql() + " ORDER BY " + r.def.orderBy
	limit, offset := page.Window()
	if limit > 0 {
		query += " LIMIT " + w.placeholder(limit)
	}
	if offset > 0 {
		query += " OFFSET " + w.placeholder(offset)
	}

	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.def.name, err)
	}
	defer rows.Close()

	result := make([]E, 0)
	for rows.Next() {
		entity, err := r.def.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.def.name, err)
		}
		result = append(result, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", r.def.name, err)
	}
	return result, nil
}

func (r *repository[K, E, F]) Add(ctx context.Context, entity *E) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cols, vals := r.def.insert(entity)
	if r.def.version != nil {
		cols = append(cols, "version")
		vals = append(vals, int64(1))
	}
	placeholders := make([]string, len(vals))
	for i := range vals {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	returning := "created_at"
	if r.def.serial {
		returning = "id, created_at"
	}
	query := "INSERT INTO " + r.def.name + " (" + strings.Join(cols, ", ") + ") VALUES (" +
		strings.Join(placeholders, ", ") + ") RETURNING " + returning

	var (
		id        int64
		createdAt time.Time
		err       error
	)
	row := r.q.QueryRow(ctx, query, vals...)
	if r.def.serial {
		err = row.Scan(&id, &createdAt)
	} else {
		err = row.Scan(&createdAt)
	}
	if err != nil {
		return mapWriteError("insert", r.def.name, err)
	}

	r.def.setCreated(entity, id, createdAt)
	if r.def.version != nil {
		*r.def.version(entity) = 1
	}
	return nil
}

func (r *repository[K, E, F]) Update(ctx context.Context, entity *E) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cols, vals := r.def.update(entity)
	w := where{args: append([]any(nil), vals...)}
	sets := make([]string, 0, len(cols)+2)
	for i, col := range cols {
		sets = append(sets, col+" = $"+strconv.Itoa(i+1))
	}
	sets = append(sets, "modified_at = NOW()")
	returning := "modified_at"
	if r.def.version != nil {
		sets = append(sets, "version = version + 1")
		returning += ", version"
	}

	key := r.def.keyOf(entity)
	r.def.keyWhere(key, &w)
	if r.def.version != nil {
		w.eq("version", *r.def.version(entity))
	}

	query := "UPDATE " + r.def.name + " SET " + strings.Join(sets, ", ") + w.sql() + " RETURNING " + returning

	var (
		modifiedAt time.Time
		version    int64
		err        error
	)
	row := r.q.QueryRow(ctx, query, w.args...)
	if r.def.version != nil {
		err = row.Scan(&modifiedAt, &version)
	} else {
		err = row.Scan(&modifiedAt)
	}
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return mapWriteError("update", r.def.name, err)
		}
		// строка не обновлена: либо её нет, либо версия устарела
		exists, existsErr := r.existsByKey(ctx, key)
		if existsErr != nil {
			return existsErr
		}
		if exists && r.def.version != nil {
			return fmt.Errorf("%s %v: %w", r.def.name, key, domain.ErrVersionConflict)
		}
		return fmt.Errorf("%s %v: %w", r.def.name, key, domain.ErrRecordNotFound)
	}

	r.def.setModified(entity, modifiedAt)
	if r.def.version != nil {
		*r.def.version(entity) = version
	}
	return nil
}

func (r *repository[K, E, F]) existsByKey(ctx context.Context, key K) (bool, error) {
	var w where
	r.def.keyWhere(key, &w)
	var exists bool
	if err := r.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+r.def.name+w.sql()+")", w.args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s exists: %w", r.def.name, err)
	}
	return exists, nil
}

func (r *repository[K, E, F]) Delete(ctx context.Context, id K) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var w where
	r.def.keyWhere(id, &w)
	tag, err := r.q.Exec(ctx, "DELETE FROM "+r.def.name+w.sql(), w.args...)
	if err != nil {
		return mapWriteError("delete", r.def.name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %v: %w", r.def.name, id, domain.ErrRecordNotFound)
	}
	return nil
}

func (r *repository[K, E, F]) Exists(ctx context.Context, filter F) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var w where
	r.def.filter(filter, &w)
	var exists bool
	if err := r.q.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM "+r.def.name+w.sql()+")", w.args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists %s: %w", r.def.name, err)
	}
	return exists, nil
}

func (r *repository[K, E, F]) Count(ctx context.Context, filter F) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var w where
	r.def.filter(filter, &w)
	var n int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM "+r.def.name+w.sql(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", r.def.name, err)
	}
	return n, nil
}
