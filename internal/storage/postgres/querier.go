package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/b2b-trading/internal/domain"
)

// querier — общий интерфейс pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// where накапливает условия и аргументы с позиционными плейсхолдерами.
type where struct {
	conds []string
	args  []any
}

// eq добавляет условие "column = $n".
func (w *where) eq(column string, arg any) {
	w.add(column+" = ?", arg)
}

// add добавляет условие; единственный "?" заменяется на очередной плейсхолдер.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

// raw добавляет условие без аргументов.
func (w *where) raw(cond string) {
	w.conds = append(w.conds, cond)
}

// search добавляет поиск подстроки без учёта регистра по любой из колонок.
// Символы шаблона LIKE в term экранируются.
func (w *where) search(term string, columns ...string) {
	ph := w.placeholder("%" + likeEscaper.Replace(term) + "%")
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col+" ILIKE "+ph)
	}
	w.raw("(" + strings.Join(parts, " OR ") + ")")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func (w *where) placeholder(arg any) string {
	w.args = append(w.args, arg)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// mapWriteError переводит ошибки ограничений PostgreSQL в доменные.
func mapWriteError(op, table string, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s %s: %w", op, table, domain.ErrDuplicateKey)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s %s: %w", op, table, domain.ErrReferenceViolation)
	default:
		return fmt.Errorf("%s %s: %w", op, table, err)
	}
}
