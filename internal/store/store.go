// Package store persists inventory entities in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
)

var (
	// ErrNotFound means the entity an operation targets does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid means the input failed validation or referenced a missing entity.
	ErrInvalid = errors.New("invalid input")
	// ErrInUse means the entity is still referenced and cannot be removed.
	ErrInUse = errors.New("still in use")
)

var dialect = goqu.Dialect("sqlite3")

// now is replaced in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsAny matches rows where any of cols contains q as a literal
// substring, case-insensitively for ASCII.
func containsAny(q string, cols ...string) exp.ExpressionList {
	pattern := "%" + likeEscaper.Replace(q) + "%"
	exprs := make([]exp.Expression, len(cols))
	for i, c := range cols {
		exprs[i] = goqu.L(`? LIKE ? ESCAPE '\'`, goqu.I(c), pattern)
	}
	return goqu.Or(exprs...)
}

func columns(names []string) []any {
	cols := make([]any, len(names))
	for i, n := range names {
		cols[i] = n
	}
	return cols
}

// exists reports whether a non-deleted row with the given id is in table.
func exists(ctx context.Context, q querier, table string, id any) (bool, error) {
	query, args, err := dialect.From(table).
		Select(goqu.COUNT("*")).
		Where(goqu.C("id").Eq(id), goqu.C("deleted_at").IsNull()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return false, err
	}
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
