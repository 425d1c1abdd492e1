// Package pg implements the ONGON stores on PostgreSQL through pgx.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"ongon.org/internal/apperr"
	"ongon.org/internal/config"
	"ongon.org/internal/uow"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// Store is the PostgreSQL implementation of every ONGON store.
type Store struct {
	db *sql.DB
}

var _ uow.Runner = (*Store)(nil)

// Open connects with the configured pool limits.
func Open(cfg config.Postgres) (*Store, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping checks connectivity for readiness probes.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// RunInTx runs fn in a transaction carried by txCtx. Nested calls join the
// outer transaction and leave commit to it.
func (s *Store) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := uow.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(uow.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction in ctx or the pool.
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := uow.From(ctx); ok {
		return tx
	}
	return s.db
}

type scanner interface {
	Scan(dest ...any) error
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapError translates driver errors. Unique violations become the bare
// conflict sentinel so services can substitute their own message.
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity)
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return apperr.ErrConflict
		case pgErrForeignKeyViolation:
			return apperr.NotFound("Referenced record")
		}
	}
	return err
}

// affected turns a zero-row update into NotFound.
func affected(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(entity)
	}
	return nil
}

// texts maps a jsonb array column to a string slice.
type texts []string

func (t *texts) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = []string{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into text list", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

func jsonList(v []string) string {
	if v == nil {
		return "[]"
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// filter accumulates where clauses with positional arguments.
type filter struct {
	conds []string
	args  []any
}

// add appends cond, replacing each ? with the next placeholder.
func (f *filter) add(cond string, args ...any) {
	for _, a := range args {
		f.args = append(f.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(f.args)), 1)
	}
	f.conds = append(f.conds, cond)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " where " + strings.Join(f.conds, " and ")
}

// page appends limit and offset placeholders.
func (f *filter) page(limit, offset int) string {
	f.args = append(f.args, limit, offset)
	return fmt.Sprintf(" limit $%d offset $%d", len(f.args)-1, len(f.args))
}

// setter builds partial update statements from nil-able fields.
type setter struct {
	sets []string
	args []any
}

func (s *setter) set(column string, v any) {
	s.args = append(s.args, v)
	s.sets = append(s.sets, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setter) empty() bool { return len(s.sets) == 0 }

// touch stamps updated_at on tables that carry it.
func (s *setter) touch() { s.sets = append(s.sets, "updated_at = now()") }

// statement renders "update table set ... where key = $n".
func (s *setter) statement(table, key string, id any) (string, []any) {
	args := append(s.args, id)
	return fmt.Sprintf(`update %s set %s where %s = $%d`,
		table, strings.Join(s.sets, ", "), key, len(args)), args
}

func setIf[T any](s *setter, column string, v *T) {
	if v != nil {
		s.set(column, *v)
	}
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	return string(b), nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// collect drains rows through scan.
func collect[T any](rows *sql.Rows, err error, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// count runs a count(*) query.
func (s *Store) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	err := s.conn(ctx).QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}
