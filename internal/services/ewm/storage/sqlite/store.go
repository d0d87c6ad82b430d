// Package sqlite provides the SQLite-backed entity store of the main service.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/louisbranch/ewm/internal/platform/filter"
	"github.com/louisbranch/ewm/internal/platform/pagination"
	"github.com/louisbranch/ewm/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
	"github.com/louisbranch/ewm/internal/services/ewm/storage/sqlite/migrations"
	"go.einride.tech/aip/filtering"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists users, categories, events, requests, comments and
// compilations in SQLite.
type Store struct {
	sqlDB       *sql.DB
	q           querier
	inTx        bool
	eventFilter *filter.Translator
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	sqlDB, err := sqlitedb.Open(path, migrations.FS)
	if err != nil {
		return nil, err
	}
	eventFilter, err := newEventFilter()
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &Store{sqlDB: sqlDB, q: sqlDB, eventFilter: eventFilter}, nil
}

func newEventFilter() (*filter.Translator, error) {
	toMillis := func(value any) (any, error) {
		t, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected timestamp, got %T", value)
		}
		return sqlitedb.ToMillis(t), nil
	}
	return filter.NewTranslator(
		filter.Field{Name: "paid", Type: filtering.TypeBool, Column: "e.paid"},
		filter.Field{Name: "request_moderation", Type: filtering.TypeBool, Column: "e.request_moderation"},
		filter.Field{Name: "participant_limit", Type: filtering.TypeInt, Column: "e.participant_limit"},
		filter.Field{Name: "state", Type: filtering.TypeString, Column: "e.state"},
		filter.Field{Name: "title", Type: filtering.TypeString, Column: "e.title"},
		filter.Field{Name: "event_date", Type: filtering.TypeTimestamp, Column: "e.event_date", Convert: toMillis},
	)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) withTx(tx *sql.Tx) *Store {
	if s == nil || tx == nil {
		return s
	}
	cloned := *s
	cloned.q = tx
	cloned.inTx = true
	return &cloned
}

// WithinTx runs fn in one write transaction. The connection DSN starts
// transactions with BEGIN IMMEDIATE so concurrent units of work queue on the
// database lock.
func (s *Store) WithinTx(ctx context.Context, fn func(domain.Repository) error) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if s.inTx {
		return fn(s)
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(s.withTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil || s.q == nil {
		return domain.ErrStoreNotConfigured
	}
	return nil
}

// affectedOrNotFound maps a zero-row write to domain.ErrNotFound.
func affectedOrNotFound(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func int64Args(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func pageArgs(page pagination.Page) []any {
	if page.Size <= 0 {
		page = pagination.Default()
	}
	return []any{page.Size, page.From}
}

var _ domain.Store = (*Store)(nil)
