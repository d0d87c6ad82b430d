// Package sqlite stores endpoint hits in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/louisbranch/ewm/internal/platform/id"
	"github.com/louisbranch/ewm/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/ewm/internal/services/stats/domain"
	"github.com/louisbranch/ewm/internal/services/stats/storage/sqlite/migrations"
)

// Store persists hits in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	sqlDB, err := sqlitedb.Open(path, migrations.FS)
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveHit inserts one hit under a fresh id.
func (s *Store) SaveHit(ctx context.Context, hit domain.Hit) (domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return domain.Hit{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Hit{}, domain.ErrStoreNotConfigured
	}
	hitID, err := id.NewID()
	if err != nil {
		return domain.Hit{}, err
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO hits (id, app, uri, ip, ts) VALUES (?, ?, ?, ?, ?)`,
		hitID, hit.App, hit.URI, hit.IP, sqlitedb.ToMillis(hit.Timestamp),
	)
	if err != nil {
		return domain.Hit{}, fmt.Errorf("save hit: %w", err)
	}
	hit.ID = hitID
	return hit, nil
}

// Stats aggregates hits per (app, uri) inside the query window.
func (s *Store) Stats(ctx context.Context, query domain.Query) ([]domain.ViewStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	count := `COUNT(ip)`
	if query.Unique {
		count = `COUNT(DISTINCT ip)`
	}
	where := []string{`ts BETWEEN ? AND ?`}
	args := []any{sqlitedb.ToMillis(query.Start), sqlitedb.ToMillis(query.End)}
	if len(query.URIs) > 0 {
		where = append(where, `uri IN (`+sqlitedb.Placeholders(len(query.URIs))+`)`)
		for _, uri := range query.URIs {
			args = append(args, uri)
		}
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT app, uri, `+count+` AS hits
		   FROM hits
		  WHERE `+strings.Join(where, ` AND `)+`
		  GROUP BY app, uri
		  ORDER BY hits DESC, app, uri`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := []domain.ViewStats{}
	for rows.Next() {
		var view domain.ViewStats
		if err := rows.Scan(&view.App, &view.URI, &view.Hits); err != nil {
			return nil, fmt.Errorf("query stats: %w", err)
		}
		stats = append(stats, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

var _ domain.Store = (*Store)(nil)
