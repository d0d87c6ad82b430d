package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/ewm/internal/platform/pagination"
	"github.com/louisbranch/ewm/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

// CreateCompilation inserts a compilation and its event links.
func (s *Store) CreateCompilation(ctx context.Context, compilation domain.Compilation) (domain.Compilation, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Compilation{}, err
	}
	err := s.WithinTx(ctx, func(repo domain.Repository) error {
		tx := repo.(*Store)
		result, err := tx.q.ExecContext(ctx,
			`INSERT INTO compilations (title, pinned) VALUES (?, ?)`,
			compilation.Title, compilation.Pinned)
		if err != nil {
			return fmt.Errorf("create compilation: %w", err)
		}
		if compilation.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("create compilation: %w", err)
		}
		return tx.linkEvents(ctx, compilation.ID, compilation.EventIDs)
	})
	if err != nil {
		return domain.Compilation{}, err
	}
	return compilation, nil
}

func (s *Store) linkEvents(ctx context.Context, compilationID int64, eventIDs []int64) error {
	for position, eventID := range eventIDs {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO compilation_events (compilation_id, event_id, position) VALUES (?, ?, ?)`,
			compilationID, eventID, position)
		if err != nil {
			if sqlitedb.IsForeignKeyViolation(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("link compilation event: %w", err)
		}
	}
	return nil
}

func (s *Store) compilationEventIDs(ctx context.Context, compilationID int64) ([]int64, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT event_id FROM compilation_events WHERE compilation_id = ? ORDER BY position`,
		compilationID)
	if err != nil {
		return nil, fmt.Errorf("list compilation events: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list compilation events: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list compilation events: %w", err)
	}
	return ids, nil
}

// GetCompilation returns one compilation with its event ids in insertion
// order.
func (s *Store) GetCompilation(ctx context.Context, id int64) (domain.Compilation, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Compilation{}, err
	}
	var compilation domain.Compilation
	err := s.q.QueryRowContext(ctx,
		`SELECT id, title, pinned FROM compilations WHERE id = ?`, id,
	).Scan(&compilation.ID, &compilation.Title, &compilation.Pinned)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Compilation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Compilation{}, fmt.Errorf("get compilation: %w", err)
	}
	if compilation.EventIDs, err = s.compilationEventIDs(ctx, id); err != nil {
		return domain.Compilation{}, err
	}
	return compilation, nil
}

// UpdateCompilation overwrites title, pinned and the event set.
func (s *Store) UpdateCompilation(ctx context.Context, compilation domain.Compilation) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.WithinTx(ctx, func(repo domain.Repository) error {
		tx := repo.(*Store)
		result, err := tx.q.ExecContext(ctx,
			`UPDATE compilations SET title = ?, pinned = ? WHERE id = ?`,
			compilation.Title, compilation.Pinned, compilation.ID)
		if err != nil {
			return fmt.Errorf("update compilation: %w", err)
		}
		if err := affectedOrNotFound(result); err != nil {
			return err
		}
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM compilation_events WHERE compilation_id = ?`, compilation.ID); err != nil {
			return fmt.Errorf("clear compilation events: %w", err)
		}
		return tx.linkEvents(ctx, compilation.ID, compilation.EventIDs)
	})
}

// ListCompilations returns one page of compilations ordered by id.
func (s *Store) ListCompilations(ctx context.Context, pinned *bool, page pagination.Page) ([]domain.Compilation, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT id, title, pinned FROM compilations`
	var args []any
	if pinned != nil {
		query += ` WHERE pinned = ?`
		args = append(args, *pinned)
	}
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, pageArgs(page)...)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list compilations: %w", err)
	}
	compilations := []domain.Compilation{}
	for rows.Next() {
		var compilation domain.Compilation
		if err := rows.Scan(&compilation.ID, &compilation.Title, &compilation.Pinned); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list compilations: %w", err)
		}
		compilations = append(compilations, compilation)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("list compilations: %w", err)
	}

	for i := range compilations {
		if compilations[i].EventIDs, err = s.compilationEventIDs(ctx, compilations[i].ID); err != nil {
			return nil, err
		}
	}
	return compilations, nil
}

// DeleteCompilation removes a compilation and its event links.
func (s *Store) DeleteCompilation(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM compilations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete compilation: %w", err)
	}
	return affectedOrNotFound(result)
}
