package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/ewm/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

const requestColumns = `id, event_id, requester_id, status, created`

func scanRequest(row rowScanner) (domain.Request, error) {
	var (
		request domain.Request
		status  string
		created int64
	)
	if err := row.Scan(&request.ID, &request.EventID, &request.RequesterID, &status, &created); err != nil {
		return domain.Request{}, err
	}
	request.Status = domain.RequestStatus(status)
	request.Created = sqlitedb.FromMillis(created)
	return request, nil
}

func (s *Store) queryRequests(ctx context.Context, op, query string, args ...any) ([]domain.Request, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	requests := []domain.Request{}
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return requests, nil
}

// CreateRequest inserts a participation request. A second request by the
// same user for the same event returns domain.ErrAlreadyExists.
func (s *Store) CreateRequest(ctx context.Context, request domain.Request) (domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Request{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO requests (event_id, requester_id, status, created) VALUES (?, ?, ?, ?)`,
		request.EventID, request.RequesterID, string(request.Status), sqlitedb.ToMillis(request.Created),
	)
	if err != nil {
		switch {
		case sqlitedb.IsUniqueViolation(err):
			return domain.Request{}, domain.ErrAlreadyExists
		case sqlitedb.IsForeignKeyViolation(err):
			return domain.Request{}, domain.ErrNotFound
		}
		return domain.Request{}, fmt.Errorf("create request: %w", err)
	}
	if request.ID, err = result.LastInsertId(); err != nil {
		return domain.Request{}, fmt.Errorf("create request: %w", err)
	}
	return request, nil
}

// GetRequest returns one request by id.
func (s *Store) GetRequest(ctx context.Context, id int64) (domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Request{}, err
	}
	request, err := scanRequest(s.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Request{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Request{}, fmt.Errorf("get request: %w", err)
	}
	return request, nil
}

// GetRequestsByIDs returns the requests among ids that exist, ordered by id.
func (s *Store) GetRequestsByIDs(ctx context.Context, ids []int64) ([]domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Request{}, nil
	}
	return s.queryRequests(ctx, "get requests",
		`SELECT `+requestColumns+` FROM requests WHERE id IN (`+sqlitedb.Placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...)
}

// RequestExists reports whether the user already asked to join the event.
func (s *Store) RequestExists(ctx context.Context, requesterID, eventID int64) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	var exists bool
	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM requests WHERE requester_id = ? AND event_id = ?)`,
		requesterID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check request: %w", err)
	}
	return exists, nil
}

// CountRequestsByStatus counts the event's requests in status.
func (s *Store) CountRequestsByStatus(ctx context.Context, eventID int64, status domain.RequestStatus) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int64
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM requests WHERE event_id = ? AND status = ?`,
		eventID, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count requests: %w", err)
	}
	return count, nil
}

// ListPendingRequestsForEvent returns the event's PENDING requests by id.
func (s *Store) ListPendingRequestsForEvent(ctx context.Context, eventID int64) ([]domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryRequests(ctx, "list pending requests",
		`SELECT `+requestColumns+` FROM requests WHERE event_id = ? AND status = ? ORDER BY id`,
		eventID, string(domain.RequestPending))
}

// ListRequestsForEvent returns every request for the event by id.
func (s *Store) ListRequestsForEvent(ctx context.Context, eventID int64) ([]domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryRequests(ctx, "list event requests",
		`SELECT `+requestColumns+` FROM requests WHERE event_id = ? ORDER BY id`, eventID)
}

// ListRequestsByRequester returns every request the user made by id.
func (s *Store) ListRequestsByRequester(ctx context.Context, requesterID int64) ([]domain.Request, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.queryRequests(ctx, "list user requests",
		`SELECT `+requestColumns+` FROM requests WHERE requester_id = ? ORDER BY id`, requesterID)
}

// SetRequestStatus moves every request in ids to status.
func (s *Store) SetRequestStatus(ctx context.Context, ids []int64, status domain.RequestStatus) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{string(status)}, int64Args(ids)...)
	result, err := s.q.ExecContext(ctx,
		`UPDATE requests SET status = ? WHERE id IN (`+sqlitedb.Placeholders(len(ids))+`)`, args...)
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	if n != int64(len(ids)) {
		return domain.ErrNotFound
	}
	return nil
}
