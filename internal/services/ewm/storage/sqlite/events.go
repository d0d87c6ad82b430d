package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/ewm/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
)

const eventColumns = `e.id, e.title, e.annotation, e.description, e.event_date,
       e.category_id, e.initiator_id, e.lat, e.lon, e.paid,
       e.participant_limit, e.request_moderation, e.state,
       e.created_on, e.published_on, e.version`

const confirmedCountExpr = `(SELECT COUNT(*) FROM requests r
         WHERE r.event_id = e.id AND r.status = 'CONFIRMED')`

const eventDetailsSelect = `SELECT ` + eventColumns + `,
       c.name, u.name, u.email, ` + confirmedCountExpr + `
  FROM events e
  JOIN categories c ON c.id = e.category_id
  JOIN users u ON u.id = e.initiator_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner, extra ...any) (domain.Event, error) {
	var (
		event       domain.Event
		eventDate   int64
		createdOn   int64
		publishedOn sql.NullInt64
		state       string
	)
	dest := []any{
		&event.ID, &event.Title, &event.Annotation, &event.Description, &eventDate,
		&event.CategoryID, &event.InitiatorID, &event.Location.Lat, &event.Location.Lon, &event.Paid,
		&event.ParticipantLimit, &event.RequestModeration, &state,
		&createdOn, &publishedOn, &event.Version,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Event{}, err
	}
	event.EventDate = sqlitedb.FromMillis(eventDate)
	event.CreatedOn = sqlitedb.FromMillis(createdOn)
	event.PublishedOn = sqlitedb.FromNullMillis(publishedOn)
	event.State = domain.EventState(state)
	return event, nil
}

func scanEventDetails(row rowScanner) (domain.EventDetails, error) {
	var details domain.EventDetails
	event, err := scanEvent(row,
		&details.Category.Name, &details.Initiator.Name, &details.Initiator.Email, &details.ConfirmedRequests)
	if err != nil {
		return domain.EventDetails{}, err
	}
	details.Event = event
	details.Category.ID = event.CategoryID
	details.Initiator.ID = event.InitiatorID
	return details, nil
}

// CreateEvent inserts an event at version 1.
func (s *Store) CreateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Event{}, err
	}
	event.Version = 1
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO events (
		   title, annotation, description, event_date,
		   category_id, initiator_id, lat, lon, paid,
		   participant_limit, request_moderation, state,
		   created_on, published_on, version
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Title, event.Annotation, event.Description, sqlitedb.ToMillis(event.EventDate),
		event.CategoryID, event.InitiatorID, event.Location.Lat, event.Location.Lon, event.Paid,
		event.ParticipantLimit, event.RequestModeration, string(event.State),
		sqlitedb.ToMillis(event.CreatedOn), sqlitedb.ToNullMillis(event.PublishedOn), event.Version,
	)
	if err != nil {
		if sqlitedb.IsForeignKeyViolation(err) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	if event.ID, err = result.LastInsertId(); err != nil {
		return domain.Event{}, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// GetEvent returns the stored event row.
func (s *Store) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Event{}, err
	}
	event, err := scanEvent(s.q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events e WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// UpdateEvent writes every mutable column when the stored version matches
// event.Version.
func (s *Store) UpdateEvent(ctx context.Context, event domain.Event) (domain.Event, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Event{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`UPDATE events
		    SET title = ?, annotation = ?, description = ?, event_date = ?,
		        category_id = ?, lat = ?, lon = ?, paid = ?,
		        participant_limit = ?, request_moderation = ?, state = ?,
		        published_on = ?, version = version + 1
		  WHERE id = ? AND version = ?`,
		event.Title, event.Annotation, event.Description, sqlitedb.ToMillis(event.EventDate),
		event.CategoryID, event.Location.Lat, event.Location.Lon, event.Paid,
		event.ParticipantLimit, event.RequestModeration, string(event.State),
		sqlitedb.ToNullMillis(event.PublishedOn),
		event.ID, event.Version,
	)
	if err != nil {
		if sqlitedb.IsForeignKeyViolation(err) {
			return domain.Event{}, domain.ErrNotFound
		}
		return domain.Event{}, fmt.Errorf("update event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return domain.Event{}, fmt.Errorf("update event: %w", err)
	}
	if n == 0 {
		if _, err := s.GetEvent(ctx, event.ID); err != nil {
			return domain.Event{}, err
		}
		return domain.Event{}, domain.ErrVersionConflict
	}
	event.Version++
	return event, nil
}

// BumpEventVersion advances the version when it still equals expected.
func (s *Store) BumpEventVersion(ctx context.Context, id int64, expected int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx,
		`UPDATE events SET version = version + 1 WHERE id = ? AND version = ?`, id, expected)
	if err != nil {
		return fmt.Errorf("bump event version: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bump event version: %w", err)
	}
	if n == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}

// GetEventDetails returns the events among ids that exist, in ids order,
// joined with category, initiator and the live confirmed count.
func (s *Store) GetEventDetails(ctx context.Context, ids []int64) ([]domain.EventDetails, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.EventDetails{}, nil
	}
	rows, err := s.q.QueryContext(ctx,
		eventDetailsSelect+` WHERE e.id IN (`+sqlitedb.Placeholders(len(ids))+`)`,
		int64Args(ids)...)
	if err != nil {
		return nil, fmt.Errorf("get event details: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]domain.EventDetails, len(ids))
	for rows.Next() {
		details, err := scanEventDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("get event details: %w", err)
		}
		byID[details.ID] = details
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get event details: %w", err)
	}
	out := make([]domain.EventDetails, 0, len(byID))
	for _, id := range ids {
		if details, ok := byID[id]; ok {
			out = append(out, details)
			delete(byID, id)
		}
	}
	return out, nil
}

// SearchEvents returns events matching every set field of query.
func (s *Store) SearchEvents(ctx context.Context, query domain.EventQuery) ([]domain.EventDetails, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if len(query.InitiatorIDs) > 0 {
		where = append(where, `e.initiator_id IN (`+sqlitedb.Placeholders(len(query.InitiatorIDs))+`)`)
		args = append(args, int64Args(query.InitiatorIDs)...)
	}
	if len(query.States) > 0 {
		where = append(where, `e.state IN (`+sqlitedb.Placeholders(len(query.States))+`)`)
		for _, state := range query.States {
			args = append(args, string(state))
		}
	}
	if len(query.CategoryIDs) > 0 {
		where = append(where, `e.category_id IN (`+sqlitedb.Placeholders(len(query.CategoryIDs))+`)`)
		args = append(args, int64Args(query.CategoryIDs)...)
	}
	if text := strings.TrimSpace(query.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		where = append(where, `(LOWER(e.annotation) LIKE ? ESCAPE '\' OR LOWER(e.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if query.Paid != nil {
		where = append(where, `e.paid = ?`)
		args = append(args, *query.Paid)
	}
	if query.RangeStart != nil {
		where = append(where, `e.event_date >= ?`)
		args = append(args, sqlitedb.ToMillis(*query.RangeStart))
	}
	if query.RangeEnd != nil {
		where = append(where, `e.event_date <= ?`)
		args = append(args, sqlitedb.ToMillis(*query.RangeEnd))
	}
	if query.OnlyAvailable {
		where = append(where, `(e.participant_limit = 0 OR e.participant_limit > `+confirmedCountExpr+`)`)
	}
	if query.Filter != "" {
		condition, err := s.eventFilter.Translate(query.Filter)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
		}
		if !condition.Empty() {
			where = append(where, condition.Clause)
			args = append(args, condition.Params...)
		}
	}

	sqlText := eventDetailsSelect
	if len(where) > 0 {
		sqlText += ` WHERE ` + strings.Join(where, ` AND `)
	}
	if query.Sort == domain.SortByEventDate {
		sqlText += ` ORDER BY e.event_date, e.id`
	} else {
		sqlText += ` ORDER BY e.id`
	}
	if query.Page != nil {
		sqlText += ` LIMIT ? OFFSET ?`
		args = append(args, pageArgs(*query.Page)...)
	}

	rows, err := s.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	events := []domain.EventDetails{}
	for rows.Next() {
		details, err := scanEventDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("search events: %w", err)
		}
		events = append(events, details)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}
