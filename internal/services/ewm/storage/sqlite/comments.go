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

const commentDetailsSelect = `SELECT m.id, m.author_id, m.event_id, m.message, m.created,
       u.name, u.email, e.title
  FROM comments m
  JOIN users u ON u.id = m.author_id
  JOIN events e ON e.id = m.event_id`

func scanCommentDetails(row rowScanner) (domain.CommentDetails, error) {
	var (
		details domain.CommentDetails
		created int64
	)
	err := row.Scan(
		&details.ID, &details.AuthorID, &details.EventID, &details.Message, &created,
		&details.Author.Name, &details.Author.Email, &details.EventTitle,
	)
	if err != nil {
		return domain.CommentDetails{}, err
	}
	details.Created = sqlitedb.FromMillis(created)
	details.Author.ID = details.AuthorID
	return details, nil
}

// CreateComment inserts a comment.
func (s *Store) CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Comment{}, err
	}
	result, err := s.q.ExecContext(ctx,
		`INSERT INTO comments (author_id, event_id, message, created) VALUES (?, ?, ?, ?)`,
		comment.AuthorID, comment.EventID, comment.Message, sqlitedb.ToMillis(comment.Created),
	)
	if err != nil {
		if sqlitedb.IsForeignKeyViolation(err) {
			return domain.Comment{}, domain.ErrNotFound
		}
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	if comment.ID, err = result.LastInsertId(); err != nil {
		return domain.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// GetComment returns one comment with its author and event title.
func (s *Store) GetComment(ctx context.Context, id int64) (domain.CommentDetails, error) {
	if err := s.ready(ctx); err != nil {
		return domain.CommentDetails{}, err
	}
	details, err := scanCommentDetails(s.q.QueryRowContext(ctx, commentDetailsSelect+` WHERE m.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CommentDetails{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CommentDetails{}, fmt.Errorf("get comment: %w", err)
	}
	return details, nil
}

// UpdateComment rewrites the comment message.
func (s *Store) UpdateComment(ctx context.Context, comment domain.Comment) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx,
		`UPDATE comments SET message = ? WHERE id = ?`, comment.Message, comment.ID)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return affectedOrNotFound(result)
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.q.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return affectedOrNotFound(result)
}

// ListComments returns matching comments, newest first.
func (s *Store) ListComments(ctx context.Context, query domain.CommentQuery) ([]domain.CommentDetails, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if query.AuthorID != 0 {
		where = append(where, `m.author_id = ?`)
		args = append(args, query.AuthorID)
	}
	if query.EventID != 0 {
		where = append(where, `m.event_id = ?`)
		args = append(args, query.EventID)
	}
	if query.RangeStart != nil {
		where = append(where, `m.created >= ?`)
		args = append(args, sqlitedb.ToMillis(*query.RangeStart))
	}
	if query.RangeEnd != nil {
		where = append(where, `m.created <= ?`)
		args = append(args, sqlitedb.ToMillis(*query.RangeEnd))
	}
	sqlText := commentDetailsSelect
	if len(where) > 0 {
		sqlText += ` WHERE ` + strings.Join(where, ` AND `)
	}
	sqlText += ` ORDER BY m.created DESC, m.id DESC LIMIT ? OFFSET ?`
	args = append(args, pageArgs(query.Page)...)

	rows, err := s.q.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []domain.CommentDetails{}
	for rows.Next() {
		details, err := scanCommentDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		comments = append(comments, details)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
