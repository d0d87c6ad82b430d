package domain

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"go.opentelemetry.io/otel/attribute"
)

// CommentService manages user comments on events.
type CommentService struct {
	store Store
	clock Clock
}

// NewCommentService constructs comment use-cases.
func NewCommentService(store Store, clock Clock) *CommentService {
	return &CommentService{store: store, clock: clock}
}

func validateMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	return message, checkLength("message", message, 20, 500)
}

// Add posts a comment by userID on eventID.
func (s *CommentService) Add(ctx context.Context, userID, eventID int64, message string) (result CommentDetails, err error) {
	ctx, span := startSpan(ctx, "comments.add",
		attribute.Int64("user.id", userID), attribute.Int64("event.id", eventID))
	defer func() { endSpan(span, err) }()

	if s == nil || s.store == nil {
		return CommentDetails{}, ErrStoreNotConfigured
	}
	if message, err = validateMessage(message); err != nil {
		return CommentDetails{}, err
	}
	var created Comment
	err = s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.GetUser(ctx, userID); err != nil {
			return lookupErr(err, kindUser, userID)
		}
		if _, err := repo.GetEvent(ctx, eventID); err != nil {
			return lookupErr(err, kindEvent, eventID)
		}
		var err error
		created, err = repo.CreateComment(ctx, Comment{
			AuthorID: userID,
			EventID:  eventID,
			Message:  message,
			Created:  s.clock.now(),
		})
		return err
	})
	if err != nil {
		return CommentDetails{}, err
	}
	return s.Get(ctx, created.ID)
}

// Update rewrites the message of the user's own comment.
func (s *CommentService) Update(ctx context.Context, userID, commentID int64, message string) (CommentDetails, error) {
	if s == nil || s.store == nil {
		return CommentDetails{}, ErrStoreNotConfigured
	}
	message, err := validateMessage(message)
	if err != nil {
		return CommentDetails{}, err
	}
	err = s.store.WithinTx(ctx, func(repo Repository) error {
		comment, err := s.owned(ctx, repo, userID, commentID)
		if err != nil {
			return err
		}
		comment.Message = message
		return repo.UpdateComment(ctx, comment)
	})
	if err != nil {
		return CommentDetails{}, err
	}
	return s.Get(ctx, commentID)
}

// DeleteByAuthor removes the user's own comment.
func (s *CommentService) DeleteByAuthor(ctx context.Context, userID, commentID int64) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	return s.store.WithinTx(ctx, func(repo Repository) error {
		if _, err := s.owned(ctx, repo, userID, commentID); err != nil {
			return err
		}
		return repo.DeleteComment(ctx, commentID)
	})
}

// DeleteByAdmin removes any comment.
func (s *CommentService) DeleteByAdmin(ctx context.Context, commentID int64) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return lookupErr(err, kindComment, commentID)
	}
	return nil
}

// Get returns one comment.
func (s *CommentService) Get(ctx context.Context, commentID int64) (CommentDetails, error) {
	if s == nil || s.store == nil {
		return CommentDetails{}, ErrStoreNotConfigured
	}
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return CommentDetails{}, lookupErr(err, kindComment, commentID)
	}
	return comment, nil
}

// List returns comments matching query, newest first. A range, when both
// bounds are set, must lie in the past with start not after end.
func (s *CommentService) List(ctx context.Context, query CommentQuery) ([]CommentDetails, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if err := s.checkCommentRange(query.RangeStart, query.RangeEnd); err != nil {
		return nil, err
	}
	if query.AuthorID != 0 {
		if _, err := s.store.GetUser(ctx, query.AuthorID); err != nil {
			return nil, lookupErr(err, kindUser, query.AuthorID)
		}
	}
	if query.EventID != 0 {
		if _, err := s.store.GetEvent(ctx, query.EventID); err != nil {
			return nil, lookupErr(err, kindEvent, query.EventID)
		}
	}
	return s.store.ListComments(ctx, query)
}

func (s *CommentService) checkCommentRange(start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if start.After(*end) {
		return invalidField("rangeStart", "rangeStart %s is after rangeEnd %s",
			start.Format(time.DateTime), end.Format(time.DateTime))
	}
	now := s.clock.now()
	if start.After(now) || end.After(now) {
		return invalidField("rangeEnd", "rangeEnd %s must be in the past", end.Format(time.DateTime))
	}
	return nil
}

func (s *CommentService) owned(ctx context.Context, repo Repository, userID, commentID int64) (Comment, error) {
	if _, err := repo.GetUser(ctx, userID); err != nil {
		return Comment{}, lookupErr(err, kindUser, userID)
	}
	comment, err := repo.GetComment(ctx, commentID)
	if err != nil {
		return Comment{}, lookupErr(err, kindComment, commentID)
	}
	if comment.AuthorID != userID {
		return Comment{}, apperrors.Conflictf("User with id=%d is not the author of comment with id=%d", userID, commentID)
	}
	return comment.Comment, nil
}
