package domain

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/louisbranch/ewm/internal/platform/errors"
	"github.com/louisbranch/ewm/internal/platform/pagination"
)

// UserService manages registered accounts.
type UserService struct {
	store Store
}

// NewUserService constructs user use-cases.
func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

// Create registers a user. Emails are unique.
func (s *UserService) Create(ctx context.Context, user User) (User, error) {
	if s == nil || s.store == nil {
		return User{}, ErrStoreNotConfigured
	}
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	if err := checkLength("name", user.Name, 2, 250); err != nil {
		return User{}, err
	}
	if err := checkLength("email", user.Email, 6, 254); err != nil {
		return User{}, err
	}
	if at := strings.Index(user.Email, "@"); at <= 0 || at == len(user.Email)-1 {
		return User{}, invalidField("email", "Field: email. Error: must be a well-formed email address. Value: %s", user.Email)
	}
	user.ID = 0
	created, err := s.store.CreateUser(ctx, user)
	if errors.Is(err, ErrAlreadyExists) {
		return User{}, apperrors.Conflictf("User with email=%s already exists", user.Email)
	}
	if err != nil {
		return User{}, err
	}
	return created, nil
}

// List returns users by id, or every user when ids is empty.
func (s *UserService) List(ctx context.Context, ids []int64, page pagination.Page) ([]User, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return s.store.ListUsers(ctx, dedupeIDs(ids), page)
}

// Delete removes a user who owns no events, requests or comments.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	err := s.store.DeleteUser(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(kindUser, id)
	case errors.Is(err, ErrReferenced):
		return apperrors.Conflictf("User with id=%d is still referenced", id)
	}
	return err
}
