package domain

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/ewm/internal/platform/pagination"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrReferenced indicates a delete was blocked by dependent rows.
	ErrReferenced = errors.New("record is referenced")
	// ErrVersionConflict indicates an event row changed since it was read.
	ErrVersionConflict = errors.New("event version conflict")
	// ErrInvalidFilter indicates an unparseable filter expression.
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("store is not configured")
)

// EventSort orders event search results.
type EventSort string

const (
	SortByID        EventSort = ""
	SortByEventDate EventSort = "EVENT_DATE"
	SortByViews     EventSort = "VIEWS"
)

// EventQuery is a conjunction of optional event filters.
type EventQuery struct {
	InitiatorIDs  []int64
	States        []EventState
	CategoryIDs   []int64
	Text          string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	// Filter is an AIP-160 expression over event columns.
	Filter string
	Sort   EventSort
	// Page limits the result window. Nil returns every match.
	Page *pagination.Page
}

// CommentQuery selects comments by author, event and creation window.
type CommentQuery struct {
	AuthorID   int64
	EventID    int64
	RangeStart *time.Time
	RangeEnd   *time.Time
	Page       pagination.Page
}

// Repository is the persistence boundary used inside one unit of work.
type Repository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ListUsers(ctx context.Context, ids []int64, page pagination.Page) ([]User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateCategory(ctx context.Context, category Category) (Category, error)
	GetCategory(ctx context.Context, id int64) (Category, error)
	UpdateCategory(ctx context.Context, category Category) (Category, error)
	ListCategories(ctx context.Context, page pagination.Page) ([]Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	CategoryInUse(ctx context.Context, id int64) (bool, error)

	CreateEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id int64) (Event, error)
	// UpdateEvent writes event if its stored version still equals
	// event.Version and returns the row with the incremented version.
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	// BumpEventVersion increments the version if it equals expected.
	BumpEventVersion(ctx context.Context, id int64, expected int64) error
	GetEventDetails(ctx context.Context, ids []int64) ([]EventDetails, error)
	SearchEvents(ctx context.Context, query EventQuery) ([]EventDetails, error)

	CreateRequest(ctx context.Context, request Request) (Request, error)
	GetRequest(ctx context.Context, id int64) (Request, error)
	GetRequestsByIDs(ctx context.Context, ids []int64) ([]Request, error)
	RequestExists(ctx context.Context, requesterID, eventID int64) (bool, error)
	CountRequestsByStatus(ctx context.Context, eventID int64, status RequestStatus) (int64, error)
	ListPendingRequestsForEvent(ctx context.Context, eventID int64) ([]Request, error)
	ListRequestsForEvent(ctx context.Context, eventID int64) ([]Request, error)
	ListRequestsByRequester(ctx context.Context, requesterID int64) ([]Request, error)
	SetRequestStatus(ctx context.Context, ids []int64, status RequestStatus) error

	CreateComment(ctx context.Context, comment Comment) (Comment, error)
	GetComment(ctx context.Context, id int64) (CommentDetails, error)
	UpdateComment(ctx context.Context, comment Comment) error
	DeleteComment(ctx context.Context, id int64) error
	ListComments(ctx context.Context, query CommentQuery) ([]CommentDetails, error)

	CreateCompilation(ctx context.Context, compilation Compilation) (Compilation, error)
	GetCompilation(ctx context.Context, id int64) (Compilation, error)
	UpdateCompilation(ctx context.Context, compilation Compilation) error
	ListCompilations(ctx context.Context, pinned *bool, page pagination.Page) ([]Compilation, error)
	DeleteCompilation(ctx context.Context, id int64) error
}

// Store is a Repository that can also run a unit of work atomically.
type Store interface {
	Repository
	// WithinTx runs fn against a transactional Repository. Returning an
	// error rolls back every write made through that Repository.
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

// StatsReporter records endpoint hits and reads view counts.
type StatsReporter interface {
	// RecordHit delivers one hit without blocking the caller.
	RecordHit(ctx context.Context, uri string, ip string, at time.Time)
	// Views returns hit counts keyed by uri.
	Views(ctx context.Context, uris []string, unique bool) (map[string]int64, error)
}
