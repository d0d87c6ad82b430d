package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/ewm/internal/platform/pagination"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type memState struct {
	nextID       int64
	users        map[int64]User
	categories   map[int64]Category
	events       map[int64]Event
	requests     map[int64]Request
	comments     map[int64]Comment
	compilations map[int64]Compilation
}

func (s *memState) clone() *memState {
	out := &memState{
		nextID:       s.nextID,
		users:        make(map[int64]User, len(s.users)),
		categories:   make(map[int64]Category, len(s.categories)),
		events:       make(map[int64]Event, len(s.events)),
		requests:     make(map[int64]Request, len(s.requests)),
		comments:     make(map[int64]Comment, len(s.comments)),
		compilations: make(map[int64]Compilation, len(s.compilations)),
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.categories {
		out.categories[k] = v
	}
	for k, v := range s.events {
		out.events[k] = v
	}
	for k, v := range s.requests {
		out.requests[k] = v
	}
	for k, v := range s.comments {
		out.comments[k] = v
	}
	for k, v := range s.compilations {
		v.EventIDs = append([]int64(nil), v.EventIDs...)
		out.compilations[k] = v
	}
	return out
}

// fakeStore keeps every table in memory. WithinTx works on a copy that is
// swapped in only when fn succeeds.
type fakeStore struct {
	*memRepo
	mu sync.Mutex
	// bumpConflicts makes the next N version bumps fail.
	bumpConflicts int
	txCount       int
}

type memRepo struct {
	st    *memState
	owner *fakeStore
}

func newFakeStore() *fakeStore {
	s := &fakeStore{}
	s.memRepo = &memRepo{st: (&memState{}).clone(), owner: s}
	return s
}

func (s *fakeStore) WithinTx(ctx context.Context, fn func(Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++
	tx := &memRepo{st: s.memRepo.st.clone(), owner: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.memRepo.st = tx.st
	return nil
}

func (r *memRepo) id() int64 {
	r.st.nextID++
	return r.st.nextID
}

func (r *memRepo) CreateUser(_ context.Context, user User) (User, error) {
	for _, u := range r.st.users {
		if strings.EqualFold(u.Email, user.Email) {
			return User{}, ErrAlreadyExists
		}
	}
	user.ID = r.id()
	r.st.users[user.ID] = user
	return user, nil
}

func (r *memRepo) GetUser(_ context.Context, id int64) (User, error) {
	user, ok := r.st.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (r *memRepo) ListUsers(_ context.Context, ids []int64, page pagination.Page) ([]User, error) {
	var out []User
	for _, user := range r.st.users {
		if len(ids) > 0 && !containsID(ids, user.ID) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pagination.Window(out, page), nil
}

func (r *memRepo) DeleteUser(_ context.Context, id int64) error {
	if _, ok := r.st.users[id]; !ok {
		return ErrNotFound
	}
	for _, event := range r.st.events {
		if event.InitiatorID == id {
			return ErrReferenced
		}
	}
	delete(r.st.users, id)
	return nil
}

func (r *memRepo) CreateCategory(_ context.Context, category Category) (Category, error) {
	for _, c := range r.st.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return Category{}, ErrAlreadyExists
		}
	}
	category.ID = r.id()
	r.st.categories[category.ID] = category
	return category, nil
}

func (r *memRepo) GetCategory(_ context.Context, id int64) (Category, error) {
	category, ok := r.st.categories[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return category, nil
}

func (r *memRepo) UpdateCategory(_ context.Context, category Category) (Category, error) {
	if _, ok := r.st.categories[category.ID]; !ok {
		return Category{}, ErrNotFound
	}
	for _, c := range r.st.categories {
		if c.ID != category.ID && strings.EqualFold(c.Name, category.Name) {
			return Category{}, ErrAlreadyExists
		}
	}
	r.st.categories[category.ID] = category
	return category, nil
}

func (r *memRepo) ListCategories(_ context.Context, page pagination.Page) ([]Category, error) {
	var out []Category
	for _, c := range r.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pagination.Window(out, page), nil
}

func (r *memRepo) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := r.st.categories[id]; !ok {
		return ErrNotFound
	}
	delete(r.st.categories, id)
	return nil
}

func (r *memRepo) CategoryInUse(_ context.Context, id int64) (bool, error) {
	for _, event := range r.st.events {
		if event.CategoryID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) CreateEvent(_ context.Context, event Event) (Event, error) {
	event.ID = r.id()
	event.Version = 1
	r.st.events[event.ID] = event
	return event, nil
}

func (r *memRepo) GetEvent(_ context.Context, id int64) (Event, error) {
	event, ok := r.st.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return event, nil
}

func (r *memRepo) UpdateEvent(_ context.Context, event Event) (Event, error) {
	stored, ok := r.st.events[event.ID]
	if !ok {
		return Event{}, ErrNotFound
	}
	if stored.Version != event.Version {
		return Event{}, ErrVersionConflict
	}
	event.Version++
	r.st.events[event.ID] = event
	return event, nil
}

func (r *memRepo) BumpEventVersion(_ context.Context, id int64, expected int64) error {
	if r.owner.bumpConflicts > 0 {
		r.owner.bumpConflicts--
		return ErrVersionConflict
	}
	event, ok := r.st.events[id]
	if !ok || event.Version != expected {
		return ErrVersionConflict
	}
	event.Version++
	r.st.events[id] = event
	return nil
}

func (r *memRepo) details(event Event) EventDetails {
	var confirmed int64
	for _, request := range r.st.requests {
		if request.EventID == event.ID && request.Status == RequestConfirmed {
			confirmed++
		}
	}
	return EventDetails{
		Event:             event,
		Category:          r.st.categories[event.CategoryID],
		Initiator:         r.st.users[event.InitiatorID],
		ConfirmedRequests: confirmed,
	}
}

func (r *memRepo) GetEventDetails(_ context.Context, ids []int64) ([]EventDetails, error) {
	var out []EventDetails
	for _, id := range ids {
		if event, ok := r.st.events[id]; ok {
			out = append(out, r.details(event))
		}
	}
	return out, nil
}

func (r *memRepo) SearchEvents(_ context.Context, query EventQuery) ([]EventDetails, error) {
	if query.Filter == "bad" {
		return nil, fmt.Errorf("%w: unparseable", ErrInvalidFilter)
	}
	var out []EventDetails
	for _, event := range r.st.events {
		if len(query.InitiatorIDs) > 0 && !containsID(query.InitiatorIDs, event.InitiatorID) {
			continue
		}
		if len(query.CategoryIDs) > 0 && !containsID(query.CategoryIDs, event.CategoryID) {
			continue
		}
		if len(query.States) > 0 && !containsState(query.States, event.State) {
			continue
		}
		if query.Text != "" {
			text := strings.ToLower(query.Text)
			if !strings.Contains(strings.ToLower(event.Annotation), text) &&
				!strings.Contains(strings.ToLower(event.Description), text) {
				continue
			}
		}
		if query.Paid != nil && event.Paid != *query.Paid {
			continue
		}
		if query.RangeStart != nil && event.EventDate.Before(*query.RangeStart) {
			continue
		}
		if query.RangeEnd != nil && event.EventDate.After(*query.RangeEnd) {
			continue
		}
		details := r.details(event)
		if query.OnlyAvailable && event.HasLimit() && details.ConfirmedRequests >= event.ParticipantLimit {
			continue
		}
		out = append(out, details)
	}
	sort.Slice(out, func(i, j int) bool {
		if query.Sort == SortByEventDate && !out[i].EventDate.Equal(out[j].EventDate) {
			return out[i].EventDate.Before(out[j].EventDate)
		}
		return out[i].ID < out[j].ID
	})
	if query.Page != nil {
		out = pagination.Window(out, *query.Page)
	}
	return out, nil
}

func (r *memRepo) CreateRequest(_ context.Context, request Request) (Request, error) {
	for _, existing := range r.st.requests {
		if existing.EventID == request.EventID && existing.RequesterID == request.RequesterID {
			return Request{}, ErrAlreadyExists
		}
	}
	request.ID = r.id()
	r.st.requests[request.ID] = request
	return request, nil
}

func (r *memRepo) GetRequest(_ context.Context, id int64) (Request, error) {
	request, ok := r.st.requests[id]
	if !ok {
		return Request{}, ErrNotFound
	}
	return request, nil
}

func (r *memRepo) GetRequestsByIDs(_ context.Context, ids []int64) ([]Request, error) {
	var out []Request
	for _, id := range ids {
		if request, ok := r.st.requests[id]; ok {
			out = append(out, request)
		}
	}
	return out, nil
}

func (r *memRepo) RequestExists(_ context.Context, requesterID, eventID int64) (bool, error) {
	for _, request := range r.st.requests {
		if request.RequesterID == requesterID && request.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) CountRequestsByStatus(_ context.Context, eventID int64, status RequestStatus) (int64, error) {
	var n int64
	for _, request := range r.st.requests {
		if request.EventID == eventID && request.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) filterRequests(keep func(Request) bool) []Request {
	var out []Request
	for _, request := range r.st.requests {
		if keep(request) {
			out = append(out, request)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memRepo) ListPendingRequestsForEvent(_ context.Context, eventID int64) ([]Request, error) {
	return r.filterRequests(func(req Request) bool {
		return req.EventID == eventID && req.Status == RequestPending
	}), nil
}

func (r *memRepo) ListRequestsForEvent(_ context.Context, eventID int64) ([]Request, error) {
	return r.filterRequests(func(req Request) bool { return req.EventID == eventID }), nil
}

func (r *memRepo) ListRequestsByRequester(_ context.Context, requesterID int64) ([]Request, error) {
	return r.filterRequests(func(req Request) bool { return req.RequesterID == requesterID }), nil
}

func (r *memRepo) SetRequestStatus(_ context.Context, ids []int64, status RequestStatus) error {
	for _, id := range ids {
		request, ok := r.st.requests[id]
		if !ok {
			return ErrNotFound
		}
		request.Status = status
		r.st.requests[id] = request
	}
	return nil
}

func (r *memRepo) CreateComment(_ context.Context, comment Comment) (Comment, error) {
	comment.ID = r.id()
	r.st.comments[comment.ID] = comment
	return comment, nil
}

func (r *memRepo) commentDetails(comment Comment) CommentDetails {
	return CommentDetails{
		Comment:    comment,
		Author:     r.st.users[comment.AuthorID],
		EventTitle: r.st.events[comment.EventID].Title,
	}
}

func (r *memRepo) GetComment(_ context.Context, id int64) (CommentDetails, error) {
	comment, ok := r.st.comments[id]
	if !ok {
		return CommentDetails{}, ErrNotFound
	}
	return r.commentDetails(comment), nil
}

func (r *memRepo) UpdateComment(_ context.Context, comment Comment) error {
	if _, ok := r.st.comments[comment.ID]; !ok {
		return ErrNotFound
	}
	r.st.comments[comment.ID] = comment
	return nil
}

func (r *memRepo) DeleteComment(_ context.Context, id int64) error {
	if _, ok := r.st.comments[id]; !ok {
		return ErrNotFound
	}
	delete(r.st.comments, id)
	return nil
}

func (r *memRepo) ListComments(_ context.Context, query CommentQuery) ([]CommentDetails, error) {
	var out []CommentDetails
	for _, comment := range r.st.comments {
		if query.AuthorID != 0 && comment.AuthorID != query.AuthorID {
			continue
		}
		if query.EventID != 0 && comment.EventID != query.EventID {
			continue
		}
		if query.RangeStart != nil && comment.Created.Before(*query.RangeStart) {
			continue
		}
		if query.RangeEnd != nil && comment.Created.After(*query.RangeEnd) {
			continue
		}
		out = append(out, r.commentDetails(comment))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return pagination.Window(out, query.Page), nil
}

func (r *memRepo) CreateCompilation(_ context.Context, compilation Compilation) (Compilation, error) {
	compilation.ID = r.id()
	r.st.compilations[compilation.ID] = compilation
	return compilation, nil
}

func (r *memRepo) GetCompilation(_ context.Context, id int64) (Compilation, error) {
	compilation, ok := r.st.compilations[id]
	if !ok {
		return Compilation{}, ErrNotFound
	}
	return compilation, nil
}

func (r *memRepo) UpdateCompilation(_ context.Context, compilation Compilation) error {
	if _, ok := r.st.compilations[compilation.ID]; !ok {
		return ErrNotFound
	}
	r.st.compilations[compilation.ID] = compilation
	return nil
}

func (r *memRepo) ListCompilations(_ context.Context, pinned *bool, page pagination.Page) ([]Compilation, error) {
	var out []Compilation
	for _, compilation := range r.st.compilations {
		if pinned != nil && compilation.Pinned != *pinned {
			continue
		}
		out = append(out, compilation)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return pagination.Window(out, page), nil
}

func (r *memRepo) DeleteCompilation(_ context.Context, id int64) error {
	if _, ok := r.st.compilations[id]; !ok {
		return ErrNotFound
	}
	delete(r.st.compilations, id)
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsState(states []EventState, state EventState) bool {
	for _, candidate := range states {
		if candidate == state {
			return true
		}
	}
	return false
}

type fakeStats struct {
	mu    sync.Mutex
	views map[string]int64
	err   error
	hits  []string
}

func (f *fakeStats) RecordHit(_ context.Context, uri, ip string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, uri+"|"+ip)
}

func (f *fakeStats) Views(_ context.Context, uris []string, unique bool) (map[string]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !unique {
		return nil, errors.New("views must be unique")
	}
	out := make(map[string]int64, len(uris))
	for _, uri := range uris {
		out[uri] = f.views[uri]
	}
	return out, nil
}

var (
	_ Store         = (*fakeStore)(nil)
	_ StatsReporter = (*fakeStats)(nil)
)

// seed helpers write straight into committed state.

func (s *fakeStore) addUser(name string) User {
	user, _ := s.CreateUser(context.Background(), User{Name: name, Email: name + "@example.com"})
	return user
}

func (s *fakeStore) addCategory(name string) Category {
	category, _ := s.CreateCategory(context.Background(), Category{Name: name})
	return category
}

func (s *fakeStore) addEvent(initiator, category int64, state EventState, limit int64, moderation bool) Event {
	event, _ := s.CreateEvent(context.Background(), Event{
		Title:             "Board games night",
		Annotation:        "A relaxed evening of board games",
		Description:       "Bring your favorite board games and snacks",
		EventDate:         fixedNow.Add(72 * time.Hour),
		CategoryID:        category,
		InitiatorID:       initiator,
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		State:             state,
		CreatedOn:         fixedNow.Add(-time.Hour),
	})
	return event
}

func (s *fakeStore) addRequest(eventID, requesterID int64, status RequestStatus) Request {
	request, _ := s.CreateRequest(context.Background(), Request{
		EventID:     eventID,
		RequesterID: requesterID,
		Status:      status,
		Created:     fixedNow,
	})
	return request
}

func (s *fakeStore) status(id int64) RequestStatus {
	return s.memRepo.st.requests[id].Status
}
