package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
	"github.com/louisbranch/ewm/internal/services/ewm/storage/sqlite"
)

type recordedHit struct {
	uri string
	ip  string
}

type fakeStats struct {
	mu    sync.Mutex
	hits  []recordedHit
	views map[string]int64
}

func (f *fakeStats) RecordHit(_ context.Context, uri string, ip string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, recordedHit{uri: uri, ip: ip})
}

func (f *fakeStats) Views(_ context.Context, uris []string, _ bool) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64, len(uris))
	for _, uri := range uris {
		out[uri] = f.views[uri]
	}
	return out, nil
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	stats   *fakeStats
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ewm.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	stats := &fakeStats{views: map[string]int64{}}
	clock := domain.Clock(time.Now)
	handler := NewHandler(Services{
		Users:        domain.NewUserService(store),
		Categories:   domain.NewCategoryService(store),
		Events:       domain.NewEventService(store, stats, clock),
		Requests:     domain.NewRequestService(store, clock),
		Comments:     domain.NewCommentService(store, clock),
		Compilations: domain.NewCompilationService(store, stats),
	}, nil)
	return &testServer{t: t, handler: handler, stats: stats}
}

func (s *testServer) do(method, target string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) expect(method, target string, body any, status int, out any) {
	s.t.Helper()
	rec := s.do(method, target, body)
	if rec.Code != status {
		s.t.Fatalf("%s %s status = %d, want %d, body = %s", method, target, rec.Code, status, rec.Body.String())
	}
	if out != nil {
		if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
			s.t.Fatalf("%s %s decode: %v", method, target, err)
		}
	}
}

func (s *testServer) createUser(name string) UserDto {
	s.t.Helper()
	var user UserDto
	s.expect(http.MethodPost, "/admin/users", NewUserRequest{Name: name, Email: name + "@example.com"}, http.StatusCreated, &user)
	return user
}

func (s *testServer) createPublishedEvent(initiatorID, categoryID int64, limit int64) EventFullDto {
	s.t.Helper()
	moderation := true
	eventDate := httpx.NewDateTime(time.Now().Add(72 * time.Hour).Truncate(time.Second))
	var event EventFullDto
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/events", initiatorID), NewEventDto{
		Title:             "Board games night",
		Annotation:        "An evening of strategy games for everyone",
		Description:       "Bring a friend and learn three new games with us tonight",
		Category:          categoryID,
		EventDate:         &eventDate,
		Location:          &LocationDto{Lat: 55.75, Lon: 37.61},
		ParticipantLimit:  &limit,
		RequestModeration: &moderation,
	}, http.StatusCreated, &event)
	if event.State != string(domain.EventPending) {
		s.t.Fatalf("new event state = %s", event.State)
	}
	publish := string(domain.PublishEvent)
	s.expect(http.MethodPatch, fmt.Sprintf("/admin/events/%d", event.ID), UpdateEventRequest{StateAction: &publish}, http.StatusOK, &event)
	return event
}

func TestParticipationFlow(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	owner := s.createUser("owner")
	alice := s.createUser("alice")
	bob := s.createUser("bob")
	var category CategoryDto
	s.expect(http.MethodPost, "/admin/categories", CategoryDto{Name: "Games"}, http.StatusCreated, &category)

	event := s.createPublishedEvent(owner.ID, category.ID, 1)
	if event.State != string(domain.EventPublished) || event.PublishedOn == nil {
		t.Fatalf("published event = %+v", event)
	}

	var first, second ParticipationRequestDto
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", alice.ID, event.ID), nil, http.StatusCreated, &first)
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", bob.ID, event.ID), nil, http.StatusCreated, &second)
	if first.Status != string(domain.RequestPending) {
		t.Fatalf("first status = %s", first.Status)
	}
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", alice.ID, event.ID), nil, http.StatusConflict, nil)
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/requests?eventId=%d", owner.ID, event.ID), nil, http.StatusConflict, nil)

	var result EventRequestStatusUpdateResult
	s.expect(http.MethodPatch, fmt.Sprintf("/users/%d/events/%d/requests", owner.ID, event.ID), EventRequestStatusUpdateRequest{
		RequestIDs: []int64{first.ID},
		Status:     string(domain.RequestConfirmed),
	}, http.StatusOK, &result)
	if len(result.ConfirmedRequests) != 1 || result.ConfirmedRequests[0].ID != first.ID || len(result.RejectedRequests) != 0 {
		t.Fatalf("result = %+v", result)
	}

	var requests []ParticipationRequestDto
	s.expect(http.MethodGet, fmt.Sprintf("/users/%d/requests", bob.ID), nil, http.StatusOK, &requests)
	if len(requests) != 1 || requests[0].Status != string(domain.RequestRejected) {
		t.Fatalf("bob requests = %+v", requests)
	}

	s.expect(http.MethodPatch, fmt.Sprintf("/users/%d/events/%d/requests", owner.ID, event.ID), EventRequestStatusUpdateRequest{
		RequestIDs: []int64{second.ID},
		Status:     string(domain.RequestConfirmed),
	}, http.StatusConflict, nil)
	s.expect(http.MethodGet, fmt.Sprintf("/users/%d/events/%d/requests", alice.ID, event.ID), nil, http.StatusNotFound, nil)

	var canceled ParticipationRequestDto
	s.expect(http.MethodPatch, fmt.Sprintf("/users/%d/requests/%d/cancel", alice.ID, first.ID), nil, http.StatusOK, &canceled)
	if canceled.Status != string(domain.RequestCanceled) {
		t.Fatalf("canceled = %+v", canceled)
	}
	s.expect(http.MethodPatch, fmt.Sprintf("/users/%d/requests/%d/cancel", bob.ID, first.ID), nil, http.StatusNotFound, nil)

	s.expect(http.MethodPatch, fmt.Sprintf("/users/%d/requests/%d/cancel", bob.ID, second.ID), nil, http.StatusOK, &canceled)
	if canceled.Status != string(domain.RequestCanceled) {
		t.Fatalf("canceled rejected = %+v", canceled)
	}
}

func TestPublicEventReadsRecordHits(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	owner := s.createUser("owner")
	var category CategoryDto
	s.expect(http.MethodPost, "/admin/categories", CategoryDto{Name: "Concerts"}, http.StatusCreated, &category)
	event := s.createPublishedEvent(owner.ID, category.ID, 0)

	path := fmt.Sprintf("/events/%d", event.ID)
	s.stats.mu.Lock()
	s.stats.views[path] = 12
	s.stats.mu.Unlock()

	var full EventFullDto
	s.expect(http.MethodGet, path, nil, http.StatusOK, &full)
	if full.Views != 12 {
		t.Fatalf("views = %d", full.Views)
	}
	var list []EventShortDto
	s.expect(http.MethodGet, "/events?sort=VIEWS&from=0&size=5", nil, http.StatusOK, &list)
	if len(list) != 1 || list[0].ID != event.ID {
		t.Fatalf("list = %+v", list)
	}

	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	if len(s.stats.hits) != 2 || s.stats.hits[0].uri != path || s.stats.hits[1].uri != "/events" {
		t.Fatalf("hits = %+v", s.stats.hits)
	}
	if s.stats.hits[0].ip != "192.0.2.1" {
		t.Fatalf("hit ip = %s", s.stats.hits[0].ip)
	}
}

func TestUnpublishedEventIsHidden(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	owner := s.createUser("owner")
	var category CategoryDto
	s.expect(http.MethodPost, "/admin/categories", CategoryDto{Name: "Talks"}, http.StatusCreated, &category)
	eventDate := httpx.NewDateTime(time.Now().Add(48 * time.Hour))
	var event EventFullDto
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/events", owner.ID), NewEventDto{
		Title:       "Lightning talks",
		Annotation:  "Five minute talks from the community",
		Description: "Short talks about anything you care about deeply",
		Category:    category.ID,
		EventDate:   &eventDate,
		Location:    &LocationDto{},
	}, http.StatusCreated, &event)

	s.expect(http.MethodGet, fmt.Sprintf("/events/%d", event.ID), nil, http.StatusNotFound, nil)
	s.expect(http.MethodGet, fmt.Sprintf("/users/%d/events/%d", owner.ID, event.ID), nil, http.StatusOK, nil)
	s.expect(http.MethodDelete, fmt.Sprintf("/admin/categories/%d", category.ID), nil, http.StatusConflict, nil)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	owner := s.createUser("owner")
	var category CategoryDto
	s.expect(http.MethodPost, "/admin/categories", CategoryDto{Name: "Sport"}, http.StatusCreated, &category)
	soon := httpx.NewDateTime(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{name: "unknown route", method: http.MethodGet, target: "/nowhere", status: http.StatusNotFound},
		{name: "missing user", method: http.MethodGet, target: "/users/999/events", status: http.StatusNotFound},
		{name: "bad path id", method: http.MethodGet, target: "/categories/abc", status: http.StatusBadRequest},
		{name: "bad size", method: http.MethodGet, target: "/categories?size=0", status: http.StatusBadRequest},
		{name: "duplicate category", method: http.MethodPost, target: "/admin/categories", body: CategoryDto{Name: "Sport"}, status: http.StatusConflict},
		{name: "duplicate email", method: http.MethodPost, target: "/admin/users", body: NewUserRequest{Name: "owner", Email: "owner@example.com"}, status: http.StatusConflict},
		{name: "missing location", method: http.MethodPost, target: fmt.Sprintf("/users/%d/events", owner.ID), body: NewEventDto{Title: "Football"}, status: http.StatusBadRequest},
		{name: "event too soon", method: http.MethodPost, target: fmt.Sprintf("/users/%d/events", owner.ID), body: NewEventDto{
			Title:       "Football",
			Annotation:  "Friendly match in the park on Sunday",
			Description: "Teams are mixed on the spot, bring water",
			Category:    category.ID,
			EventDate:   &soon,
			Location:    &LocationDto{},
		}, status: http.StatusConflict},
		{name: "inverted range", method: http.MethodGet, target: "/events?rangeStart=2030-01-02%2000:00:00&rangeEnd=2030-01-01%2000:00:00", status: http.StatusBadRequest},
		{name: "missing eventId", method: http.MethodPost, target: fmt.Sprintf("/users/%d/requests", owner.ID), status: http.StatusBadRequest},
	}
	for _, tc := range tests {
		rec := s.do(tc.method, tc.target, tc.body)
		if rec.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d, body = %s", tc.name, rec.Code, tc.status, rec.Body.String())
		}
		var apiErr httpx.ApiError
		if err := json.NewDecoder(rec.Body).Decode(&apiErr); err != nil {
			t.Fatalf("%s: decode ApiError: %v", tc.name, err)
		}
		if apiErr.Status == "" || apiErr.Timestamp == "" {
			t.Fatalf("%s: ApiError = %+v", tc.name, apiErr)
		}
	}
}

func TestCompilationsAndComments(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	owner := s.createUser("owner")
	reader := s.createUser("reader")
	var category CategoryDto
	s.expect(http.MethodPost, "/admin/categories", CategoryDto{Name: "Cinema"}, http.StatusCreated, &category)
	event := s.createPublishedEvent(owner.ID, category.ID, 0)

	pinned := true
	var compilation CompilationDto
	s.expect(http.MethodPost, "/admin/compilations", NewCompilationDto{Title: "Weekend picks", Pinned: &pinned, Events: []int64{event.ID}}, http.StatusCreated, &compilation)
	if len(compilation.Events) != 1 || !compilation.Pinned {
		t.Fatalf("compilation = %+v", compilation)
	}
	var pinnedList []CompilationDto
	s.expect(http.MethodGet, "/compilations?pinned=true", nil, http.StatusOK, &pinnedList)
	if len(pinnedList) != 1 {
		t.Fatalf("pinned list = %+v", pinnedList)
	}
	s.expect(http.MethodPatch, fmt.Sprintf("/admin/compilations/%d", compilation.ID), UpdateCompilationRequest{Events: []int64{}}, http.StatusOK, &compilation)
	if len(compilation.Events) != 0 {
		t.Fatalf("cleared compilation = %+v", compilation)
	}
	s.expect(http.MethodDelete, fmt.Sprintf("/admin/compilations/%d", compilation.ID), nil, http.StatusNoContent, nil)
	s.expect(http.MethodGet, fmt.Sprintf("/compilations/%d", compilation.ID), nil, http.StatusNotFound, nil)

	var comment CommentDto
	s.expect(http.MethodPost, fmt.Sprintf("/users/%d/comments?eventId=%d", reader.ID, event.ID), CommentRequest{Message: "Looking forward to this one a lot"}, http.StatusCreated, &comment)
	if comment.Author.ID != reader.ID || comment.EventID != event.ID {
		t.Fatalf("comment = %+v", comment)
	}
	s.expect(http.MethodPatch, fmt.Sprintf("/users/%d/comments/%d", owner.ID, comment.ID), CommentRequest{Message: "Someone else is editing this"}, http.StatusConflict, nil)
	var comments []CommentDto
	s.expect(http.MethodGet, fmt.Sprintf("/comments?eventId=%d", event.ID), nil, http.StatusOK, &comments)
	if len(comments) != 1 {
		t.Fatalf("comments = %+v", comments)
	}
	s.expect(http.MethodGet, fmt.Sprintf("/admin/comments?userId=%d", reader.ID), nil, http.StatusOK, &comments)
	if len(comments) != 1 {
		t.Fatalf("admin comments = %+v", comments)
	}
	s.expect(http.MethodDelete, fmt.Sprintf("/admin/comments/%d", comment.ID), nil, http.StatusNoContent, nil)
	s.expect(http.MethodGet, fmt.Sprintf("/comments/%d", comment.ID), nil, http.StatusNotFound, nil)
}
