package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/ewm/internal/services/stats/api/rest"
)

func TestRecordHitPostsInBackground(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		got rest.HitDto
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/hit" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := New(server.URL + "/")
	ctx, cancel := context.WithCancel(context.Background())
	at := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	client.RecordHit(ctx, "/events/5", "10.1.1.1", at)
	cancel()
	client.Close()

	mu.Lock()
	defer mu.Unlock()
	if got.App != AppName || got.URI != "/events/5" || got.IP != "10.1.1.1" {
		t.Fatalf("hit = %+v", got)
	}
	if got.Timestamp == nil || !got.Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v", got.Timestamp)
	}
}

func TestRecordHitSwallowsFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := New(server.URL)
	client.RecordHit(context.Background(), "/events", "10.1.1.1", time.Now())
	client.Close()
}

func TestViews(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/stats" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if q.Get("start") != "1970-01-01 00:00:00" || q.Get("end") != "2026-05-01 12:00:00" {
			t.Errorf("window = %s..%s", q.Get("start"), q.Get("end"))
		}
		if q.Get("uris") != "/events/1,/events/2" || q.Get("unique") != "true" {
			t.Errorf("uris = %s unique = %s", q.Get("uris"), q.Get("unique"))
		}
		_ = json.NewEncoder(w).Encode([]rest.ViewStatsDto{{App: AppName, URI: "/events/2", Hits: 7}})
	}))
	defer server.Close()

	client := New(server.URL, WithClock(func() time.Time { return now }))
	views, err := client.Views(context.Background(), []string{"/events/1", "/events/2"}, true)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if views["/events/2"] != 7 || views["/events/1"] != 0 {
		t.Fatalf("views = %v", views)
	}
}

func TestViewsErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	if _, err := New(server.URL).Views(context.Background(), []string{"/events/1"}, false); err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if _, err := New("").Views(context.Background(), []string{"/events/1"}, false); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
	views, err := New("").Views(context.Background(), nil, false)
	if err != nil || len(views) != 0 {
		t.Fatalf("empty uris = %v, %v", views, err)
	}
}
