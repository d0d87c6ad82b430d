package mongo

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/louisbranch/ewm/internal/services/stats/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestStatsPipelineStages(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pipeline := statsPipeline(domain.Query{Start: start, End: start.Add(time.Hour), URIs: []string{"/events/1"}, Unique: true})
	if len(pipeline) != 4 {
		t.Fatalf("stages = %d, want 4", len(pipeline))
	}
	wantStages := []string{"$match", "$group", "$project", "$sort"}
	for i, stage := range pipeline {
		if stage[0].Key != wantStages[i] {
			t.Fatalf("stage %d = %s, want %s", i, stage[0].Key, wantStages[i])
		}
	}
	match := pipeline[0][0].Value.(bson.D)
	if len(match) != 2 || match[1].Key != "uri" {
		t.Fatalf("match = %v", match)
	}
	group := pipeline[1][0].Value.(bson.D)
	if group[1].Key != "ips" {
		t.Fatalf("unique group accumulator = %s, want ips", group[1].Key)
	}

	plain := statsPipeline(domain.Query{Start: start, End: start})
	if match := plain[0][0].Value.(bson.D); len(match) != 1 {
		t.Fatalf("match without uris = %v", match)
	}
	if group := plain[1][0].Value.(bson.D); group[1].Key != "count" {
		t.Fatalf("group accumulator = %s, want count", group[1].Key)
	}
}

func TestStoreNotConfigured(t *testing.T) {
	t.Parallel()

	var store *Store
	if _, err := store.SaveHit(context.Background(), domain.Hit{}); err != domain.ErrStoreNotConfigured {
		t.Fatalf("save hit err = %v", err)
	}
	if _, err := store.Stats(context.Background(), domain.Query{}); err != domain.ErrStoreNotConfigured {
		t.Fatalf("stats err = %v", err)
	}
}

func TestOpenRequiresURI(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), " ", "stats"); err == nil {
		t.Fatal("expected error for empty uri")
	}
	if _, err := Open(context.Background(), "mongodb://localhost:27017", ""); err == nil {
		t.Fatal("expected error for empty database")
	}
}

func TestStoreAgainstServer(t *testing.T) {
	uri := os.Getenv("EWM_STATS_MONGO_TEST_URI")
	if uri == "" {
		t.Skip("EWM_STATS_MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	database := "ewm_stats_test_" + bson.NewObjectID().Hex()
	store, err := Open(ctx, uri, database)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.client.Database(database).Drop(context.Background())
		_ = store.Close(context.Background())
	})

	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i, ip := range []string{"1.1.1.1", "1.1.1.1", "2.2.2.2"} {
		saved, err := store.SaveHit(ctx, domain.Hit{App: "ewm-main-service", URI: "/events/7", IP: ip, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("save hit: %v", err)
		}
		if saved.ID == "" {
			t.Fatal("expected hit id")
		}
	}

	all, err := store.Stats(ctx, domain.Query{Start: base, End: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(all) != 1 || all[0].Hits != 3 {
		t.Fatalf("all = %+v", all)
	}
	unique, err := store.Stats(ctx, domain.Query{Start: base, End: base.Add(time.Hour), Unique: true})
	if err != nil {
		t.Fatalf("unique stats: %v", err)
	}
	if len(unique) != 1 || unique[0].Hits != 2 {
		t.Fatalf("unique = %+v", unique)
	}
}
