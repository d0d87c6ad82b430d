package server

import (
	"context"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/ewm/internal/platform/grpc"
	statsclient "github.com/louisbranch/ewm/internal/services/stats/client"
)

func TestStatsServerRoundTrip(t *testing.T) {
	t.Parallel()

	server, err := New(context.Background(), Config{
		HTTPAddr: "127.0.0.1:0",
		GRPCAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "stats.db"),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	conn, err := platformgrpc.Dial(server.HealthAddr())
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	defer conn.Close()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := platformgrpc.WaitForHealth(waitCtx, conn, HealthServiceName); err != nil {
		t.Fatalf("health: %v", err)
	}

	client := statsclient.New("http://" + server.Addr())
	now := time.Now().UTC().Truncate(time.Second)
	client.RecordHit(context.Background(), "/events/3", "10.0.0.1", now.Add(-time.Minute))
	client.RecordHit(context.Background(), "/events/3", "10.0.0.1", now.Add(-time.Minute))
	client.RecordHit(context.Background(), "/events/3", "10.0.0.2", now.Add(-time.Minute))
	client.Close()

	views, err := client.Views(context.Background(), []string{"/events/3"}, true)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if views["/events/3"] != 2 {
		t.Fatalf("unique views = %v", views)
	}

	query := url.Values{"start": {"2030-01-02 00:00:00"}, "end": {"2030-01-01 00:00:00"}}
	resp, err := http.Get("http://" + server.Addr() + "/stats?" + query.Encode())
	if err != nil {
		t.Fatalf("get stats: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted window status = %d", resp.StatusCode)
	}

	resp, err = http.Post("http://"+server.Addr()+"/hit", "application/json", strings.NewReader(`{"app":"","uri":"/x","ip":"1.1.1.1","timestamp":"2026-01-01 00:00:00"}`))
	if err != nil {
		t.Fatalf("post hit: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank app status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
