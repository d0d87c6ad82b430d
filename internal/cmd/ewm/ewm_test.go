package ewm

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("ewm", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8080 || cfg.GRPCPort != 8081 {
		t.Fatalf("ports = %d/%d", cfg.Port, cfg.GRPCPort)
	}
	if cfg.StatsURL != "http://localhost:9090" || cfg.StatsTimeout != 2*time.Second {
		t.Fatalf("stats = %s %s", cfg.StatsURL, cfg.StatsTimeout)
	}
	if got := cfg.serverConfig().HTTPAddr; got != ":8080" {
		t.Fatalf("http addr = %s", got)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("EWM_PORT", "7000")
	t.Setenv("EWM_STATS_TIMEOUT", "500ms")

	fs := flag.NewFlagSet("ewm", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "7001", "-db", "/tmp/ewm.db", "-stats-grpc-addr", "localhost:9091"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 7001 || cfg.DBPath != "/tmp/ewm.db" || cfg.StatsTimeout != 500*time.Millisecond {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := cfg.serverConfig().StatsHealthAddr; got != "localhost:9091" {
		t.Fatalf("stats health addr = %q", got)
	}
}
