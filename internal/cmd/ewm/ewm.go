// Package ewm parses main service flags and launches the service.
package ewm

import (
	"context"
	"flag"
	"fmt"
	"time"

	entrypoint "github.com/louisbranch/ewm/internal/platform/cmd"
	server "github.com/louisbranch/ewm/internal/services/ewm/app"
)

// Config holds main service command configuration.
type Config struct {
	Port          int           `env:"EWM_PORT" envDefault:"8080"`
	GRPCPort      int           `env:"EWM_GRPC_PORT" envDefault:"8081"`
	DBPath        string        `env:"EWM_DB_PATH" envDefault:"data/ewm.db"`
	StatsURL      string        `env:"EWM_STATS_URL" envDefault:"http://localhost:9090"`
	StatsTimeout  time.Duration `env:"EWM_STATS_TIMEOUT" envDefault:"2s"`
	StatsGRPCAddr string        `env:"EWM_STATS_GRPC_ADDR"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The REST server port")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "The gRPC health server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.StatsURL, "stats-url", cfg.StatsURL, "The stats service base URL")
	fs.DurationVar(&cfg.StatsTimeout, "stats-timeout", cfg.StatsTimeout, "The stats request timeout")
	fs.StringVar(&cfg.StatsGRPCAddr, "stats-grpc-addr", cfg.StatsGRPCAddr, "The stats gRPC health address to probe at startup")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) serverConfig() server.Config {
	return server.Config{
		HTTPAddr:        fmt.Sprintf(":%d", c.Port),
		GRPCAddr:        fmt.Sprintf(":%d", c.GRPCPort),
		DBPath:          c.DBPath,
		StatsURL:        c.StatsURL,
		StatsTimeout:    c.StatsTimeout,
		StatsHealthAddr: c.StatsGRPCAddr,
	}
}

// Run starts the main service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEWM, func(ctx context.Context) error {
		return server.Run(ctx, cfg.serverConfig())
	})
}
