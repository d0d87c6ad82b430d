// Package stats parses stats service flags and launches the service.
package stats

import (
	"context"
	"flag"
	"fmt"

	entrypoint "github.com/louisbranch/ewm/internal/platform/cmd"
	server "github.com/louisbranch/ewm/internal/services/stats/app"
)

// Config holds stats command configuration.
type Config struct {
	Port     int    `env:"EWM_STATS_PORT" envDefault:"9090"`
	GRPCPort int    `env:"EWM_STATS_GRPC_PORT" envDefault:"9091"`
	DBPath   string `env:"EWM_STATS_DB_PATH" envDefault:"data/stats.db"`
	MongoURI string `env:"EWM_STATS_MONGO_URI"`
	MongoDB  string `env:"EWM_STATS_MONGO_DB" envDefault:"ewm_stats"`
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
	fs.StringVar(&cfg.MongoURI, "mongo-uri", cfg.MongoURI, "The MongoDB URI; overrides SQLite when set")
	fs.StringVar(&cfg.MongoDB, "mongo-db", cfg.MongoDB, "The MongoDB database name")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) serverConfig() server.Config {
	return server.Config{
		HTTPAddr: fmt.Sprintf(":%d", c.Port),
		GRPCAddr: fmt.Sprintf(":%d", c.GRPCPort),
		DBPath:   c.DBPath,
		MongoURI: c.MongoURI,
		MongoDB:  c.MongoDB,
	}
}

// Run starts the stats service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceStats, func(ctx context.Context) error {
		return server.Run(ctx, cfg.serverConfig())
	})
}
