// Package server wires the stats runtime: the REST API, the hit store and
// the gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	platformgrpc "github.com/louisbranch/ewm/internal/platform/grpc"
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/platform/timeouts"
	"github.com/louisbranch/ewm/internal/services/stats/api/rest"
	statsclient "github.com/louisbranch/ewm/internal/services/stats/client"
	"github.com/louisbranch/ewm/internal/services/stats/domain"
	statsmongo "github.com/louisbranch/ewm/internal/services/stats/storage/mongo"
	statssqlite "github.com/louisbranch/ewm/internal/services/stats/storage/sqlite"
	"golang.org/x/sync/errgroup"
)

// HealthServiceName is the grpc.health.v1 service reported by the stats service.
const HealthServiceName = statsclient.HealthServiceName

// Config carries runtime settings for the stats service. A non-empty
// MongoURI selects the MongoDB store over SQLite.
type Config struct {
	HTTPAddr string
	GRPCAddr string
	DBPath   string
	MongoURI string
	MongoDB  string
}

// Server hosts the stats REST API and health endpoint.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	health     *platformgrpc.HealthServer
	closeStore func() error
}

// New opens the configured store and binds both listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = closeStore()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	health, err := platformgrpc.NewHealthServer(cfg.GRPCAddr, HealthServiceName)
	if err != nil {
		_ = listener.Close()
		_ = closeStore()
		return nil, err
	}
	handler := rest.NewHandler(domain.NewService(store), log.Default())
	return &Server{
		listener:   listener,
		httpServer: httpx.NewServer(handler),
		health:     health,
		closeStore: closeStore,
	}, nil
}

// Addr returns the REST listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HealthAddr returns the gRPC health listener address.
func (s *Server) HealthAddr() string {
	if s == nil {
		return ""
	}
	return s.health.Addr()
}

// Run creates and serves the stats service until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs both listeners until ctx ends or either fails.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return httpx.Serve(groupCtx, s.httpServer, s.listener)
	})
	group.Go(func() error {
		return s.health.Serve(groupCtx)
	})
	return group.Wait()
}

// Close releases listeners and the store.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.closeStore != nil {
		if err := s.closeStore(); err != nil {
			log.Printf("close stats store: %v", err)
		}
	}
}

func openStore(ctx context.Context, cfg Config) (domain.Store, func() error, error) {
	if uri := strings.TrimSpace(cfg.MongoURI); uri != "" {
		connectCtx, cancel := context.WithTimeout(ctx, timeouts.Shutdown)
		defer cancel()
		store, err := statsmongo.Open(connectCtx, uri, cfg.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("open stats mongo store: %w", err)
		}
		log.Printf("stats store: mongo database %s", cfg.MongoDB)
		return store, func() error {
			closeCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			defer cancel()
			return store.Close(closeCtx)
		}, nil
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := statssqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open stats sqlite store: %w", err)
	}
	log.Printf("stats store: sqlite %s", cfg.DBPath)
	return store, store.Close, nil
}
