// Package server wires the main service runtime: the REST API, its SQLite
// store, the stats client and the gRPC health endpoint.
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
	"time"

	platformgrpc "github.com/louisbranch/ewm/internal/platform/grpc"
	"github.com/louisbranch/ewm/internal/platform/httpx"
	"github.com/louisbranch/ewm/internal/platform/timeouts"
	"github.com/louisbranch/ewm/internal/services/ewm/api/rest"
	"github.com/louisbranch/ewm/internal/services/ewm/domain"
	ewmsqlite "github.com/louisbranch/ewm/internal/services/ewm/storage/sqlite"
	statsclient "github.com/louisbranch/ewm/internal/services/stats/client"
	"golang.org/x/sync/errgroup"
)

// HealthServiceName is the grpc.health.v1 service reported by the main service.
const HealthServiceName = "ewm.v1.MainService"

// Config carries runtime settings for the main service.
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	DBPath          string
	StatsURL        string
	StatsTimeout    time.Duration
	// StatsHealthAddr is the stats gRPC health address. When set, startup
	// logs whether the stats service is reachable.
	StatsHealthAddr string
}

// Server hosts the main service REST API and health endpoint.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	health     *platformgrpc.HealthServer
	store      *ewmsqlite.Store
	stats      *statsclient.Client
	statsAddr  string
}

// New opens storage and binds both listeners.
func New(cfg Config) (*Server, error) {
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	health, err := platformgrpc.NewHealthServer(cfg.GRPCAddr, HealthServiceName)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	stats := statsclient.New(cfg.StatsURL, statsclient.WithHTTPClient(&http.Client{Timeout: cfg.StatsTimeout}))
	clock := domain.Clock(time.Now)
	handler := rest.NewHandler(rest.Services{
		Users:        domain.NewUserService(store),
		Categories:   domain.NewCategoryService(store),
		Events:       domain.NewEventService(store, stats, clock),
		Requests:     domain.NewRequestService(store, clock),
		Comments:     domain.NewCommentService(store, clock),
		Compilations: domain.NewCompilationService(store, stats),
	}, log.Default())

	return &Server{
		listener:   listener,
		httpServer: httpx.NewServer(handler),
		health:     health,
		store:      store,
		stats:      stats,
		statsAddr:  cfg.StatsHealthAddr,
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

// Run creates and serves the main service until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
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
	if s.statsAddr != "" {
		go s.awaitStats(groupCtx)
	}
	return group.Wait()
}

// awaitStats reports stats service readiness. View counts fall back to zero
// while it is down, so an unhealthy dependency does not stop startup.
func (s *Server) awaitStats(ctx context.Context) {
	conn, err := platformgrpc.Dial(s.statsAddr)
	if err != nil {
		log.Printf("stats health: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeouts.DependencyWait)
	defer cancel()
	if err := platformgrpc.WaitForHealth(ctx, conn, statsclient.HealthServiceName); err != nil {
		log.Printf("stats service not ready at %s: %v", s.statsAddr, err)
		return
	}
	log.Printf("stats service ready at %s", s.statsAddr)
}

// Close releases listeners, waits for pending hit deliveries and closes the store.
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
	if s.stats != nil {
		s.stats.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close ewm store: %v", err)
		}
	}
}

func openStore(path string) (*ewmsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := ewmsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ewm sqlite store: %w", err)
	}
	return store, nil
}
