// Package app assembles and runs the edge gateway: stores, strategies,
// lifecycle, coordinator, and the HTTP and health surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	platformgrpc "github.com/veldtmaps/edge/internal/platform/grpc"
	"github.com/veldtmaps/edge/internal/platform/keepalive"
	"github.com/veldtmaps/edge/internal/platform/timeouts"
	"github.com/veldtmaps/edge/internal/services/edge/domain"
	edgebbolt "github.com/veldtmaps/edge/internal/services/edge/storage/bbolt"
	edgesqlite "github.com/veldtmaps/edge/internal/services/edge/storage/sqlite"
)

// RuntimeConfig controls gateway startup and serving behavior.
type RuntimeConfig struct {
	HTTPAddr         string
	HealthPort       int
	OriginURL        string
	OriginHealthAddr string
	ManifestPath     string
	CacheDBPath      string
	EventsDBPath     string
	MaxConnections   int
	GRPCDialTimeout  time.Duration
}

const (
	defaultHTTPAddr       = ":8080"
	defaultHealthPort     = 8090
	defaultCacheDB        = "data/edge-cache.db"
	defaultEventsDB       = "data/edge-events.db"
	defaultMaxConnections = 512
)

// Run starts the gateway: provisions the manifest's partitions, activates
// the release, and serves intercepted traffic until the context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.OriginURL) == "" {
		return fmt.Errorf("origin url is required")
	}
	if strings.TrimSpace(cfg.ManifestPath) == "" {
		return fmt.Errorf("manifest path is required")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.HealthPort <= 0 {
		cfg.HealthPort = defaultHealthPort
	}
	if strings.TrimSpace(cfg.CacheDBPath) == "" {
		cfg.CacheDBPath = defaultCacheDB
	}
	if strings.TrimSpace(cfg.EventsDBPath) == "" {
		cfg.EventsDBPath = defaultEventsDB
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaultMaxConnections
	}

	origin, err := url.Parse(cfg.OriginURL)
	if err != nil {
		return fmt.Errorf("parse origin url: %w", err)
	}
	if !origin.IsAbs() {
		return fmt.Errorf("origin url must be absolute")
	}

	manifest, err := domain.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	for _, path := range []string{cfg.CacheDBPath, cfg.EventsDBPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create storage dir: %w", err)
			}
		}
	}

	cacheStore, err := edgebbolt.Open(cfg.CacheDBPath)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer func() {
		if closeErr := cacheStore.Close(); closeErr != nil {
			log.Printf("close cache store: %v", closeErr)
		}
	}()

	eventStore, err := edgesqlite.Open(cfg.EventsDBPath)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer func() {
		if closeErr := eventStore.Close(); closeErr != nil {
			log.Printf("close event store: %v", closeErr)
		}
	}()

	// When the origin exposes a health endpoint, hold provisioning until it
	// reports SERVING so the install does not race a booting origin.
	if addr := strings.TrimSpace(cfg.OriginHealthAddr); addr != "" {
		dialTimeout := cfg.GRPCDialTimeout
		if dialTimeout <= 0 {
			dialTimeout = timeouts.GRPCDial
		}
		originConn, err := platformgrpc.DialWithHealth(
			ctx,
			nil,
			addr,
			dialTimeout,
			log.Printf,
			platformgrpc.DefaultClientDialOptions()...,
		)
		if err != nil {
			return fmt.Errorf("wait for origin health: %w", err)
		}
		if closeErr := originConn.Close(); closeErr != nil {
			log.Printf("close origin health connection: %v", closeErr)
		}
	}

	events := newEventStoreRecorder(eventStore)
	fetch := newOriginFetcher(nil)

	lifecycle, err := domain.NewLifecycle(cacheStore, fetch, manifest, origin, events, log.Printf)
	if err != nil {
		return fmt.Errorf("build lifecycle: %w", err)
	}
	installCtx, cancelInstall := context.WithTimeout(ctx, timeouts.Provision)
	err = lifecycle.Install(installCtx)
	cancelInstall()
	if err != nil {
		return fmt.Errorf("install release: %w", err)
	}
	if err := lifecycle.Activate(ctx); err != nil {
		return fmt.Errorf("activate release: %w", err)
	}

	view, err := domain.NewCacheView(cacheStore, manifest.Version)
	if err != nil {
		return fmt.Errorf("build cache view: %w", err)
	}
	classifier := domain.NewClassifier(manifest)

	tasks := keepalive.New(timeouts.Refresh, log.Printf)

	cacheFirst, err := domain.NewCacheFirst(view, fetch, events)
	if err != nil {
		return fmt.Errorf("build cache-first strategy: %w", err)
	}
	networkFirst, err := domain.NewNetworkFirst(view, fetch, events)
	if err != nil {
		return fmt.Errorf("build network-first strategy: %w", err)
	}
	revalidating, err := domain.NewStaleWhileRevalidate(view, fetch, tasks, events, log.Printf)
	if err != nil {
		return fmt.Errorf("build revalidating strategy: %w", err)
	}
	router, err := domain.NewRouter(classifier, cacheFirst, networkFirst, revalidating)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	coordinator := domain.NewCoordinator(events, log.Printf)
	if err := registerDefaultTasks(coordinator, router, origin, manifest); err != nil {
		return fmt.Errorf("register deferred tasks: %w", err)
	}
	notifier := newLogNotifier(log.Printf)

	handler := NewHandler(origin, router, cacheStore, eventStore, coordinator, notifier, manifest.Version, log.Printf)

	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	httpListener = netutil.LimitListener(httpListener, cfg.MaxConnections)

	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- httpServer.Serve(httpListener)
	}()

	healthListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.HealthPort))
	if err != nil {
		_ = httpServer.Close()
		<-httpErr
		return fmt.Errorf("listen on health port %d: %w", cfg.HealthPort, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("edge.gateway", grpc_health_v1.HealthCheckResponse_SERVING)

	grpcErr := make(chan error, 1)
	go func() {
		grpcErr <- grpcServer.Serve(healthListener)
	}()

	log.Printf("edge gateway serving version %s at %v, health at %v",
		manifest.Version, httpListener.Addr(), healthListener.Addr())

	<-ctx.Done()

	// Stop intake first, then let detached refreshes settle, then drop the
	// health surface.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := <-httpErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("http serve: %v", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancelDrain()
	if err := tasks.Drain(drainCtx); err != nil {
		log.Printf("drain background work: %v", err)
	}

	healthServer.Shutdown()
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeouts.Shutdown):
		grpcServer.Stop()
	}
	<-grpcErr

	return nil
}
