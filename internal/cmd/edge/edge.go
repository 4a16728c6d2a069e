// Package edge parses edge command flags and launches the gateway runtime.
package edge

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/veldtmaps/edge/internal/platform/cmd"
	edgeserver "github.com/veldtmaps/edge/internal/services/edge/app"
)

// Config holds edge command configuration.
type Config struct {
	HTTPAddr         string        `env:"VELDT_EDGE_HTTP_ADDR" envDefault:":8080"`
	HealthPort       int           `env:"VELDT_EDGE_HEALTH_PORT" envDefault:"8090"`
	OriginURL        string        `env:"VELDT_EDGE_ORIGIN_URL"`
	OriginHealthAddr string        `env:"VELDT_EDGE_ORIGIN_HEALTH_ADDR"`
	ManifestPath     string        `env:"VELDT_EDGE_MANIFEST_PATH" envDefault:"manifest.json"`
	CacheDBPath      string        `env:"VELDT_EDGE_CACHE_DB_PATH" envDefault:"data/edge-cache.db"`
	EventsDBPath     string        `env:"VELDT_EDGE_EVENTS_DB_PATH" envDefault:"data/edge-events.db"`
	MaxConnections   int           `env:"VELDT_EDGE_MAX_CONNECTIONS" envDefault:"512"`
	GRPCDialTimeout  time.Duration `env:"VELDT_EDGE_DIAL_TIMEOUT" envDefault:"2s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "The gateway HTTP listen address")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The gateway health gRPC server port")
	fs.StringVar(&cfg.OriginURL, "origin-url", cfg.OriginURL, "The upstream origin base URL")
	fs.StringVar(&cfg.OriginHealthAddr, "origin-health-addr", cfg.OriginHealthAddr, "Optional origin gRPC health address to wait for before provisioning")
	fs.StringVar(&cfg.ManifestPath, "manifest", cfg.ManifestPath, "The delivery manifest path")
	fs.StringVar(&cfg.CacheDBPath, "cache-db-path", cfg.CacheDBPath, "The partition cache database path")
	fs.StringVar(&cfg.EventsDBPath, "events-db-path", cfg.EventsDBPath, "The delivery event database path")
	fs.IntVar(&cfg.MaxConnections, "max-connections", cfg.MaxConnections, "Maximum concurrent gateway connections")
	fs.DurationVar(&cfg.GRPCDialTimeout, "dial-timeout", cfg.GRPCDialTimeout, "gRPC health dependency dial timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the gateway runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEdge, func(context.Context) error {
		return edgeserver.Run(ctx, edgeserver.RuntimeConfig{
			HTTPAddr:         cfg.HTTPAddr,
			HealthPort:       cfg.HealthPort,
			OriginURL:        cfg.OriginURL,
			OriginHealthAddr: cfg.OriginHealthAddr,
			ManifestPath:     cfg.ManifestPath,
			CacheDBPath:      cfg.CacheDBPath,
			EventsDBPath:     cfg.EventsDBPath,
			MaxConnections:   cfg.MaxConnections,
			GRPCDialTimeout:  cfg.GRPCDialTimeout,
		})
	})
}
