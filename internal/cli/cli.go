// Package cli implements the depscout command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/depscout/depscout/internal/config"
	"github.com/depscout/depscout/pkg/buildinfo"
	"github.com/depscout/depscout/pkg/cache"
	"github.com/depscout/depscout/pkg/discovery"
	"github.com/depscout/depscout/pkg/lookup"
	"github.com/depscout/depscout/pkg/manifest"
	"github.com/depscout/depscout/pkg/registry"
	"github.com/depscout/depscout/pkg/registry/goproxy"
	"github.com/depscout/depscout/pkg/registry/maven"
	"github.com/depscout/depscout/pkg/registry/npm"
	"github.com/depscout/depscout/pkg/registry/nuget"
	"github.com/depscout/depscout/pkg/registry/pypi"
	"github.com/depscout/depscout/pkg/scan"
	"github.com/depscout/depscout/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "depscout"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "depscout",
		Short:        "Depscout scans repositories for dependency license risk",
		Long:         `Depscout clones a repository, discovers and parses its dependency manifests, resolves license information for every dependency through a cached document store with a discovery-service fallback, and reports a per-dependency risk assessment.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.scanCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Component Factory
// =============================================================================

// components bundles the wired pipeline pieces a command needs.
type components struct {
	Config  *config.Config
	Store   store.Store
	Cache   cache.Cache
	Lookup  *lookup.Service
	Scanner *scan.Scanner
}

// Close releases the store and cache backends.
func (c *components) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close(context.Background())
	}
}

// newComponents wires the document store, registry cache, discovery
// client, lookup service and scanner from the loaded configuration.
func (c *CLI) newComponents(ctx context.Context, configFile string, noCache bool) (*components, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	st, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := newCache(ctx, cfg, noCache)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}

	var disc lookup.Discoverer
	if cfg.DiscoveryURL != "" {
		disc = discovery.NewClient(cfg.DiscoveryURL, c.Logger)
	} else {
		c.Logger.Debug("no discovery endpoint configured, fallback tier disabled")
	}

	svc := lookup.NewService(st, disc, c.Logger)
	scanner := scan.NewScanner(
		scan.NewAcquirer(c.Logger),
		scan.NewResolver(svc, c.Logger),
		newRegistryResolver(backend, cfg.CacheTTL),
		st,
		c.Logger,
	)

	return &components{
		Config:  cfg,
		Store:   st,
		Cache:   backend,
		Lookup:  svc,
		Scanner: scanner,
	}, nil
}

func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.MongoURI == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewMongoStore(ctx, store.MongoConfig{
		URI:      cfg.MongoURI,
		Database: cfg.MongoDatabase,
	})
}

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	dir := cfg.CacheDir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// newRegistryResolver builds the latest-version resolver with one
// client per supported ecosystem, all sharing the cache backend.
func newRegistryResolver(backend cache.Cache, ttl time.Duration) *registry.Resolver {
	return registry.NewResolver(map[string]registry.VersionClient{
		manifest.EcosystemNPM:   npm.NewClient(backend, ttl),
		manifest.EcosystemPyPI:  pypi.NewClient(backend, ttl),
		manifest.EcosystemMaven: maven.NewClient(backend, ttl),
		manifest.EcosystemNuGet: nuget.NewClient(backend, ttl),
		manifest.EcosystemGo:    goproxy.NewClient(backend, ttl),
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/depscout/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
