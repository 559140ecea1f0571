package cli

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cityposter/pkg/buildinfo"
	"github.com/matzehuels/cityposter/pkg/cache"
	"github.com/matzehuels/cityposter/pkg/config"
	"github.com/matzehuels/cityposter/pkg/errors"
	"github.com/matzehuels/cityposter/pkg/fonts"
	"github.com/matzehuels/cityposter/pkg/integrations"
	"github.com/matzehuels/cityposter/pkg/integrations/nominatim"
	"github.com/matzehuels/cityposter/pkg/integrations/overpass"
	"github.com/matzehuels/cityposter/pkg/pipeline"
	"github.com/matzehuels/cityposter/pkg/storage"
	"github.com/matzehuels/cityposter/pkg/theme"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "cityposter"

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

	// ConfigPath is the --config flag; empty reads cityposter.toml if present.
	ConfigPath string

	cfgOnce sync.Once
	cfg     config.Config
	cfgErr  error
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// verbose reports whether debug logging is enabled.
func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Cityposter renders minimalist city map posters",
		Long:         `Cityposter turns OpenStreetMap streets, water and parks around a city into a styled, print-ready poster.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default ./"+config.DefaultFile+" if present)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.themesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// config loads the configuration once per process.
func (c *CLI) config() (config.Config, error) {
	c.cfgOnce.Do(func() {
		c.cfg, c.cfgErr = config.Load(c.ConfigPath)
	})
	return c.cfg, c.cfgErr
}

// =============================================================================
// Runner Factory
// =============================================================================

// closers releases what a factory opened, in reverse order.
type closers []func()

func (cs closers) Close() {
	for i := len(cs) - 1; i >= 0; i-- {
		cs[i]()
	}
}

// newCache opens the configured response cache. A shared redis client is
// used when one is given.
func newCache(ctx context.Context, cfg config.Config, rdb *redis.Client, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		if rdb != nil {
			return cache.NewRedisCacheFromClient(rdb, cfg.Redis.Prefix+"cache:"), nil
		}
		return cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix+"cache:")
	default:
		return cache.NewFileCache(cfg.Cache.Dir)
	}
}

// runnerDeps are the pieces a pipeline runner is assembled from.
type runnerDeps struct {
	store   storage.Store
	redis   *redis.Client
	noCache bool
	logger  *log.Logger
}

// newRunner wires the geocoder, map-data provider, themes, fonts and store
// into a pipeline runner. The returned closers release the cache.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, d runnerDeps) (*pipeline.Runner, closers, error) {
	var cs closers

	backend, err := newCache(ctx, cfg, d.redis, d.noCache)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal, err, "open %s cache", cfg.Cache.Backend)
	}
	cs = append(cs, func() { _ = backend.Close() })

	network, err := overpass.ParseNetwork(cfg.Overpass.Network)
	if err != nil {
		cs.Close()
		return nil, nil, err
	}

	userAgent := cfg.Geocoder.UserAgent
	if userAgent == "" {
		userAgent = integrations.UserAgent()
	}
	geocoder := nominatim.NewClient(backend, cfg.Geocoder.BaseURL, userAgent, cfg.Geocoder.CacheTTL.Duration)
	provider := overpass.NewClient(backend, cfg.Overpass.BaseURL, network, cfg.Overpass.Timeout.Duration, cfg.Overpass.CacheTTL.Duration)

	fontSet, err := fonts.Load(cfg.Paths.Fonts)
	if err != nil {
		cs.Close()
		return nil, nil, err
	}
	if fontSet.Source(fonts.Bold) == fonts.SourceEmbedded {
		c.Logger.Debug("Roboto not found, using embedded fonts", "dir", cfg.Paths.Fonts)
	}

	store := d.store
	if store == nil {
		store = storage.NewFileStore(cfg.Paths.Posters)
	}
	logger := d.logger
	if logger == nil {
		logger = c.Logger
	}

	runner := pipeline.NewRunner(geocoder, provider, theme.NewResolver(cfg.Paths.Themes), store, logger)
	runner.Fonts = fontSet
	if cfg.Render.Concurrency > 0 {
		runner.Concurrency = cfg.Render.Concurrency
	}
	return runner, cs, nil
}
