package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/cityposter/pkg/config"
	"github.com/matzehuels/cityposter/pkg/jobs"
	"github.com/matzehuels/cityposter/pkg/observability"
	"github.com/matzehuels/cityposter/pkg/server"
	"github.com/matzehuels/cityposter/pkg/storage"
)

const storeCloseTimeout = 5 * time.Second

// serveCommand runs the web form and API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web form and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("workers") {
				cfg.Server.Workers = workers
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.Default().Server.Addr, "listen address")
	cmd.Flags().IntVar(&workers, "workers", config.Default().Server.Workers, "posters rendered concurrently")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	logger := loggerFromContext(ctx)
	observability.NewLogHooks(logger).Register()
	defer observability.Reset()

	var cs closers
	defer func() { cs.Close() }()

	var rdb *redis.Client
	if cfg.Cache.Backend == config.CacheRedis || cfg.Server.Jobs == config.JobsRedis {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		cs = append(cs, func() { _ = rdb.Close() })
	}

	store, storeName, err := c.serverStore(ctx, cfg, &cs)
	if err != nil {
		return err
	}

	var registry jobs.Registry
	if cfg.Server.Jobs == config.JobsRedis {
		registry = jobs.NewRedisRegistryFromClient(rdb, cfg.Redis.Prefix+"job:", cfg.Server.JobTTL.Duration)
	} else {
		registry = jobs.NewMemoryRegistry(cfg.Server.JobTTL.Duration)
	}
	cs = append(cs, func() { _ = registry.Close() })

	runner, runnerClosers, err := c.newRunner(ctx, cfg, runnerDeps{store: store, redis: rdb, logger: logger})
	if err != nil {
		return err
	}
	cs = append(cs, runnerClosers.Close)

	printInfo("Serving %s", StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
	printKeyValue("workers", strconv.Itoa(cfg.Server.Workers))
	printKeyValue("jobs", cfg.Server.Jobs)
	printKeyValue("store", storeName)
	printKeyValue("cache", cfg.Cache.Backend)

	srv := server.New(runner, registry, server.Options{
		Workers:     cfg.Server.Workers,
		PreviewSize: cfg.Server.PreviewSize,
		Logger:      logger,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// serverStore selects GridFS when a mongo URI is configured, else the
// posters directory.
func (c *CLI) serverStore(ctx context.Context, cfg config.Config, cs *closers) (storage.Store, string, error) {
	if cfg.Mongo.URI == "" {
		return storage.NewFileStore(cfg.Paths.Posters), cfg.Paths.Posters, nil
	}
	store, err := storage.NewGridFSStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Bucket)
	if err != nil {
		return nil, "", err
	}
	*cs = append(*cs, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
		defer cancel()
		_ = store.Close(closeCtx)
	})
	return store, fmt.Sprintf("gridfs %s.%s", cfg.Mongo.Database, cfg.Mongo.Bucket), nil
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
