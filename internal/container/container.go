package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dirneetapp/carta2026.io/internal/assets"
	"github.com/dirneetapp/carta2026.io/internal/client"
	"github.com/dirneetapp/carta2026.io/internal/config"
	"github.com/dirneetapp/carta2026.io/internal/metrics"
	"github.com/dirneetapp/carta2026.io/internal/queue"
	"github.com/dirneetapp/carta2026.io/internal/repository"
	"github.com/dirneetapp/carta2026.io/internal/service"
	"github.com/dirneetapp/carta2026.io/internal/site"
	"github.com/dirneetapp/carta2026.io/internal/state"
	"github.com/dirneetapp/carta2026.io/internal/store"
	"github.com/dirneetapp/carta2026.io/internal/watch"

	"github.com/jackc/pgx/v5/pgxpool"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Container holds all initialized components
type Container struct {
	Config       *config.Config
	Fs           afero.Fs
	Repository   repository.CatalogRepository
	ImageClient  client.ImageClient
	Resolver     *assets.Resolver
	Store        *store.CatalogStore
	Renderer     site.Renderer
	Writer       *site.Writer
	Queue        queue.Queue
	StateManager state.StateManager
	Metrics      *metrics.PrometheusRecorder

	Service *service.Service

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewWithFs(ctx, cfg, afero.NewOsFs())
}

// NewWithFs is New on an explicit filesystem.
func NewWithFs(ctx context.Context, cfg *config.Config, fs afero.Fs) (*Container, error) {
	container := &Container{
		Config:  cfg,
		Fs:      fs,
		Metrics: metrics.NewPrometheusRecorder(prom.NewRegistry()),
	}

	// Initialize repository
	switch cfg.Catalog.Driver {
	case config.DriverPostgres:
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		container.db = db
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		container.Repository = repository.NewPostgresRepository(db, cfg.Catalog.Name)
		log.Info("✅ Connected to Postgres successfully")
	default:
		container.Repository = repository.NewFileRepository(fs, cfg.Catalog.Path)
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = rdb.Close()
			container.closeDB()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		container.Queue = queue.NewRedisQueue(rdb, cfg.Redis)
		container.StateManager = state.NewRedisStateManager(rdb, cfg.Redis.KeyPrefix, cfg.Site.OutputDir)
	} else {
		container.Queue = queue.NoopQueue{}
		container.StateManager = state.NewMemoryStateManager()
	}

	container.ImageClient = client.NewImageClient(cfg.Assets)
	container.Resolver = assets.NewResolver(fs, cfg.Site.OutputDir, container.ImageClient, container.Metrics)
	container.Store = store.New(container.Repository, container.Resolver)
	container.Renderer = site.NewRenderer(site.OptionsFromConfig(cfg.Site))
	container.Writer = site.NewWriter(fs, cfg.Site.OutputDir, cfg.Site.WriteWorkers)

	container.Service = service.NewService(
		container.Store,
		container.Renderer,
		container.Writer,
		container.Queue,
		container.StateManager,
		container.Metrics,
	)

	return container, nil
}

// Watch republishes on catalog changes until ctx is cancelled, serving metrics on
// metricsAddr when it is not empty.
func (c *Container) Watch(ctx context.Context, metricsAddr string) error {
	if _, err := c.Service.Sync(ctx, false); err != nil {
		log.Warnf("❌ Initial sync failed: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if c.Config.Catalog.Driver == config.DriverPostgres {
			return watch.Poll(ctx, c.Service, time.Duration(c.Config.Catalog.PollInterval)*time.Second)
		}
		w, err := watch.NewWatcher(c.Config.Catalog.Path, c.Service, 0)
		if err != nil {
			return err
		}
		return w.Run(ctx)
	})

	if metricsAddr != "" {
		server := &http.Server{
			Addr:              metricsAddr,
			Handler:           c.metricsMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Infof("📊 Serving metrics on %s/metrics", metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func (c *Container) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Metrics.Handler())
	return mux
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	c.closeDB()
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("failed to close Redis client: %w", err)
		}
	}

	log.Debug("Container shut down successfully")
	return nil
}

func (c *Container) closeDB() {
	if c.db != nil {
		c.db.Close()
	}
}
