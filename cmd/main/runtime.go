package main

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/dirneetapp/carta2026.io/internal/config"
	"github.com/dirneetapp/carta2026.io/internal/container"
	"github.com/dirneetapp/carta2026.io/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// runtime is bound into every command's Run method. The container is built lazily
// so that --help and argument errors never touch the database or Redis.
type runtime struct {
	ctx context.Context
	cfg *config.Config
	fs  afero.Fs
	out io.Writer

	app *container.Container
}

func newRuntime(ctx context.Context, configPath, logLevel string, fs afero.Fs, out io.Writer) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	configureLogging(cfg.Log)
	return &runtime{ctx: ctx, cfg: cfg, fs: fs, out: out}, nil
}

func configureLogging(cfg config.LogConfig) {
	log.SetOutput(os.Stderr)
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// container builds the dependency graph and loads the catalog.
func (r *runtime) container() (*container.Container, error) {
	if r.app != nil {
		return r.app, nil
	}
	app, err := container.NewWithFs(r.ctx, r.cfg, r.fs)
	if err != nil {
		return nil, err
	}
	r.app = app
	return app, nil
}

// loaded is container plus a catalog load. A corrupt catalog is reported and
// replaced by an empty one.
func (r *runtime) loaded() (*container.Container, error) {
	app, err := r.container()
	if err != nil {
		return nil, err
	}
	if err := app.Service.Load(r.ctx); err != nil {
		if !errors.Is(err, domain.ErrCorruptData) {
			return nil, err
		}
		log.Warnf("❌ %v; starting from an empty catalog", err)
	}
	return app, nil
}

func (r *runtime) Close() {
	if r.app != nil {
		if err := r.app.Close(); err != nil {
			log.Errorf("❌ %v", err)
		}
		r.app = nil
	}
}
