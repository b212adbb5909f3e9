package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/index"
	"github.com/specialistvlad/bundlegrid/internal/inmemorystore"
	"github.com/specialistvlad/bundlegrid/internal/statestore"
)

// ErrArtifactsFailed is returned by Run when at least one artifact ended in
// the failed bucket.
var ErrArtifactsFailed = errors.New("one or more artifacts failed")

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config

	codecs *codec.Registry
	cache  *index.Cache
	store  statestore.Store

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, index cache and
// state store.
func NewApp(outW io.Writer, cfg *Config) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	codecs := codec.Default()
	cache, err := index.NewCache(codecs, index.DefaultParseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}

	return &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: cfg,
		codecs: codecs,
		cache:  cache,
		store:  inmemorystore.New(),
	}, nil
}

// Store returns the state store the run writes to. This is primarily for testing.
func (a *App) Store() statestore.Store {
	return a.store
}

// Cache returns the index cache. This is primarily for testing.
func (a *App) Cache() *index.Cache {
	return a.cache
}
