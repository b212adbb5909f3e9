package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/bundlegrid/internal/assembler"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/delivery"
	"github.com/specialistvlad/bundlegrid/internal/index"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/objectstore"
	"github.com/specialistvlad/bundlegrid/internal/orchestrator"
	"github.com/specialistvlad/bundlegrid/internal/persist"
	"github.com/specialistvlad/bundlegrid/internal/progress"
	"github.com/specialistvlad/bundlegrid/internal/report"
	"github.com/specialistvlad/bundlegrid/internal/reportstore"
	"github.com/specialistvlad/bundlegrid/internal/resolver"
)

// Run executes one bundling run. Configuration, index and output errors abort
// the run; per-artifact failures are reported and surface as
// ErrArtifactsFailed.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	cfg := a.config

	if err := a.healthCheckServer(); err != nil {
		return err
	}
	defer func() { _ = a.closeHealthCheckServer() }()

	idx, err := a.cache.Build(ctx, index.Params{
		Roots:        cfg.Roots,
		FHIRVersion:  cfg.FHIRVersion,
		Recursive:    cfg.Recursive,
		IncludeTests: cfg.IncludeTestFixtures,
	})
	if err != nil {
		return fmt.Errorf("failed to build resource index: %w", err)
	}

	candidates := idx.Resources(cfg.ArtifactType)
	if len(candidates) == 0 {
		a.logger.Warn("No artifacts found, nothing to bundle.", "type", cfg.ArtifactType)
	}

	deps, err := a.dependencies(ctx)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Config{
		Workers:      cfg.Workers,
		OutputDir:    cfg.OutputDir,
		RefreshOnly:  cfg.RefreshOnly,
		UploadPrefix: cfg.UploadPrefix,
		Resolve: resolver.Options{
			IncludeTransitive:   cfg.IncludeTransitive,
			IncludeTestFixtures: cfg.IncludeTestFixtures,
		},
		Assemble: assembler.Options{
			AddTimestamp: cfg.AddTimestamp,
			Identifier:   model.ParseIdentifier(cfg.Identifier),
		},
	}, deps)

	rep := orch.Run(ctx, candidates, idx)
	report.Render(a.outW, rep)

	if err := a.writeReport(rep); err != nil {
		return err
	}
	a.saveReport(ctx, rep)

	a.logger.Debug("App.Run method finished.")
	if rep.HasFailures() {
		return fmt.Errorf("%w: %d of %d", ErrArtifactsFailed, len(rep.Failed), rep.Total)
	}
	return nil
}

// dependencies builds the orchestrator collaborators selected by the
// configuration.
func (a *App) dependencies(ctx context.Context) (orchestrator.Deps, error) {
	cfg := a.config
	deps := orchestrator.Deps{Store: a.store}

	comp, err := compiler.New(cfg.CompilerKind, cfg.CompilerEndpoint)
	if err != nil {
		return deps, err
	}
	deps.Compiler = comp

	deps.Writer, err = persist.NewWriter(a.codecs, cfg.Encoding)
	if err != nil {
		return deps, err
	}

	if cfg.DeliveryEndpoint != "" {
		mode, err := delivery.ParseMode(cfg.DeliveryMode)
		if err != nil {
			return deps, err
		}
		opts := make([]delivery.Option, 0, len(cfg.DeliveryHeaders))
		for k, v := range cfg.DeliveryHeaders {
			opts = append(opts, delivery.WithHeader(k, v))
		}
		deps.Delivery = delivery.New(cfg.DeliveryEndpoint, mode, opts...)
		a.logger.Info("Delivery enabled.", "endpoint", cfg.DeliveryEndpoint, "mode", string(mode))
	}

	if cfg.ObjectStore.Endpoint != "" {
		up, err := objectstore.New(cfg.ObjectStore)
		if err != nil {
			return deps, fmt.Errorf("failed to configure object storage: %w", err)
		}
		deps.Uploader = up
		a.logger.Info("Object storage upload enabled.", "endpoint", cfg.ObjectStore.Endpoint, "bucket", cfg.ObjectStore.Bucket)
	}

	reporters := progress.Multi{progress.NewLogReporter()}
	if cfg.SocketIOURL != "" {
		sock, err := progress.DialSocketIO(ctx, progress.SocketConfig{
			URL:                cfg.SocketIOURL,
			Namespace:          cfg.SocketIONamespace,
			InsecureSkipVerify: cfg.SocketIOInsecure,
		})
		if err != nil {
			a.logger.Warn("Progress push disabled.", "error", err)
		} else {
			reporters = append(reporters, sock)
		}
	}
	deps.Progress = reporters

	return deps, nil
}

// writeReport writes the JSON report next to the bundles.
func (a *App) writeReport(rep *report.RunReport) error {
	if err := os.MkdirAll(a.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory '%s': %w", a.config.OutputDir, err)
	}
	path := filepath.Join(a.config.OutputDir, ReportFileName)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file '%s': %w", path, err)
	}
	defer f.Close()
	if err := report.WriteJSON(f, rep); err != nil {
		return err
	}
	a.logger.Info("Run report written.", "path", path)
	return nil
}

// saveReport records the run in PostgreSQL when a database is configured.
// Failures are logged only.
func (a *App) saveReport(ctx context.Context, rep *report.RunReport) {
	if a.config.DatabaseURL == "" {
		return
	}
	store, err := reportstore.Open(ctx, a.config.DatabaseURL)
	if err != nil {
		a.logger.Warn("Run history not saved.", "error", err)
		return
	}
	defer store.Close()
	if err := store.Save(ctx, rep); err != nil {
		a.logger.Warn("Run history not saved.", "error", err)
		return
	}
	a.logger.Info("Run history saved.", "run_id", rep.RunID)
}
