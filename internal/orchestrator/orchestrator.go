// Package orchestrator runs the resolve, compile, assemble and persist
// pipeline for every candidate artifact on a bounded worker pool.
//
// Workers share only read-only inputs: the Resource Index and the
// configuration. Each task returns a single Outcome on a channel drained by
// one collector goroutine, which owns progress reporting and the final state
// of every candidate. A failure in one artifact never stops the others.
package orchestrator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/specialistvlad/bundlegrid/internal/assembler"
	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/inmemorystore"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/persist"
	"github.com/specialistvlad/bundlegrid/internal/progress"
	"github.com/specialistvlad/bundlegrid/internal/report"
	"github.com/specialistvlad/bundlegrid/internal/resolver"
	"github.com/specialistvlad/bundlegrid/internal/statestore"
)

// Reasons recorded on Skipped outcomes.
const (
	ReasonDuplicate        = "already processed in this run"
	ReasonBundlingDisabled = "bundling disabled"
)

// Deliverer sends a persisted bundle to a remote endpoint.
type Deliverer interface {
	Deliver(ctx context.Context, b *model.Bundle) error
}

// Uploader copies a persisted bundle directory to object storage.
type Uploader interface {
	UploadDir(ctx context.Context, dir, prefix string) ([]string, error)
}

// Config controls a run.
type Config struct {
	// Workers bounds the number of concurrent tasks. Values <= 0 select
	// runtime.NumCPU().
	Workers   int
	OutputDir string
	// RefreshOnly resolves and compiles without writing bundles.
	RefreshOnly  bool
	Resolve      resolver.Options
	Assemble     assembler.Options
	UploadPrefix string
}

// Deps are the collaborators of a run. Delivery and Uploader are optional.
type Deps struct {
	Resolver  *resolver.Resolver
	Compiler  compiler.Compiler
	Assembler *assembler.Assembler
	Writer    *persist.Writer
	Delivery  Deliverer
	Uploader  Uploader
	Store     statestore.Store
	Progress  progress.Reporter
}

// Orchestrator runs candidates through the pipeline.
type Orchestrator struct {
	cfg  Config
	deps Deps
}

// New creates an Orchestrator, filling unset dependencies with defaults.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if deps.Resolver == nil {
		deps.Resolver = resolver.New()
	}
	if deps.Compiler == nil {
		deps.Compiler = compiler.NewEmbedded()
	}
	if deps.Assembler == nil {
		deps.Assembler = assembler.New()
	}
	if deps.Store == nil {
		deps.Store = inmemorystore.New()
	}
	if deps.Progress == nil {
		deps.Progress = progress.Nop{}
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Store returns the state store the run writes to.
func (o *Orchestrator) Store() statestore.Store {
	return o.deps.Store
}

// run holds the state of one Run call.
type run struct {
	idx resolver.Index
	// processed is keyed by Task.processedKey.
	processed sync.Map
}

// Run processes every candidate and returns the partitioned report. Only
// context cancellation ends the run early; remaining candidates are then
// reported as failed.
func (o *Orchestrator) Run(ctx context.Context, candidates []*model.SourceResource, idx resolver.Index) *report.RunReport {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	r := &run{idx: idx}

	prepared := make([]Task, len(candidates))
	for i, c := range candidates {
		prepared[i] = Task{Seq: i, Key: c.Identity(), Artifact: c}
	}
	for i, name := range outputNames(prepared) {
		if name != persist.DirName(prepared[i].Artifact.ArtifactName()) {
			logger.Warn("Artifact name already used by another candidate, writing to a distinct directory.",
				"artifact", prepared[i].Key, "name", prepared[i].Artifact.ArtifactName(), "dir", name)
		}
		prepared[i].OutputName = name
	}

	tasks := make(chan Task, len(prepared))
	cands := make([]report.Candidate, 0, len(prepared))
	for _, t := range prepared {
		cands = append(cands, report.Candidate{Seq: t.Seq, Key: t.Key, Name: t.Artifact.ArtifactName(), SourcePath: t.Artifact.SourcePath})
		if err := o.deps.Store.SetState(ctx, t.Key, model.StateDiscovered); err != nil {
			logger.Warn("Failed to record state.", "key", t.Key, "error", err)
		}
		tasks <- t
	}
	close(tasks)

	logger.Info("🚀 Starting bundling run...", "candidates", len(candidates), "workers", o.cfg.Workers, "refresh_only", o.cfg.RefreshOnly)
	o.deps.Progress.Start(ctx, len(candidates))

	outcomes := make(chan model.Outcome, o.cfg.Workers)
	var wg sync.WaitGroup
	wg.Add(o.cfg.Workers)
	for i := 0; i < o.cfg.Workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			o.worker(ctx, r, tasks, outcomes, workerID)
		}(i + 1)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	collected := make([]model.Outcome, 0, len(candidates))
	for out := range outcomes {
		collected = append(collected, out)
		if err := o.deps.Store.SetOutcome(ctx, out.Key, out); err != nil {
			logger.Warn("Failed to record outcome.", "key", out.Key, "error", err)
		}
		o.deps.Progress.Update(ctx, progress.Event{
			Done:  len(collected),
			Total: len(candidates),
			Key:   out.Key,
			Name:  out.Name,
			State: out.State.String(),
		})
	}
	o.deps.Progress.Finish(ctx)

	rep := report.Build(cands, collected, start, time.Now())
	logger.Info("🏁 Bundling run finished.",
		"bundled", len(rep.Bundled),
		"refreshed_not_bundled", len(rep.RefreshedNotBundled),
		"failed", len(rep.Failed),
		"duration", rep.Duration().String(),
	)
	return rep
}

// worker is the processing loop for a single concurrent worker.
func (o *Orchestrator) worker(ctx context.Context, r *run, tasks <-chan Task, outcomes chan<- model.Outcome, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for t := range tasks {
		taskCtx, _ := ctxlog.With(ctx, "workerID", workerID, "artifact", t.Key)
		outcomes <- o.process(taskCtx, r, t)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
