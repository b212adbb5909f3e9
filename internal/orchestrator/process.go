package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/specialistvlad/bundlegrid/internal/compiler"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/persist"
	"github.com/specialistvlad/bundlegrid/internal/resolver"
)

// process runs one task to a terminal outcome. It never panics.
func (o *Orchestrator) process(ctx context.Context, r *run, t Task) (out model.Outcome) {
	logger := ctxlog.FromContext(ctx)
	out = model.Outcome{
		Seq:        t.Seq,
		Key:        t.Key,
		Name:       t.Artifact.ArtifactName(),
		SourcePath: t.Artifact.SourcePath,
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("Task panicked.", "panic", p)
			out.State = model.StateFailed
			out.Err = fmt.Errorf("panic while processing %s: %v\n%s", t.Key, p, debug.Stack())
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(out, err)
	}
	if _, seen := r.processed.LoadOrStore(t.processedKey(), t.Seq); seen {
		logger.Info("Artifact already processed in this run, skipping.", "path", t.Artifact.SourcePath)
		out.State = model.StateSkipped
		out.Reason = ReasonDuplicate
		return out
	}

	o.setState(ctx, t.Key, model.StateResolving)
	res := o.deps.Resolver.Resolve(ctx, t.Artifact, r.idx, o.cfg.Resolve)
	if res.PrimaryLibrary != nil {
		out.Library = res.PrimaryLibrary.ArtifactName()
	}
	out.Diagnostics = append(out.Diagnostics, res.Diagnostics...)
	switch {
	case res.Err != nil && errors.Is(res.Err, resolver.ErrPrimaryLibrary):
		out.State = model.StateMissingDependency
		out.Err = res.Err
		return out
	case res.Err != nil:
		return failed(out, res.Err)
	case res.HasMissing():
		out.State = model.StateMissingDependency
		out.Err = &resolver.MissingError{Artifact: t.Key, References: res.Missing()}
		return out
	}
	o.setState(ctx, t.Key, model.StateResolved)

	files, err := o.compile(ctx, res, &out)
	if err != nil {
		return failed(out, err)
	}
	if model.HasErrors(out.Diagnostics) {
		out.State = model.StateCompilerError
		out.Err = fmt.Errorf("compilation reported errors for %s", t.Key)
		return out
	}

	if o.cfg.RefreshOnly {
		out.State = model.StateSkipped
		out.Reason = ReasonBundlingDisabled
		return out
	}

	bundle, err := o.deps.Assembler.Assemble(res, o.cfg.Assemble)
	if err != nil {
		return failed(out, err)
	}
	if t.OutputName != "" && t.OutputName != persist.DirName(bundle.ArtifactName) {
		bundle.ArtifactName = t.OutputName
		bundle.ID = t.OutputName + "-bundle"
	}
	files = append(persist.SourceFiles(bundle), files...)
	dir, err := o.deps.Writer.Write(ctx, bundle, files, o.cfg.OutputDir)
	if err != nil {
		return failed(out, err)
	}
	out.BundlePath = dir
	out.State = model.StatePersisted
	logger.Info("Bundle persisted.", "dir", dir, "entries", len(bundle.Entries))

	out.DeliveryErr = o.deliver(ctx, bundle, dir)
	return out
}

// compile runs the compiler over every library of the closure with logic
// content, primary library first. It returns the CQL and ELM files to write
// next to the bundle.
func (o *Orchestrator) compile(ctx context.Context, res *model.ResolutionResult, out *model.Outcome) ([]persist.LooseFile, error) {
	logger := ctxlog.FromContext(ctx)

	libs := make([]*model.SourceResource, 0, len(res.Order)+1)
	if res.PrimaryLibrary != nil {
		libs = append(libs, res.PrimaryLibrary)
	}
	for _, id := range res.Order {
		if lib := res.Resolved[id]; lib != nil && lib != res.PrimaryLibrary {
			libs = append(libs, lib)
		}
	}

	var files []persist.LooseFile
	for _, lib := range libs {
		src, err := compiler.SourceFrom(lib)
		if err != nil {
			return nil, err
		}
		if src.Empty() {
			continue
		}
		result, err := o.deps.Compiler.Compile(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", lib.Identity(), err)
		}
		for _, d := range result.Diagnostics {
			if d.Library == "" {
				d.Library = src.Name
			}
			out.Diagnostics = append(out.Diagnostics, d)
			switch d.Severity {
			case model.SeverityError:
				logger.Error("Compiler error.", "library", d.Library, "line", d.Line, "message", d.Message)
			case model.SeverityWarning:
				logger.Warn("Compiler warning.", "library", d.Library, "line", d.Line, "message", d.Message)
			default:
				logger.Debug("Compiler info.", "library", d.Library, "message", d.Message)
			}
		}

		if len(src.CQL) > 0 {
			files = append(files, persist.LooseFile{Name: src.Name + ".cql", ResourceType: model.TypeLibrary, Data: src.CQL})
		}
		if len(result.ELM) > 0 {
			files = append(files, persist.LooseFile{Name: src.Name + "-elm.json", ResourceType: model.TypeLibrary, Data: result.ELM})
		}
	}
	return files, nil
}

// deliver transmits and uploads a persisted bundle. Failures are returned,
// not fatal: the bundle on disk is complete either way.
func (o *Orchestrator) deliver(ctx context.Context, b *model.Bundle, dir string) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	if o.deps.Delivery != nil {
		if err := o.deps.Delivery.Deliver(ctx, b); err != nil {
			logger.Warn("Bundle delivery failed.", "error", err)
			errs = append(errs, err)
		}
	}
	if o.deps.Uploader != nil {
		if _, err := o.deps.Uploader.UploadDir(ctx, dir, o.cfg.UploadPrefix); err != nil {
			logger.Warn("Bundle upload failed.", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) setState(ctx context.Context, key string, state model.ArtifactState) {
	if err := o.deps.Store.SetState(ctx, key, state); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record state.", "key", key, "error", err)
	}
}

func failed(out model.Outcome, err error) model.Outcome {
	out.State = model.StateFailed
	out.Err = err
	return out
}
