// Package resolver computes the dependency closure of a top-level artifact
// against a Resource Index.
//
// Resolution is best-effort: every reference that can be found is added to
// the result, and every one that cannot is recorded by its exact raw string.
// A reference that names a version only resolves to a resource carrying that
// version; anything else is reported as missing rather than substituted.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/canonical"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/dag"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// ErrPrimaryLibrary is wrapped when an artifact has the wrong number of
// primary library references.
var ErrPrimaryLibrary = errors.New("invalid primary library reference")

// source names the resolver in diagnostics.
const source = "resolver"

// Index is the read-only view the resolver needs. *index.Index satisfies it.
type Index interface {
	ByID(resourceType, id string) (*model.SourceResource, bool)
	ByCanonical(canonical string) (*model.SourceResource, bool)
	TestFixtures(resourceType, artifactName string) []*model.SourceResource
}

// Options control how far resolution reaches.
type Options struct {
	// IncludeTransitive follows references of every resolved resource. When
	// false only the artifact's direct references and those of its primary
	// library are resolved.
	IncludeTransitive bool
	// IncludeTestFixtures adds resources from the artifact's tests directory.
	IncludeTestFixtures bool
}

// MissingError lists the references an artifact could not resolve.
type MissingError struct {
	Artifact   string
	References []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("unresolved dependencies for %s: %s", e.Artifact, strings.Join(e.References, ", "))
}

// Resolver resolves artifacts. It holds no state between calls and is safe
// for concurrent use.
type Resolver struct{}

// New creates a Resolver.
func New() *Resolver {
	return &Resolver{}
}

// primaryBounds returns how many primary libraries an artifact type needs.
func primaryBounds(resourceType string) (min, max int) {
	switch resourceType {
	case model.TypeMeasure, model.TypePlanDefinition:
		return 1, 1
	default:
		return 0, 1
	}
}

// pending is a reference waiting to be looked up.
type pending struct {
	ref model.DependencyReference
	// from is the identity of the resource that holds the reference.
	from string
	// expand says whether the target's own references are followed.
	expand bool
}

// Resolve computes the closure of artifact. The returned result is owned by
// the caller.
func (r *Resolver) Resolve(ctx context.Context, artifact *model.SourceResource, idx Index, opts Options) *model.ResolutionResult {
	logger := ctxlog.FromContext(ctx).With("artifact", artifact.Identity())
	res := model.NewResolutionResult(artifact)
	res.Add(artifact)

	graph := dag.New()
	graph.AddNode(artifact.Identity())

	var primaries []model.DependencyReference
	for _, ref := range artifact.References {
		if ref.Primary {
			primaries = append(primaries, ref)
		}
	}
	if min, max := primaryBounds(artifact.ResourceType); len(primaries) < min || len(primaries) > max {
		res.Err = fmt.Errorf("%w: %s has %d primary library references, expected %s",
			ErrPrimaryLibrary, artifact.Identity(), len(primaries), boundsText(min, max))
		logger.Warn("Artifact cannot be resolved.", "error", res.Err)
		return res
	}

	queue := make([]pending, 0, len(artifact.References))
	for _, ref := range artifact.References {
		queue = append(queue, pending{ref: ref, from: artifact.Identity(), expand: opts.IncludeTransitive || ref.Primary})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		item := queue[0]
		queue = queue[1:]

		target, err := lookup(idx, item.ref)
		if err != nil {
			r.unresolved(ctx, res, item.ref, err)
			continue
		}

		id := target.Identity()
		if id == artifact.Identity() {
			logger.Debug("Ignoring self reference.", "reference", item.ref.Raw)
			continue
		}
		graph.AddNode(id)
		if id != item.from {
			// Both nodes exist, so the only possible error is a self edge,
			// which is excluded above.
			_ = graph.AddEdge(id, item.from)
		}
		if item.ref.Primary && item.from == artifact.Identity() {
			res.PrimaryLibrary = target
		}
		if !res.Add(target) {
			continue
		}
		logger.Debug("Resolved dependency.", "reference", item.ref.Raw, "identity", id, "path", target.SourcePath)

		if !item.expand {
			continue
		}
		for _, next := range target.References {
			// Terminology is a leaf for logic dependencies.
			if target.IsTerminology() && !next.Kind.IsTerminology() {
				continue
			}
			queue = append(queue, pending{ref: next, from: id, expand: opts.IncludeTransitive})
		}
	}

	if err := graph.DetectCycles(); err != nil {
		res.Info(source, fmt.Sprintf("dependency cycle: %v", err))
		logger.Info("Dependency cycle found, each resource is included once.", "detail", err)
	}
	res.Order = libraryOrder(graph, res)

	if opts.IncludeTestFixtures {
		for _, f := range idx.TestFixtures(artifact.ResourceType, artifact.ArtifactName()) {
			if res.Add(f) {
				res.Fixtures = append(res.Fixtures, f)
			}
		}
	}

	if res.HasMissing() {
		logger.Warn("Artifact has unresolved dependencies.", "missing", res.Missing())
	}
	return res
}

func (r *Resolver) unresolved(ctx context.Context, res *model.ResolutionResult, ref model.DependencyReference, err error) {
	logger := ctxlog.FromContext(ctx)
	var mismatch *versionMismatchError
	if errors.As(err, &mismatch) {
		logger.Warn("Dependency version mismatch, treating as unresolved.",
			"reference", ref.Raw, "found_version", mismatch.found, "source", mismatch.path)
		res.Warn(source, mismatch.Error())
	}
	if ref.Optional {
		logger.Debug("Optional dependency not available locally.", "reference", ref.Raw)
		return
	}
	res.AddMissing(ref.Raw)
}

// libraryOrder lists resolved libraries with dependencies first. With a
// cycle the order falls back to sorted identities.
func libraryOrder(graph *dag.Graph, res *model.ResolutionResult) []string {
	isLibrary := func(id string) bool {
		r, ok := res.Resolved[id]
		return ok && r.ResourceType == model.TypeLibrary
	}

	var out []string
	if order, err := graph.TopologicalOrder(); err == nil {
		for _, id := range order {
			if isLibrary(id) {
				out = append(out, id)
			}
		}
		return out
	}
	for id := range res.Resolved {
		if isLibrary(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func boundsText(min, max int) string {
	if min == max {
		return fmt.Sprintf("exactly %d", min)
	}
	return fmt.Sprintf("%d to %d", min, max)
}

// errNotFound is returned by lookup when no candidate exists.
var errNotFound = errors.New("not found")

type versionMismatchError struct {
	ref   string
	found string
	path  string
}

func (e *versionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch for %s: only version %q is available (%s)", e.ref, e.found, e.path)
}

// lookup resolves one reference: canonical url first, then by id. A
// requested version must match exactly.
func lookup(idx Index, ref model.DependencyReference) (*model.SourceResource, error) {
	parsed, err := canonical.Parse(ref.Raw)
	if err != nil {
		return nil, err
	}
	wantType := ref.Kind.String()

	var candidate *model.SourceResource
	if parsed.IsURL() {
		if parsed.Version != "" {
			if r, ok := idx.ByCanonical(parsed.String()); ok && r.ResourceType == wantType {
				return r, nil
			}
		}
		if r, ok := idx.ByCanonical(parsed.Base); ok && r.ResourceType == wantType {
			candidate = r
		}
	}

	if candidate == nil && parsed.ID != "" {
		typ := parsed.ResourceType
		if typ == "" {
			typ = wantType
		}
		if r, ok := idx.ByID(typ, parsed.ID); ok {
			candidate = r
		}
	}

	if candidate == nil {
		return nil, errNotFound
	}
	if parsed.Version != "" && candidate.Version != parsed.Version {
		return nil, &versionMismatchError{ref: ref.Raw, found: candidate.Version, path: candidate.SourcePath}
	}
	return candidate, nil
}
