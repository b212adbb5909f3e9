// Package assembler packages a resolution result into a transaction bundle.
//
// Entries are grouped and ordered deterministically: the artifact, its
// primary library, the remaining libraries with dependencies first, value
// sets, code systems and finally test fixtures. Two assemblies of the same
// result produce the same entries in the same order.
package assembler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// namespace seeds the name-based UUIDs used for synthetic ids.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/specialistvlad/bundlegrid"))

// Options control the bundle container.
type Options struct {
	AddTimestamp bool
	Identifier   *model.Identifier
	// Now supplies the timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Assembler builds bundles. It is stateless and safe for concurrent use.
type Assembler struct{}

// New creates an Assembler.
func New() *Assembler {
	return &Assembler{}
}

// Assemble builds the bundle for a complete resolution. A result with an
// error or unresolved references is rejected.
func (a *Assembler) Assemble(res *model.ResolutionResult, opts Options) (*model.Bundle, error) {
	if res == nil || res.Artifact == nil {
		return nil, errors.New("resolution result has no artifact")
	}
	if res.Err != nil {
		return nil, fmt.Errorf("cannot assemble %s: %w", res.ArtifactID, res.Err)
	}
	if res.HasMissing() {
		return nil, fmt.Errorf("cannot assemble %s: unresolved references: %s",
			res.ArtifactID, strings.Join(res.Missing(), ", "))
	}

	name := res.Artifact.ArtifactName()
	b := &model.Bundle{
		ID:           name + "-bundle",
		ArtifactName: name,
		Identifier:   opts.Identifier,
	}
	if opts.AddTimestamp {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		ts := now().UTC()
		b.Timestamp = &ts
	}

	for _, r := range order(res) {
		b.Entries = append(b.Entries, entry(name, r))
	}
	return b, nil
}

// order lists the resolved resources in bundle order.
func order(res *model.ResolutionResult) []*model.SourceResource {
	placed := make(map[string]bool, len(res.Resolved))
	var out []*model.SourceResource
	place := func(r *model.SourceResource) {
		if r == nil {
			return
		}
		id := r.Identity()
		if placed[id] {
			return
		}
		if _, ok := res.Resolved[id]; !ok && r != res.Artifact {
			return
		}
		placed[id] = true
		out = append(out, r)
	}

	fixtures := make(map[string]bool, len(res.Fixtures))
	for _, f := range res.Fixtures {
		fixtures[f.Identity()] = true
	}

	place(res.Artifact)
	place(res.PrimaryLibrary)
	for _, id := range res.Order {
		place(res.Resolved[id])
	}

	for _, typ := range []string{model.TypeLibrary, model.TypeValueSet, model.TypeCodeSystem} {
		for _, r := range sorted(res.Resolved, func(r *model.SourceResource) bool {
			return !fixtures[r.Identity()] && r.ResourceType == typ
		}) {
			place(r)
		}
	}

	// Anything left over that is not a fixture, e.g. other artifact types
	// reached through depends-on.
	for _, r := range sorted(res.Resolved, func(r *model.SourceResource) bool { return !fixtures[r.Identity()] }) {
		place(r)
	}
	for _, r := range sorted(res.Resolved, func(r *model.SourceResource) bool { return fixtures[r.Identity()] }) {
		place(r)
	}
	return out
}

func sorted(m map[string]*model.SourceResource, keep func(*model.SourceResource) bool) []*model.SourceResource {
	ids := make([]string, 0, len(m))
	for id, r := range m {
		if keep(r) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]*model.SourceResource, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// entry builds the bundle entry for r. Resources without an id get a
// synthetic one; source documents are never modified.
func entry(artifactName string, r *model.SourceResource) model.Entry {
	e := model.Entry{Source: r, ResourceType: r.ResourceType, ID: r.ID, Resource: r.Document}
	if r.ID == "" {
		e.ID = SyntheticID(artifactName, r.SourcePath)
		e.Resource = r.Document.Clone()
		e.Resource["id"] = e.ID
	}
	return e
}

// SyntheticID derives a stable id for a resource that has none. The same
// artifact and source path always give the same id.
func SyntheticID(artifactName, sourcePath string) string {
	token := strings.ReplaceAll(uuid.NewSHA1(namespace, []byte(sourcePath)).String(), "-", "")
	return artifactName + "-" + token[:12]
}
