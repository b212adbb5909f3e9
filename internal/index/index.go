package index

import (
	"context"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Index is the set of views over every resource found in the source tree.
type Index struct {
	fhirVersion string

	byID     map[string]map[string]*model.SourceResource
	byURL    map[string]*model.SourceResource
	pathOf   map[string]map[string]string
	byType   map[string][]*model.SourceResource
	fixtures map[string][]*model.SourceResource

	// versions collects every resource sharing a url so the versionless key
	// can point at the highest version.
	versions map[string][]*model.SourceResource

	size    int
	skipped int
}

func newIndex(fhirVersion string) *Index {
	return &Index{
		fhirVersion: fhirVersion,
		byID:        make(map[string]map[string]*model.SourceResource),
		byURL:       make(map[string]*model.SourceResource),
		pathOf:      make(map[string]map[string]string),
		byType:      make(map[string][]*model.SourceResource),
		fixtures:    make(map[string][]*model.SourceResource),
		versions:    make(map[string][]*model.SourceResource),
	}
}

// FHIRVersion is the schema version the index was built for.
func (idx *Index) FHIRVersion() string { return idx.fhirVersion }

// Len is the number of indexed resources, fixtures excluded.
func (idx *Index) Len() int { return idx.size }

// Skipped is the number of files that failed to parse.
func (idx *Index) Skipped() int { return idx.skipped }

// ByID looks a resource up by type and logical id.
func (idx *Index) ByID(resourceType, id string) (*model.SourceResource, bool) {
	r, ok := idx.byID[resourceType][id]
	return r, ok
}

// ByCanonical looks a resource up by `url|version`, or by bare url, which
// resolves to the highest version present.
func (idx *Index) ByCanonical(canonical string) (*model.SourceResource, bool) {
	r, ok := idx.byURL[canonical]
	return r, ok
}

// PathOf returns the source path of a resource.
func (idx *Index) PathOf(resourceType, id string) (string, bool) {
	p, ok := idx.pathOf[resourceType][id]
	return p, ok
}

// Resources returns every indexed resource of a type, sorted by source path.
func (idx *Index) Resources(resourceType string) []*model.SourceResource {
	src := idx.byType[resourceType]
	out := make([]*model.SourceResource, len(src))
	copy(out, src)
	return out
}

// TestFixtures returns the fixtures stored under tests/<type>/<name>.
func (idx *Index) TestFixtures(resourceType, artifactName string) []*model.SourceResource {
	return idx.fixtures[fixtureKey(resourceType, artifactName)]
}

func fixtureKey(resourceType, name string) string {
	return strings.ToLower(resourceType) + "/" + name
}

// add places a parsed resource into every view. Earlier resources win on
// duplicate ids or canonicals.
func (idx *Index) add(ctx context.Context, r *model.SourceResource) {
	logger := ctxlog.FromContext(ctx)

	if r.ID != "" {
		if idx.byID[r.ResourceType] == nil {
			idx.byID[r.ResourceType] = make(map[string]*model.SourceResource)
			idx.pathOf[r.ResourceType] = make(map[string]string)
		}
		// A shadowed duplicate is not indexed under any view.
		if prev, dup := idx.byID[r.ResourceType][r.ID]; dup {
			logger.Warn("Duplicate resource id, keeping the first one found.",
				"identity", r.Identity(), "kept", prev.SourcePath, "ignored", r.SourcePath)
			return
		}
		idx.byID[r.ResourceType][r.ID] = r
		idx.pathOf[r.ResourceType][r.ID] = r.SourcePath
	}

	idx.size++
	idx.byType[r.ResourceType] = append(idx.byType[r.ResourceType], r)

	if r.URL != "" {
		if r.Version != "" {
			key := r.Canonical()
			if prev, dup := idx.byURL[key]; dup {
				logger.Warn("Duplicate canonical, keeping the first one found.",
					"canonical", key, "kept", prev.SourcePath, "ignored", r.SourcePath)
				return
			}
			idx.byURL[key] = r
		}
		idx.versions[r.URL] = append(idx.versions[r.URL], r)
	}
}

func (idx *Index) addFixture(resourceType, name string, r *model.SourceResource) {
	key := fixtureKey(resourceType, name)
	idx.fixtures[key] = append(idx.fixtures[key], r)
}

// finalize points every versionless url at its highest version and sorts the
// per-type lists.
func (idx *Index) finalize() {
	for url, candidates := range idx.versions {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if compareVersions(c.Version, best.Version) > 0 {
				best = c
			}
		}
		idx.byURL[url] = best
	}
	idx.versions = nil

	for _, list := range idx.byType {
		sort.Slice(list, func(i, j int) bool { return list[i].SourcePath < list[j].SourcePath })
	}
	for _, list := range idx.fixtures {
		sort.Slice(list, func(i, j int) bool { return list[i].SourcePath < list[j].SourcePath })
	}
}

// compareVersions orders versions semantically when both parse, and
// lexically otherwise. An empty version sorts lowest.
func compareVersions(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}
