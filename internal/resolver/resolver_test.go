package resolver

import (
	"context"
	"testing"

	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/index"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildIndex writes docs (relative path -> document) and indexes them.
func buildIndex(t *testing.T, docs map[string]map[string]any) *index.Index {
	t.Helper()
	root := t.TempDir()
	files := make(map[string]string, len(docs))
	for name, doc := range docs {
		files[name] = testutil.JSON(t, doc)
	}
	testutil.WriteFiles(t, root, files)

	ctx, _ := testutil.Context(t)
	cache, err := index.NewCache(codec.Default(), 0)
	require.NoError(t, err)
	idx, err := cache.Build(ctx, index.Params{Roots: []string{root}, FHIRVersion: "r4", Recursive: true, IncludeTests: true})
	require.NoError(t, err)
	return idx
}

func artifact(t *testing.T, idx *index.Index, resourceType, id string) *model.SourceResource {
	t.Helper()
	r, ok := idx.ByID(resourceType, id)
	require.True(t, ok, "%s/%s must be indexed", resourceType, id)
	return r
}

func identities(res *model.ResolutionResult) []string {
	out := make([]string, 0, len(res.Resolved))
	for id := range res.Resolved {
		out = append(out, id)
	}
	return out
}

func TestResolve_TransitiveClosure(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json": testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json": testutil.Library("L1", "1.0.0",
			testutil.Canonical("Library", "L2", ""),
			testutil.Canonical("ValueSet", "V1", "")),
		"library/L2.json":  testutil.Library("L2", "1.0.0"),
		"library/L3.json":  testutil.Library("L3", "1.0.0"),
		"valueset/V1.json": testutil.ValueSet("V1"),
	})
	ctx, _ := testutil.Context(t)

	// --- Act ---
	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.ElementsMatch(t, []string{"Measure/A", "Library/L1", "Library/L2", "ValueSet/V1"}, identities(res))
	assert.False(t, res.HasMissing())
	require.NotNil(t, res.PrimaryLibrary)
	assert.Equal(t, "L1", res.PrimaryLibrary.ID)
	assert.Equal(t, []string{"Library/L2", "Library/L1"}, res.Order)
}

func TestResolve_CycleIncludesEachResourceOnce(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":  testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json": testutil.Library("L1", "", testutil.Canonical("Library", "L2", "")),
		"library/L2.json": testutil.Library("L2", "", testutil.Canonical("Library", "L1", "")),
	})
	ctx, _ := testutil.Context(t)

	// --- Act ---
	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.ElementsMatch(t, []string{"Measure/A", "Library/L1", "Library/L2"}, identities(res))
	assert.False(t, res.HasMissing())
	assert.Equal(t, []string{"Library/L1", "Library/L2"}, res.Order, "a cycle falls back to sorted order")
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, model.SeverityInfo, res.Diagnostics[0].Severity)
	assert.Contains(t, res.Diagnostics[0].Message, "cycle")
}

func TestResolve_VersionMismatchIsMissing(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":  testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json": testutil.Library("L1", "", "Library/X|2.0"),
		"library/X.json":  testutil.Library("X", "1.0"),
	})
	ctx, logs := testutil.Context(t)

	// --- Act ---
	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	// --- Assert ---
	assert.Equal(t, []string{"Library/X|2.0"}, res.Missing())
	assert.False(t, res.Has("Library/X"), "a different version must never be substituted")
	assert.Contains(t, logs.String(), "Dependency version mismatch")
	require.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, model.SeverityWarning, res.Diagnostics[0].Severity)
}

func TestResolve_ExactVersionMatches(t *testing.T) {
	t.Parallel()

	old := testutil.Library("Common", "1.0.0")
	old["id"] = "Common-1"
	latest := testutil.Library("Common", "2.0.0")
	latest["id"] = "Common-2"
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":   testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json":  testutil.Library("L1", "", testutil.Canonical("Library", "Common", "1.0.0")),
		"library/old.json": old,
		"library/new.json": latest,
	})
	ctx, _ := testutil.Context(t)

	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	assert.False(t, res.HasMissing())
	assert.True(t, res.Has("Library/Common-1"))
	assert.False(t, res.Has("Library/Common-2"))
}

func TestResolve_MissingAndOptionalReferences(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	vs := testutil.ValueSet("V1")
	vs["compose"] = map[string]any{"include": []any{map[string]any{"system": "http://loinc.org"}}}
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json": testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json": testutil.Library("L1", "",
			testutil.Canonical("Library", "Nope", ""),
			testutil.Canonical("ValueSet", "V1", "")),
		"valueset/V1.json": vs,
	})
	ctx, _ := testutil.Context(t)

	// --- Act ---
	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	// --- Assert ---
	assert.Equal(t, []string{testutil.Canonical("Library", "Nope", "")}, res.Missing())
	assert.True(t, res.Has("ValueSet/V1"))
}

func TestResolve_SelfReferenceIsIgnored(t *testing.T) {
	t.Parallel()

	m := testutil.Measure("A", testutil.Canonical("Library", "L1", ""))
	m["relatedArtifact"] = []any{map[string]any{"type": "depends-on", "resource": testutil.Canonical("Measure", "A", "")}}
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":  m,
		"library/L1.json": testutil.Library("L1", ""),
	})
	ctx, _ := testutil.Context(t)

	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	require.NoError(t, res.Err)
	assert.ElementsMatch(t, []string{"Measure/A", "Library/L1"}, identities(res))
	assert.False(t, res.HasMissing())
}

func TestResolve_PrimaryLibraryCardinality(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, map[string]map[string]any{
		"measure/Two.json": testutil.Measure("Two",
			testutil.Canonical("Library", "L1", ""),
			testutil.Canonical("Library", "L2", "")),
		"measure/None.json": testutil.Measure("None"),
		"measure/One.json":  testutil.Measure("One", testutil.Canonical("Library", "L1", "")),
		"library/L1.json":   testutil.Library("L1", ""),
		"library/L2.json":   testutil.Library("L2", ""),
	})

	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "two primary libraries", id: "Two", wantErr: true},
		{name: "no primary library", id: "None", wantErr: true},
		{name: "exactly one primary library", id: "One", wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, tc.id), idx, Options{IncludeTransitive: true})
			if tc.wantErr {
				assert.ErrorIs(t, res.Err, ErrPrimaryLibrary)
			} else {
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestResolve_NonTransitiveStopsAfterPrimaryLibrary(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":  testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json": testutil.Library("L1", "", testutil.Canonical("Library", "L2", "")),
		"library/L2.json": testutil.Library("L2", "", testutil.Canonical("Library", "L3", "")),
		"library/L3.json": testutil.Library("L3", ""),
	})
	ctx, _ := testutil.Context(t)

	// --- Act ---
	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{})

	// --- Assert ---
	assert.ElementsMatch(t, []string{"Measure/A", "Library/L1", "Library/L2"}, identities(res))
	assert.False(t, res.HasMissing())
}

func TestResolve_TestFixtures(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":          testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json":         testutil.Library("L1", ""),
		"tests/measure/A/p1.json": {"resourceType": "Patient", "id": "p1"},
		"tests/measure/B/p2.json": {"resourceType": "Patient", "id": "p2"},
	})
	ctx, _ := testutil.Context(t)
	a := artifact(t, idx, model.TypeMeasure, "A")

	without := New().Resolve(ctx, a, idx, Options{IncludeTransitive: true})
	with := New().Resolve(ctx, a, idx, Options{IncludeTransitive: true, IncludeTestFixtures: true})

	assert.Empty(t, without.Fixtures)
	require.Len(t, with.Fixtures, 1)
	assert.Equal(t, "p1", with.Fixtures[0].ID)
	assert.True(t, with.Has("Patient/p1"))
}

func TestResolve_CancelledContext(t *testing.T) {
	t.Parallel()

	idx := buildIndex(t, map[string]map[string]any{
		"measure/A.json":  testutil.Measure("A", testutil.Canonical("Library", "L1", "")),
		"library/L1.json": testutil.Library("L1", ""),
	})
	base, _ := testutil.Context(t)
	ctx, cancel := context.WithCancel(base)
	cancel()

	res := New().Resolve(ctx, artifact(t, idx, model.TypeMeasure, "A"), idx, Options{IncludeTransitive: true})

	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestMissingError(t *testing.T) {
	t.Parallel()

	err := &MissingError{Artifact: "Measure/A", References: []string{"a", "b"}}
	assert.Equal(t, "unresolved dependencies for Measure/A: a, b", err.Error())
}
