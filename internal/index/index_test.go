package index

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(codec.Default(), 0)
	require.NoError(t, err)
	return c
}

func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"library/Common-1.json": testutil.JSON(t, testutil.Library("Common", "1.0.0")),
		"library/Main.json":     testutil.JSON(t, testutil.Library("Main", "1.0.0", testutil.Canonical("Library", "Common", "1.0.0"))),
		"library/broken.json":   `{"resourceType": `,
		"library/notes.txt":     "ignored",
		"library/untyped.json":  `{"id": "x"}`,
		"measure/M1.json":       testutil.JSON(t, testutil.Measure("M1", testutil.Canonical("Library", "Main", "1.0.0"))),
		"valueset/vs1.yaml":     "resourceType: ValueSet\nid: vs1\nurl: " + testutil.BaseURL + "/ValueSet/vs1\n",
		"tests/measure/M1/p1.json": testutil.JSON(t, map[string]any{
			"resourceType": "Patient", "id": "p1",
		}),
	})
	return root
}

func TestBuild_PopulatesViews(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, logs := testutil.Context(t)
	root := sampleTree(t)
	c := newCache(t)

	// --- Act ---
	idx, err := c.Build(ctx, Params{Roots: []string{root}, FHIRVersion: "r4", Recursive: true, IncludeTests: true})
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, 2, idx.Skipped(), "broken and untyped files are skipped")
	assert.Contains(t, logs.String(), "Skipping file that failed to parse.")

	lib, ok := idx.ByID(model.TypeLibrary, "Main")
	require.True(t, ok)
	assert.Len(t, lib.References, 1)

	byURL, ok := idx.ByCanonical(testutil.Canonical("Library", "Common", ""))
	require.True(t, ok)
	byVersion, ok := idx.ByCanonical(testutil.Canonical("Library", "Common", "1.0.0"))
	require.True(t, ok)
	assert.Same(t, byURL, byVersion)

	vs, ok := idx.ByCanonical(testutil.BaseURL + "/ValueSet/vs1")
	require.True(t, ok)
	assert.Equal(t, "vs1", vs.ID)

	path, ok := idx.PathOf(model.TypeMeasure, "M1")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "measure", "M1.json"), path)

	assert.Len(t, idx.Resources(model.TypeMeasure), 1)
	fixtures := idx.TestFixtures(model.TypeMeasure, "M1")
	require.Len(t, fixtures, 1)
	assert.Equal(t, "Patient", fixtures[0].ResourceType)
	assert.Contains(t, logs.String(), "no entries for this category", "plandefinition directory is absent")
}

func TestBuild_VersionlessCanonicalPicksHighestVersion(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	v1 := testutil.Library("Common", "1.9.0")
	v1["id"] = "Common-1"
	v2 := testutil.Library("Common", "1.10.0")
	v2["id"] = "Common-2"
	testutil.WriteFiles(t, root, map[string]string{
		"library/a.json": testutil.JSON(t, v2),
		"library/b.json": testutil.JSON(t, v1),
	})

	// --- Act ---
	idx, err := newCache(t).Build(ctx, Params{Roots: []string{root}, Types: []string{model.TypeLibrary}, Recursive: true})
	require.NoError(t, err)

	// --- Assert ---
	latest, ok := idx.ByCanonical(testutil.BaseURL + "/Library/Common")
	require.True(t, ok)
	assert.Equal(t, "1.10.0", latest.Version)
	older, ok := idx.ByCanonical(testutil.Canonical("Library", "Common", "1.9.0"))
	require.True(t, ok)
	assert.Equal(t, "Common-1", older.ID)
}

func TestBuild_DuplicateIDKeepsFirst(t *testing.T) {
	t.Parallel()

	ctx, logs := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"library/a.json": testutil.JSON(t, testutil.Library("Dup", "1")),
		"library/b.json": testutil.JSON(t, testutil.Library("Dup", "2")),
	})

	idx, err := newCache(t).Build(ctx, Params{Roots: []string{root}, Types: []string{model.TypeLibrary}, Recursive: true})
	require.NoError(t, err)

	r, ok := idx.ByID(model.TypeLibrary, "Dup")
	require.True(t, ok)
	assert.Equal(t, "1", r.Version)
	assert.Contains(t, logs.String(), "Duplicate resource id")

	listed := idx.Resources(model.TypeLibrary)
	require.Len(t, listed, 1, "a shadowed duplicate is not a candidate")
	assert.Equal(t, filepath.Join(root, "library", "a.json"), listed[0].SourcePath)
	assert.Equal(t, 1, idx.Len())
}

func TestBuild_DirectoryPolicy(t *testing.T) {
	t.Parallel()

	t.Run("missing root is fatal", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		_, err := newCache(t).Build(ctx, Params{Roots: []string{filepath.Join(t.TempDir(), "nope")}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRequiredDirectory))
	})

	t.Run("missing required type directory is fatal", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		_, err := newCache(t).Build(ctx, Params{Roots: []string{t.TempDir()}, Required: []string{"Library"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRequiredDirectory)
		assert.ErrorContains(t, err, "library")
	})

	t.Run("missing optional type directory degrades to empty", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		idx, err := newCache(t).Build(ctx, Params{Roots: []string{t.TempDir()}})
		require.NoError(t, err)
		assert.Equal(t, 0, idx.Len())
	})

	t.Run("no roots", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		_, err := newCache(t).Build(ctx, Params{})
		assert.ErrorContains(t, err, "at least one source root")
	})

	t.Run("unsupported version", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		_, err := newCache(t).Build(ctx, Params{Roots: []string{t.TempDir()}, FHIRVersion: "r9"})
		assert.ErrorContains(t, err, "unsupported fhir version")
	})
}

func TestBuild_NonRecursive(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"library/top.json":        testutil.JSON(t, testutil.Library("Top", "")),
		"library/nested/low.json": testutil.JSON(t, testutil.Library("Low", "")),
	})

	idx, err := newCache(t).Build(ctx, Params{Roots: []string{root}, Types: []string{model.TypeLibrary}, Recursive: false})
	require.NoError(t, err)

	_, top := idx.ByID(model.TypeLibrary, "Top")
	_, low := idx.ByID(model.TypeLibrary, "Low")
	assert.True(t, top)
	assert.False(t, low)
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, compareVersions("1.0.0", "1.0.0"))
	assert.Equal(t, -1, compareVersions("", "1.0.0"))
	assert.Equal(t, 1, compareVersions("1.0.0", ""))
	assert.Equal(t, 1, compareVersions("1.10.0", "1.9.0"))
	assert.Equal(t, -1, compareVersions("alpha", "beta"))
}

func TestCache_MemoizesAndInvalidates(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := sampleTree(t)
	c := newCache(t)
	p := Params{Roots: []string{root}, FHIRVersion: "r4", Recursive: true}

	// --- Act ---
	first, err := c.Build(ctx, p)
	require.NoError(t, err)
	afterFirst := c.Stats()

	second, err := c.Build(ctx, p)
	require.NoError(t, err)
	afterSecond := c.Stats()

	c.Invalidate()
	third, err := c.Build(ctx, p)
	require.NoError(t, err)
	afterThird := c.Stats()

	// --- Assert ---
	assert.Same(t, first, second, "equal params must return the memoized index")
	assert.Equal(t, int64(1), afterFirst.Builds)
	assert.Equal(t, int64(1), afterSecond.BuildHits)
	assert.Equal(t, afterFirst.Walks, afterSecond.Walks, "a cache hit must not re-walk")

	assert.NotSame(t, first, third, "invalidate forces a rebuild")
	assert.Equal(t, int64(2), afterThird.Builds)
	assert.Equal(t, 2*afterFirst.Walks, afterThird.Walks)
	assert.Equal(t, int64(1), afterThird.Invalidated)
}

func TestCache_DistinctParamsShareWalks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	root := sampleTree(t)
	c := newCache(t)

	// --- Act ---
	_, err := c.Build(ctx, Params{Roots: []string{root}, Recursive: true})
	require.NoError(t, err)
	walks := c.Stats().Walks
	_, err = c.Build(ctx, Params{Roots: []string{root}, Recursive: true, Required: []string{"library"}})
	require.NoError(t, err)

	// --- Assert ---
	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Builds)
	assert.Equal(t, walks, stats.Walks, "the second build reuses memoized walks")
	assert.Greater(t, stats.WalkHits, int64(0))
	assert.Greater(t, stats.ParseHits, int64(0))
}

func TestCache_ConcurrentBuildsShareOneIndex(t *testing.T) {
	t.Parallel()

	ctx, _ := testutil.Context(t)
	root := sampleTree(t)
	c := newCache(t)
	p := Params{Roots: []string{root}, Recursive: true}

	const callers = 16
	results := make([]*Index, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			idx, err := c.Build(ctx, p)
			if err != nil {
				t.Errorf("build failed: %v", err)
				return
			}
			results[i] = idx
		}(i)
	}
	wg.Wait()

	for _, idx := range results {
		assert.Same(t, results[0], idx)
	}
	assert.Equal(t, int64(1), c.Stats().Builds)
}
