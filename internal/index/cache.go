package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/bundlegrid/internal/adapter"
	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/fsutil"
	"github.com/specialistvlad/bundlegrid/internal/model"
	"golang.org/x/sync/singleflight"
)

// ErrRequiredDirectory is returned when a root, or a type directory listed as
// required, does not exist.
var ErrRequiredDirectory = errors.New("required source directory not found")

// DefaultParseCacheSize bounds the number of parsed files kept in memory.
const DefaultParseCacheSize = 4096

// Params describes one index build. Every field is part of the memoization
// key.
type Params struct {
	Roots        []string
	Types        []string
	FHIRVersion  string
	Recursive    bool
	IncludeTests bool
	// Required lists resource types whose directory must exist under every
	// root.
	Required []string
}

func (p Params) types() []string {
	if len(p.Types) == 0 {
		return model.IndexedTypes
	}
	return p.Types
}

func (p Params) key() string {
	types := append([]string(nil), p.types()...)
	sort.Strings(types)
	required := make([]string, 0, len(p.Required))
	for _, r := range p.Required {
		required = append(required, strings.ToLower(r))
	}
	sort.Strings(required)
	return fmt.Sprintf("%s|recursive=%t|tests=%t|roots=%s|types=%s|required=%s",
		strings.ToLower(p.FHIRVersion), p.Recursive, p.IncludeTests,
		strings.Join(p.Roots, ","), strings.Join(types, ","), strings.Join(required, ","))
}

// Stats counts cache activity since the Cache was created.
type Stats struct {
	Walks       int64
	WalkHits    int64
	Builds      int64
	BuildHits   int64
	Parses      int64
	ParseHits   int64
	Invalidated int64
}

// Cache memoizes directory walks, built indexes and parsed files. It is safe
// for concurrent use.
type Cache struct {
	codecs *codec.Registry

	mu      sync.Mutex
	walks   map[string][]string
	indexes map[string]*Index
	parsed  *lru.Cache[string, *model.SourceResource]
	group   singleflight.Group

	walkMisses, walkHits   atomic.Int64
	buildMisses, buildHits atomic.Int64
	parseMisses, parseHits atomic.Int64
	invalidations          atomic.Int64
}

// NewCache creates an empty cache. parseCacheSize <= 0 selects
// DefaultParseCacheSize.
func NewCache(codecs *codec.Registry, parseCacheSize int) (*Cache, error) {
	if parseCacheSize <= 0 {
		parseCacheSize = DefaultParseCacheSize
	}
	parsed, err := lru.New[string, *model.SourceResource](parseCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parse cache: %w", err)
	}
	if codecs == nil {
		codecs = codec.Default()
	}
	return &Cache{
		codecs:  codecs,
		walks:   make(map[string][]string),
		indexes: make(map[string]*Index),
		parsed:  parsed,
	}, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Walks:       c.walkMisses.Load(),
		WalkHits:    c.walkHits.Load(),
		Builds:      c.buildMisses.Load(),
		BuildHits:   c.buildHits.Load(),
		Parses:      c.parseMisses.Load(),
		ParseHits:   c.parseHits.Load(),
		Invalidated: c.invalidations.Load(),
	}
}

// Invalidate drops every memoized walk, index and parsed file.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.walks = make(map[string][]string)
	c.indexes = make(map[string]*Index)
	c.parsed.Purge()
	c.invalidations.Add(1)
}

// Files returns the decodable files under dir. The walk happens once per
// (dir, recursive) pair; later calls return the memoized list.
func (c *Cache) Files(dir string, recursive bool) ([]string, error) {
	key := fmt.Sprintf("%t|%s", recursive, filepath.Clean(dir))

	c.mu.Lock()
	if files, ok := c.walks[key]; ok {
		c.mu.Unlock()
		c.walkHits.Add(1)
		return files, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("walk|"+key, func() (any, error) {
		c.mu.Lock()
		if files, ok := c.walks[key]; ok {
			c.mu.Unlock()
			c.walkHits.Add(1)
			return files, nil
		}
		c.mu.Unlock()

		c.walkMisses.Add(1)
		files, err := fsutil.FindFiles(dir, recursive, c.codecs.Extensions()...)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.walks[key] = files
		c.mu.Unlock()
		return files, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return v.([]string), nil
}

// Build returns the index for p, building it on first use. Concurrent calls
// with equal parameters share one build.
func (c *Cache) Build(ctx context.Context, p Params) (*Index, error) {
	key := p.key()

	c.mu.Lock()
	if idx, ok := c.indexes[key]; ok {
		c.mu.Unlock()
		c.buildHits.Add(1)
		ctxlog.FromContext(ctx).Debug("Resource index served from cache.", "key", key)
		return idx, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("build|"+key, func() (any, error) {
		c.mu.Lock()
		if idx, ok := c.indexes[key]; ok {
			c.mu.Unlock()
			c.buildHits.Add(1)
			return idx, nil
		}
		c.mu.Unlock()

		c.buildMisses.Add(1)
		idx, err := c.build(ctx, p)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.indexes[key] = idx
		c.mu.Unlock()
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func (c *Cache) build(ctx context.Context, p Params) (*Index, error) {
	logger := ctxlog.FromContext(ctx)
	if len(p.Roots) == 0 {
		return nil, fmt.Errorf("at least one source root is required")
	}

	ad, err := adapter.For(p.FHIRVersion)
	if err != nil {
		return nil, err
	}

	required := make(map[string]bool, len(p.Required))
	for _, r := range p.Required {
		required[strings.ToLower(r)] = true
	}

	logger.Info("🔎 Building resource index...", "roots", p.Roots, "fhir_version", ad.FHIRVersion())
	idx := newIndex(ad.FHIRVersion())

	for _, root := range p.Roots {
		ok, err := fsutil.IsDir(root)
		if err != nil {
			return nil, fmt.Errorf("error accessing root %s: %w", root, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrRequiredDirectory, root)
		}

		for _, typ := range p.types() {
			dir := filepath.Join(root, strings.ToLower(typ))
			ok, err := fsutil.IsDir(dir)
			if err != nil {
				return nil, fmt.Errorf("error accessing %s: %w", dir, err)
			}
			if !ok {
				if required[strings.ToLower(typ)] {
					return nil, fmt.Errorf("%w: %s", ErrRequiredDirectory, dir)
				}
				logger.Warn("Source directory not found, no entries for this category.", "dir", dir, "type", typ)
				continue
			}
			if err := c.indexDir(ctx, idx, ad, dir, p.Recursive); err != nil {
				return nil, err
			}
		}

		if p.IncludeTests {
			if err := c.indexFixtures(ctx, idx, ad, root); err != nil {
				return nil, err
			}
		}
	}

	idx.finalize()
	logger.Info("Resource index built.", "resources", idx.Len(), "skipped_files", idx.Skipped())
	return idx, nil
}

func (c *Cache) indexDir(ctx context.Context, idx *Index, ad adapter.Adapter, dir string, recursive bool) error {
	logger := ctxlog.FromContext(ctx)
	files, err := c.Files(dir, recursive)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := c.parse(f, ad)
		if err != nil {
			logger.Warn("Skipping file that failed to parse.", "path", f, "error", err)
			idx.skipped++
			continue
		}
		logger.Debug("Indexed resource.", "identity", r.Identity(), "path", f)
		idx.add(ctx, r)
	}
	return nil
}

// indexFixtures reads tests/<type>/<ArtifactName>/ trees under root.
func (c *Cache) indexFixtures(ctx context.Context, idx *Index, ad adapter.Adapter, root string) error {
	logger := ctxlog.FromContext(ctx)
	testsDir := filepath.Join(root, "tests")
	ok, err := fsutil.IsDir(testsDir)
	if err != nil || !ok {
		logger.Debug("No test fixture directory.", "dir", testsDir)
		return err
	}

	for _, typ := range model.ArtifactTypes {
		typeDir := filepath.Join(testsDir, strings.ToLower(typ))
		entries, err := os.ReadDir(typeDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("error reading %s: %w", typeDir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			files, err := c.Files(filepath.Join(typeDir, e.Name()), true)
			if err != nil {
				return err
			}
			for _, f := range files {
				r, err := c.parse(f, ad)
				if err != nil {
					logger.Warn("Skipping test fixture that failed to parse.", "path", f, "error", err)
					idx.skipped++
					continue
				}
				idx.addFixture(typ, e.Name(), r)
			}
		}
	}
	return nil
}

// parse reads and decodes one file, consulting the LRU first.
func (c *Cache) parse(path string, ad adapter.Adapter) (*model.SourceResource, error) {
	key := ad.FHIRVersion() + "|" + path
	if r, ok := c.parsed.Get(key); ok {
		c.parseHits.Add(1)
		return r, nil
	}
	c.parseMisses.Add(1)

	cd, ok := c.codecs.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("no codec for %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := cd.Decode(data)
	if err != nil {
		return nil, err
	}
	resourceType := doc.String("resourceType")
	if resourceType == "" {
		return nil, fmt.Errorf("document has no resourceType")
	}

	capability := ad.Wrap(doc)
	r := &model.SourceResource{
		ResourceType: resourceType,
		ID:           doc.String("id"),
		Name:         doc.String("name"),
		URL:          capability.URL(),
		Version:      capability.Version(),
		SourcePath:   path,
		FHIRVersion:  ad.FHIRVersion(),
		References:   capability.DependencyReferences(),
		Document:     doc,
	}
	c.parsed.Add(key, r)
	return r, nil
}
