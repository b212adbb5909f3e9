// Package adapter hides the differences between resource schema versions
// behind a small capability interface. Resolution and bundling only ever see
// Capability values, so they work the same for every supported version.
package adapter

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/canonical"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Supported schema versions.
const (
	R4    = "r4"
	DSTU3 = "dstu3"
)

// Extension urls that link a Questionnaire to its logic library.
const (
	cqfLibraryExtension  = "http://hl7.org/fhir/StructureDefinition/cqf-library"
	cqifLibraryExtension = "http://hl7.org/fhir/StructureDefinition/cqif-library"
)

// Capability is what the bundler needs to know about any resource.
type Capability interface {
	URL() string
	Version() string
	DependencyReferences() []model.DependencyReference
}

// Adapter wraps decoded documents of one schema version.
type Adapter interface {
	FHIRVersion() string
	Wrap(doc model.Document) Capability
}

// For returns the adapter for a schema version name.
func For(version string) (Adapter, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case R4, "4.0.1", "":
		return r4{}, nil
	case DSTU3, "stu3", "3.0.2":
		return dstu3{}, nil
	default:
		return nil, fmt.Errorf("unsupported fhir version %q", version)
	}
}

// capability is the shared Capability implementation. Adapters differ only in
// how they collect references.
type capability struct {
	url     string
	version string
	refs    []model.DependencyReference
}

func (c *capability) URL() string     { return c.url }
func (c *capability) Version() string { return c.version }

func (c *capability) DependencyReferences() []model.DependencyReference {
	out := make([]model.DependencyReference, len(c.refs))
	copy(out, c.refs)
	return out
}

// collector accumulates references, dropping duplicates of the same raw
// string and kind. A primary reference wins over a non-primary duplicate.
type collector struct {
	refs []model.DependencyReference
	seen map[string]int
}

func newCollector() *collector {
	return &collector{seen: make(map[string]int)}
}

func (c *collector) add(raw string, kind model.Kind, primary, optional bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return
	}
	key := kind.String() + " " + raw
	if i, ok := c.seen[key]; ok {
		if primary {
			c.refs[i].Primary = true
			c.refs[i].Optional = false
		}
		return
	}

	ref := model.DependencyReference{Kind: kind, Raw: raw, Target: raw, Primary: primary, Optional: optional}
	if parsed, err := canonical.Parse(raw); err == nil {
		ref.Target = parsed.Base
		ref.Version = parsed.Version
	}
	c.seen[key] = len(c.refs)
	c.refs = append(c.refs, ref)
}

// addWithVersion handles places where the version lives in a sibling field.
func (c *collector) addWithVersion(raw, version string, kind model.Kind, optional bool) {
	if version != "" && !strings.Contains(raw, "|") && raw != "" {
		raw = canonical.Join(raw, version)
	}
	c.add(raw, kind, false, optional)
}

// relatedKind picks the kind of a depends-on target. Targets without a
// recognisable resource type are treated as external code systems.
func relatedKind(raw string) (model.Kind, bool) {
	ref, err := canonical.Parse(raw)
	if err != nil {
		return model.KindLibrary, false
	}
	if kind, ok := model.KindForType(ref.ResourceType); ok {
		return kind, false
	}
	if ref.IsURL() && ref.ResourceType == "" {
		return model.KindCodeSystem, true
	}
	return model.KindLibrary, false
}

func newCapability(doc model.Document, refs []model.DependencyReference) *capability {
	return &capability{url: doc.String("url"), version: doc.String("version"), refs: refs}
}

// --- small helpers for walking decoded documents ---

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

func object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func str(m map[string]any, field string) string {
	s, _ := m[field].(string)
	return s
}

// composeEntries returns include and exclude entries of a ValueSet compose.
func composeEntries(doc model.Document) []map[string]any {
	compose := object(doc["compose"])
	var out []map[string]any
	for _, field := range []string{"include", "exclude"} {
		for _, e := range list(compose[field]) {
			if m := object(e); m != nil {
				out = append(out, m)
			}
		}
	}
	return out
}

// collectCompose extracts nested terminology references. It is the same for
// every supported version.
func collectCompose(c *collector, doc model.Document) {
	for _, entry := range composeEntries(doc) {
		for _, vs := range list(entry["valueSet"]) {
			if s, ok := vs.(string); ok {
				c.add(s, model.KindValueSet, false, false)
			}
		}
		c.addWithVersion(str(entry, "system"), str(entry, "version"), model.KindCodeSystem, true)
	}
}
