// Package codec decodes and encodes resource documents. The bundler is
// encoding-agnostic beyond picking the right Codec for a file extension.
package codec

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Codec converts between bytes and a generic resource document.
type Codec interface {
	// Name is the encoding name used in configuration, e.g. "json".
	Name() string
	// Extensions lists the file extensions handled, with the leading dot. The
	// first one is used for files the bundler writes.
	Extensions() []string
	Decode(data []byte) (model.Document, error)
	Encode(doc model.Document) ([]byte, error)
}

// Registry maps names and file extensions to codecs.
type Registry struct {
	byName map[string]Codec
	byExt  map[string]Codec
}

// NewRegistry creates a registry holding the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{
		byName: make(map[string]Codec),
		byExt:  make(map[string]Codec),
	}
	for _, c := range codecs {
		r.byName[c.Name()] = c
		for _, ext := range c.Extensions() {
			r.byExt[strings.ToLower(ext)] = c
		}
	}
	return r
}

// Default returns a registry with the JSON and YAML codecs.
func Default() *Registry {
	return NewRegistry(JSON{}, YAML{})
}

// ForPath returns the codec for a file's extension.
func (r *Registry) ForPath(path string) (Codec, bool) {
	c, ok := r.byExt[strings.ToLower(filepath.Ext(path))]
	return c, ok
}

// ByName returns the codec registered under name.
func (r *Registry) ByName(name string) (Codec, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return c, nil
}

// Names lists the registered encoding names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Extensions lists every extension the registry can decode, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for e := range r.byExt {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}
