// Package persist writes assembled bundles and their loose files to disk.
//
// Layout for an artifact named A:
//
//	<dest>/A/A-bundle.<ext>
//	<dest>/A/A-files/...
//
// The artifact directory is replaced on every write, so a re-run never leaves
// stale files behind.
package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/codec"
	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/fsutil"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// LooseFile is a file written next to the bundle. Either Data or SourcePath
// is set; SourcePath is copied verbatim.
type LooseFile struct {
	Name         string
	ResourceType string
	Data         []byte
	SourcePath   string
}

// SourceFiles lists a copy of every entry's source file.
func SourceFiles(b *model.Bundle) []LooseFile {
	var out []LooseFile
	for _, e := range b.Entries {
		if e.Source == nil || e.Source.SourcePath == "" {
			continue
		}
		out = append(out, LooseFile{
			Name:         filepath.Base(e.Source.SourcePath),
			ResourceType: e.ResourceType,
			SourcePath:   e.Source.SourcePath,
		})
	}
	return out
}

// Writer writes bundles in one encoding.
type Writer struct {
	codec codec.Codec
}

// NewWriter creates a Writer for the named encoding.
func NewWriter(codecs *codec.Registry, encoding string) (*Writer, error) {
	c, err := codecs.ByName(encoding)
	if err != nil {
		return nil, err
	}
	return &Writer{codec: c}, nil
}

// Extension is the file extension of written bundles.
func (w *Writer) Extension() string {
	return w.codec.Extensions()[0]
}

// Write encodes the bundle and writes it plus files under dest. It returns
// the artifact directory.
func (w *Writer) Write(ctx context.Context, b *model.Bundle, files []LooseFile, dest string) (string, error) {
	logger := ctxlog.FromContext(ctx)
	name := safeName(b.ArtifactName)
	dir := filepath.Join(dest, name)

	data, err := w.codec.Encode(b.Document())
	if err != nil {
		return "", fmt.Errorf("failed to encode bundle %s: %w", b.ID, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("failed to clear output directory '%s': %w", dir, err)
	}
	bundlePath := filepath.Join(dir, name+"-bundle"+w.Extension())
	if err := fsutil.WriteFile(bundlePath, data); err != nil {
		return "", err
	}

	filesDir := filepath.Join(dir, name+"-files")
	used := make(map[string]bool, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		target := filepath.Join(filesDir, uniqueName(used, f))
		if f.SourcePath != "" {
			err = fsutil.CopyFile(f.SourcePath, target)
		} else {
			err = fsutil.WriteFile(target, f.Data)
		}
		if err != nil {
			return "", err
		}
	}

	logger.Debug("Bundle written.", "path", bundlePath, "entries", len(b.Entries), "files", len(files))
	return dir, nil
}

// uniqueName picks a file name not yet used in the directory, prefixing the
// resource type on a collision.
func uniqueName(used map[string]bool, f LooseFile) string {
	name := safeName(f.Name)
	candidates := []string{name}
	if f.ResourceType != "" {
		candidates = append(candidates, f.ResourceType+"-"+name)
	}
	for _, c := range candidates {
		key := strings.ToLower(c)
		if !used[key] {
			used[key] = true
			return c
		}
	}

	ext := filepath.Ext(candidates[len(candidates)-1])
	stem := strings.TrimSuffix(candidates[len(candidates)-1], ext)
	for i := 2; ; i++ {
		c := stem + "-" + strconv.Itoa(i) + ext
		if key := strings.ToLower(c); !used[key] {
			used[key] = true
			return c
		}
	}
}

// DirName is the directory name Write uses for a bundle's artifact name.
func DirName(artifactName string) string {
	return safeName(artifactName)
}

func safeName(s string) string {
	s = strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(strings.TrimSpace(s))
	if s == "" {
		return "unnamed"
	}
	return s
}
