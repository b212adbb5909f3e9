// Package compiler defines the logic-compiler contract and its
// implementations.
//
// A compiler takes the CQL attached to a Library and returns ELM plus a list
// of severity-tagged diagnostics. Only Error diagnostics block bundling.
package compiler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Media types of Library content attachments.
const (
	ContentTypeCQL = "text/cql"
	ContentTypeELM = "application/elm+json"
)

// Source is the compilable content of one Library.
type Source struct {
	Name    string
	Version string
	CQL     []byte
	ELM     []byte
}

// Empty reports whether the Library carries no logic content.
func (s Source) Empty() bool {
	return len(s.CQL) == 0 && len(s.ELM) == 0
}

// Result is what a compiler produced for one Source.
type Result struct {
	ELM         []byte
	Diagnostics []model.Diagnostic
}

// HasErrors reports whether any diagnostic has Error severity.
func (r *Result) HasErrors() bool {
	return r != nil && model.HasErrors(r.Diagnostics)
}

// Compiler turns a Source into ELM. Implementations must be safe for
// concurrent use.
type Compiler interface {
	Compile(ctx context.Context, src Source) (*Result, error)
}

// SourceFrom extracts the CQL and ELM attachments of a Library.
func SourceFrom(lib *model.SourceResource) (Source, error) {
	src := Source{Name: lib.ArtifactName(), Version: lib.Version}
	content, _ := lib.Document["content"].([]any)
	for i, c := range content {
		attachment, ok := c.(map[string]any)
		if !ok {
			continue
		}
		contentType, _ := attachment["contentType"].(string)
		data, _ := attachment["data"].(string)
		if data == "" {
			continue
		}
		// Media types may carry parameters, e.g. "text/cql; charset=utf-8".
		mediaType, _, _ := strings.Cut(contentType, ";")
		mediaType = strings.TrimSpace(mediaType)
		if mediaType != ContentTypeCQL && mediaType != ContentTypeELM {
			continue
		}

		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return Source{}, fmt.Errorf("failed to decode content[%d] of %s: %w", i, lib.Identity(), err)
		}
		switch mediaType {
		case ContentTypeCQL:
			src.CQL = decoded
		case ContentTypeELM:
			src.ELM = decoded
		}
	}
	return src, nil
}

// elmDocument is the part of an ELM library the compilers read.
type elmDocument struct {
	Library struct {
		Identifier struct {
			ID      string `json:"id"`
			Version string `json:"version"`
		} `json:"identifier"`
		Annotation []elmAnnotation `json:"annotation"`
	} `json:"library"`
}

type elmAnnotation struct {
	Type          string      `json:"type"`
	ErrorType     string      `json:"errorType"`
	ErrorSeverity string      `json:"errorSeverity"`
	Message       string      `json:"message"`
	LibraryID     string      `json:"libraryId"`
	StartLine     json.Number `json:"startLine"`
}

// annotationDiagnostics reads the CqlToElmError annotations of an ELM
// document.
func annotationDiagnostics(source, library string, elm []byte) ([]model.Diagnostic, error) {
	var doc elmDocument
	if err := json.Unmarshal(elm, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ELM for %s: %w", library, err)
	}

	var out []model.Diagnostic
	for _, a := range doc.Library.Annotation {
		if a.Type != "" && a.Type != "CqlToElmError" {
			continue
		}
		d := model.Diagnostic{
			Severity: model.ParseSeverity(a.ErrorSeverity),
			Source:   source,
			Library:  library,
			Message:  a.Message,
		}
		if a.LibraryID != "" {
			d.Library = a.LibraryID
		}
		if line, err := a.StartLine.Int64(); err == nil {
			d.Line = int(line)
		}
		out = append(out, d)
	}
	return out, nil
}
