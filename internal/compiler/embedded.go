package compiler

import (
	"context"

	"github.com/specialistvlad/bundlegrid/internal/ctxlog"
	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Embedded uses the ELM already attached to a Library and reports the
// translator annotations recorded in it. It never runs a translator.
type Embedded struct{}

// NewEmbedded creates an Embedded compiler.
func NewEmbedded() *Embedded {
	return &Embedded{}
}

// Compile implements Compiler.
func (e *Embedded) Compile(ctx context.Context, src Source) (*Result, error) {
	logger := ctxlog.FromContext(ctx).With("library", src.Name)

	if len(src.ELM) == 0 {
		res := &Result{}
		if len(src.CQL) > 0 {
			logger.Debug("Library has CQL but no attached ELM.")
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Severity: model.SeverityInfo,
				Source:   "compiler",
				Library:  src.Name,
				Message:  "no precompiled ELM attached, translation skipped",
			})
		}
		return res, nil
	}

	diags, err := annotationDiagnostics("compiler", src.Name, src.ELM)
	if err != nil {
		return nil, err
	}
	logger.Debug("Read embedded ELM.", "diagnostics", len(diags))
	return &Result{ELM: src.ELM, Diagnostics: diags}, nil
}

// Noop passes attached ELM through and reports nothing.
type Noop struct{}

// Compile implements Compiler.
func (Noop) Compile(_ context.Context, src Source) (*Result, error) {
	return &Result{ELM: src.ELM}, nil
}
