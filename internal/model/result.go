// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines ResolutionResult, the closure computed for one top-level
// artifact. A result is built by a single task and never shared.
package model

import "sort"

// ResolutionResult is the outcome of resolving one artifact's dependencies.
type ResolutionResult struct {
	ArtifactID string
	Artifact   *SourceResource
	// PrimaryLibrary is nil for artifacts that do not need one, or when it
	// could not be resolved.
	PrimaryLibrary *SourceResource

	// Resolved is keyed by SourceResource.Identity and includes the artifact.
	Resolved map[string]*SourceResource
	// Order lists library identities with dependencies before dependents.
	Order []string
	// Fixtures are test resources bundled alongside the artifact.
	Fixtures []*SourceResource

	missing map[string]struct{}

	Diagnostics []Diagnostic
	// Err is set when resolution stopped early, e.g. a wrong number of
	// primary libraries.
	Err error
}

// NewResolutionResult creates an empty result for the artifact.
func NewResolutionResult(artifact *SourceResource) *ResolutionResult {
	r := &ResolutionResult{
		Artifact: artifact,
		Resolved: make(map[string]*SourceResource),
		missing:  make(map[string]struct{}),
	}
	if artifact != nil {
		r.ArtifactID = artifact.Identity()
	}
	return r
}

// AddMissing records a reference that could not be resolved.
func (r *ResolutionResult) AddMissing(raw string) {
	if r.missing == nil {
		r.missing = make(map[string]struct{})
	}
	r.missing[raw] = struct{}{}
}

// Missing returns the unresolved references, sorted.
func (r *ResolutionResult) Missing() []string {
	out := make([]string, 0, len(r.missing))
	for raw := range r.missing {
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

// HasMissing reports whether any reference was left unresolved.
func (r *ResolutionResult) HasMissing() bool {
	return len(r.missing) > 0
}

// Add records a resolved resource. It returns false when a resource with the
// same identity is already present.
func (r *ResolutionResult) Add(res *SourceResource) bool {
	id := res.Identity()
	if _, ok := r.Resolved[id]; ok {
		return false
	}
	r.Resolved[id] = res
	return true
}

// Has reports whether a resource with the identity is already resolved.
func (r *ResolutionResult) Has(identity string) bool {
	_, ok := r.Resolved[identity]
	return ok
}

// Warn appends a warning diagnostic.
func (r *ResolutionResult) Warn(source, msg string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Severity: SeverityWarning, Source: source, Message: msg})
}

// Info appends an informational diagnostic.
func (r *ResolutionResult) Info(source, msg string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Severity: SeverityInfo, Source: source, Message: msg})
}
