// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines SourceResource, the unit of content read from the source
// tree, and the resource type names the bundler understands.
package model

import (
	"path/filepath"
	"strings"
)

// Resource type names as they appear in the resourceType field.
const (
	TypeLibrary        = "Library"
	TypeMeasure        = "Measure"
	TypePlanDefinition = "PlanDefinition"
	TypeQuestionnaire  = "Questionnaire"
	TypeValueSet       = "ValueSet"
	TypeCodeSystem     = "CodeSystem"
)

// ArtifactTypes lists the resource types that can be bundled as top-level
// artifacts.
var ArtifactTypes = []string{TypeMeasure, TypePlanDefinition, TypeQuestionnaire}

// IndexedTypes lists every resource type the index scans by default.
var IndexedTypes = []string{
	TypeLibrary,
	TypeMeasure,
	TypePlanDefinition,
	TypeQuestionnaire,
	TypeValueSet,
	TypeCodeSystem,
}

// Document is a decoded resource. Numbers are kept as json.Number so that a
// decode/encode round trip does not alter their textual form.
type Document map[string]any

// String returns the string value of a top-level field, or "".
func (d Document) String(field string) string {
	if d == nil {
		return ""
	}
	s, _ := d[field].(string)
	return s
}

// Clone returns a shallow copy of the document. Nested values are shared, so
// callers may only replace top-level fields on the copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// SourceResource is a resource read from storage. It is immutable once the
// index has built it and is shared read-only by every resolver task.
type SourceResource struct {
	ResourceType string
	ID           string
	Name         string
	URL          string
	Version      string
	SourcePath   string
	FHIRVersion  string

	// References are the dependency references extracted by the schema adapter.
	References []DependencyReference

	// Document is the decoded content. It must not be mutated.
	Document Document
}

// Identity returns the key under which the resource is unique within a
// resolution: Type/id, falling back to the canonical url and then the source
// path for resources without an id.
func (r *SourceResource) Identity() string {
	switch {
	case r.ID != "":
		return r.ResourceType + "/" + r.ID
	case r.URL != "":
		return r.ResourceType + "|" + r.URL
	default:
		return r.ResourceType + "@" + r.SourcePath
	}
}

// ArtifactName is the human-facing name used for output directories and
// diagnostic keys.
func (r *SourceResource) ArtifactName() string {
	if r.Name != "" {
		return r.Name
	}
	if r.ID != "" {
		return r.ID
	}
	base := filepath.Base(r.SourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Canonical returns url|version when both are known, otherwise the url.
func (r *SourceResource) Canonical() string {
	if r.URL == "" || r.Version == "" {
		return r.URL
	}
	return r.URL + "|" + r.Version
}

// IsTerminology reports whether the resource is a value set or code system.
func (r *SourceResource) IsTerminology() bool {
	return r.ResourceType == TypeValueSet || r.ResourceType == TypeCodeSystem
}
