// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines Bundle, the packaged transaction produced for one
// artifact. A bundle is written once and then treated as immutable.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifier is a business identifier stamped on the bundle container.
type Identifier struct {
	System string
	Value  string
}

// ParseIdentifier reads "system|value" or a bare value.
func ParseIdentifier(s string) *Identifier {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if system, value, ok := strings.Cut(s, "|"); ok {
		return &Identifier{System: system, Value: value}
	}
	return &Identifier{Value: s}
}

// Entry is one resource inside a bundle.
type Entry struct {
	// Source is the resource the entry was built from.
	Source *SourceResource
	// Resource is the document written into the bundle. It may differ from
	// Source.Document by an assigned id.
	Resource     Document
	ResourceType string
	ID           string
}

// RequestURL is the relative url used for the entry's write instruction.
func (e Entry) RequestURL() string {
	return e.ResourceType + "/" + e.ID
}

// FullURL is the absolute identity of the entry. It is <base>/Type/id when
// the source's canonical url has a "/Type/" segment, and otherwise a urn:uuid
// derived from Type/id so that it is stable across runs.
func (e Entry) FullURL() string {
	if e.Source != nil && e.Source.URL != "" {
		if base, _, ok := strings.Cut(e.Source.URL, "/"+e.ResourceType+"/"); ok && strings.Contains(base, "://") {
			return base + "/" + e.RequestURL()
		}
	}
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(e.RequestURL())).String()
}

// Bundle is an ordered collection of resources plus the container's own
// identity, timestamp and identifier.
type Bundle struct {
	ID           string
	ArtifactName string
	Timestamp    *time.Time
	Identifier   *Identifier
	Entries      []Entry
}

// Document renders the bundle as a transaction Bundle resource.
func (b *Bundle) Document() Document {
	entries := make([]any, 0, len(b.Entries))
	for _, e := range b.Entries {
		entries = append(entries, map[string]any{
			"fullUrl":  e.FullURL(),
			"resource": map[string]any(e.Resource),
			"request": map[string]any{
				"method": "PUT",
				"url":    e.RequestURL(),
			},
		})
	}

	doc := Document{
		"resourceType": "Bundle",
		"id":           b.ID,
		"type":         "transaction",
		"entry":        entries,
	}
	if b.Timestamp != nil {
		doc["timestamp"] = b.Timestamp.UTC().Format(time.RFC3339)
	}
	if b.Identifier != nil {
		ident := map[string]any{"value": b.Identifier.Value}
		if b.Identifier.System != "" {
			ident["system"] = b.Identifier.System
		}
		doc["identifier"] = ident
	}
	return doc
}
