// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines DependencyReference, the typed pointer a schema adapter
// extracts from a resource. References are derived data and are never stored
// on their own.
package model

import "fmt"

// Kind classifies what a dependency reference points at.
type Kind int

const (
	// KindLibrary is a reusable logic library.
	KindLibrary Kind = iota
	// KindValueSet is a terminology value set.
	KindValueSet
	// KindCodeSystem is a terminology code system.
	KindCodeSystem
)

// String returns the resource type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLibrary:
		return TypeLibrary
	case KindValueSet:
		return TypeValueSet
	case KindCodeSystem:
		return TypeCodeSystem
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsTerminology reports whether the kind is a value set or code system.
func (k Kind) IsTerminology() bool {
	return k == KindValueSet || k == KindCodeSystem
}

// KindForType maps a resource type name to a Kind.
func KindForType(resourceType string) (Kind, bool) {
	switch resourceType {
	case TypeLibrary:
		return KindLibrary, true
	case TypeValueSet:
		return KindValueSet, true
	case TypeCodeSystem:
		return KindCodeSystem, true
	default:
		return 0, false
	}
}

// DependencyReference points from one resource to another.
type DependencyReference struct {
	Kind Kind
	// Raw is the reference exactly as written in the source document. It is
	// what gets reported when the reference cannot be resolved.
	Raw string
	// Target is the url or id with any version suffix removed.
	Target string
	// Version is the version constraint, empty when none was given.
	Version string
	// Primary marks the logic library an artifact is built on.
	Primary bool
	// Optional references are resolved when the target is present locally and
	// are not reported when it is absent.
	Optional bool
}

// String returns the raw reference.
func (r DependencyReference) String() string {
	return r.Raw
}
