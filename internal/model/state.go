// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the per-artifact state machine and the Outcome message a
// task returns to the orchestrator.
//
//	Discovered -> Resolving -> (Resolved | MissingDependency | CompilerError)
//	Resolved   -> (Persisted | Skipped)
//
// Failed covers I/O errors and recovered panics, which can happen in any
// non-terminal state.
package model

import "fmt"

// ArtifactState is the lifecycle state of one artifact within a run.
type ArtifactState int32

const (
	StateDiscovered ArtifactState = iota
	StateResolving
	StateResolved
	StateMissingDependency
	StateCompilerError
	StatePersisted
	StateSkipped
	StateFailed
)

// String returns the state name.
func (s ArtifactState) String() string {
	switch s {
	case StateDiscovered:
		return "Discovered"
	case StateResolving:
		return "Resolving"
	case StateResolved:
		return "Resolved"
	case StateMissingDependency:
		return "MissingDependency"
	case StateCompilerError:
		return "CompilerError"
	case StatePersisted:
		return "Persisted"
	case StateSkipped:
		return "Skipped"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("ArtifactState(%d)", int32(s))
	}
}

// IsTerminal reports whether no further transition follows the state.
func (s ArtifactState) IsTerminal() bool {
	switch s {
	case StateMissingDependency, StateCompilerError, StatePersisted, StateSkipped, StateFailed:
		return true
	default:
		return false
	}
}

// Outcome is the value a task hands back when it finishes. It is the only
// thing a task shares with the rest of the run.
type Outcome struct {
	// Seq is the candidate's position in the submitted list.
	Seq        int
	Key        string
	Name       string
	SourcePath string

	State ArtifactState
	// Err explains why the artifact was not bundled.
	Err error
	// DeliveryErr is set when the bundle was written but transmission failed.
	DeliveryErr error
	// Reason is a short note for non-error outcomes such as Skipped.
	Reason string

	// Library is the primary library name the diagnostics belong to.
	Library     string
	Diagnostics []Diagnostic
	BundlePath  string
}
