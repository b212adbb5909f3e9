// Package statestore defines the interface for the mutable per-artifact state
// of one run.
//
// The store keeps execution state apart from the immutable Resource Index:
// workers write transitions while the index is read concurrently, and the
// healthcheck server reads counts while the run is in progress.
//
// The store is created once per run, written by the orchestrator's collector
// and workers, queried by the progress endpoint and discarded at exit.
package statestore

import (
	"context"

	"github.com/specialistvlad/bundlegrid/internal/model"
)

// Store tracks state, errors and final outcomes keyed by candidate key.
//
// Implementations MUST be safe for concurrent reads and writes.
type Store interface {
	// SetState records a lifecycle transition.
	SetState(ctx context.Context, key string, state model.ArtifactState) error

	// GetState returns the current state. Keys that were never set are
	// Discovered.
	GetState(ctx context.Context, key string) (model.ArtifactState, error)

	// SetOutcome records the final outcome of a candidate.
	SetOutcome(ctx context.Context, key string, outcome model.Outcome) error

	// GetOutcome returns the recorded outcome, or false when none exists yet.
	GetOutcome(ctx context.Context, key string) (model.Outcome, bool, error)

	// SetError records why a candidate failed.
	SetError(ctx context.Context, key string, artifactErr error) error

	// GetError returns the recorded failure, nil when there is none.
	GetError(ctx context.Context, key string) (error, error)

	// Counts returns the number of keys in each state, keyed by state name.
	Counts(ctx context.Context) (map[string]int, error)
}
