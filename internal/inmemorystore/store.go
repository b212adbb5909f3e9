package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/specialistvlad/bundlegrid/internal/statestore"
)

// Store is an in-memory implementation of statestore.Store.
//
// The store maintains three independent sync.Maps:
//   - states: candidate key to model.ArtifactState
//   - outcomes: candidate key to model.Outcome
//   - errors: candidate key to the failure error
type Store struct {
	states   sync.Map // Key: candidate key, Value: model.ArtifactState
	outcomes sync.Map // Key: candidate key, Value: model.Outcome
	errors   sync.Map // Key: candidate key, Value: error
}

// New creates a new, empty in-memory state store.
func New() statestore.Store {
	return &Store{}
}

// SetState updates the state of a candidate.
func (s *Store) SetState(ctx context.Context, key string, state model.ArtifactState) error {
	s.states.Store(key, state)
	return nil
}

// GetState retrieves the state of a candidate.
// If a state has not been set, it returns StateDiscovered.
func (s *Store) GetState(ctx context.Context, key string) (model.ArtifactState, error) {
	state, ok := s.states.Load(key)
	if !ok {
		return model.StateDiscovered, nil
	}
	return state.(model.ArtifactState), nil
}

// SetOutcome records the final outcome of a candidate and its state.
func (s *Store) SetOutcome(ctx context.Context, key string, outcome model.Outcome) error {
	s.outcomes.Store(key, outcome)
	s.states.Store(key, outcome.State)
	if outcome.Err != nil {
		s.errors.Store(key, outcome.Err)
	}
	return nil
}

// GetOutcome retrieves the recorded outcome of a candidate.
func (s *Store) GetOutcome(ctx context.Context, key string) (model.Outcome, bool, error) {
	outcome, ok := s.outcomes.Load(key)
	if !ok {
		return model.Outcome{}, false, nil
	}
	return outcome.(model.Outcome), true, nil
}

// SetError records the failure error of a candidate.
func (s *Store) SetError(ctx context.Context, key string, artifactErr error) error {
	s.errors.Store(key, artifactErr)
	return nil
}

// GetError retrieves the recorded error of a failed candidate.
func (s *Store) GetError(ctx context.Context, key string) (error, error) {
	err, ok := s.errors.Load(key)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

// Counts returns how many candidates are in each state.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	s.states.Range(func(_, v any) bool {
		counts[v.(model.ArtifactState).String()]++
		return true
	})
	return counts, nil
}
