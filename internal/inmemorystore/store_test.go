package inmemorystore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/bundlegrid/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetState(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get state of a candidate that was never set
	state, err := s.GetState(ctx, "Measure/A")
	require.NoError(t, err)
	assert.Equal(t, model.StateDiscovered, state)

	// Set state
	err = s.SetState(ctx, "Measure/A", model.StateResolving)
	require.NoError(t, err)

	// Get state again
	state, err = s.GetState(ctx, "Measure/A")
	require.NoError(t, err)
	assert.Equal(t, model.StateResolving, state)
}

func TestSetAndGetOutcome(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, ok, err := s.GetOutcome(ctx, "Measure/A")
	require.NoError(t, err)
	assert.False(t, ok)

	failure := errors.New("unresolved dependencies")
	expected := model.Outcome{Key: "Measure/A", State: model.StateMissingDependency, Err: failure}
	require.NoError(t, s.SetOutcome(ctx, "Measure/A", expected))

	got, ok, err := s.GetOutcome(ctx, "Measure/A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, expected, got)

	state, err := s.GetState(ctx, "Measure/A")
	require.NoError(t, err)
	assert.Equal(t, model.StateMissingDependency, state, "an outcome also records the final state")

	storedErr, err := s.GetError(ctx, "Measure/A")
	require.NoError(t, err)
	assert.Equal(t, failure, storedErr)
}

func TestSetAndGetError(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get error for a candidate that doesn't exist yet should be nil
	retrievedErr, err := s.GetError(ctx, "Measure/A")
	require.NoError(t, err)
	assert.Nil(t, retrievedErr)

	expectedErr := errors.New("a test error occurred")
	require.NoError(t, s.SetError(ctx, "Measure/A", expectedErr))

	retrievedErr, err = s.GetError(ctx, "Measure/A")
	require.NoError(t, err)
	require.Error(t, retrievedErr)
	assert.Equal(t, expectedErr, retrievedErr)
}

func TestCounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.SetState(ctx, "a", model.StateResolving))
	require.NoError(t, s.SetState(ctx, "b", model.StatePersisted))
	require.NoError(t, s.SetState(ctx, "c", model.StatePersisted))

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Resolving": 1, "Persisted": 2}, counts)
}

// TestStore_ConcurrentAccess verifies that the store can be safely accessed by
// multiple goroutines simultaneously without data races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	numGoroutines := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines)

	// Phase 1: Concurrent Writes
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("Measure/m%d", i)
			_ = s.SetState(ctx, key, model.StateResolved)
			_ = s.SetError(ctx, key, fmt.Errorf("error for artifact %d", i))
		}(i)
	}

	wg.Wait()

	// Phase 2: Concurrent Reads / Verification
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("Measure/m%d", i)

			state, err := s.GetState(ctx, key)
			assert.NoError(t, err)
			assert.Equal(t, model.StateResolved, state, "mismatched state for artifact %d", i)

			artifactErr, err := s.GetError(ctx, key)
			assert.NoError(t, err)
			assert.EqualError(t, artifactErr, fmt.Sprintf("error for artifact %d", i))
		}(i)
	}

	wg.Wait()

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, numGoroutines, counts["Resolved"])
}
