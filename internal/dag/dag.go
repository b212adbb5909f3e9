package dag

import (
	"fmt"
	"sort"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		vertices: make(map[string]*vertex),
	}
}

// AddNode adds a resource identity to the graph. Adding an identity twice is
// a no-op.
func (g *Graph) AddNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.vertices[id]; ok {
		return
	}

	g.vertices[id] = &vertex{
		id:         id,
		requires:   make(map[string]*vertex),
		requiredBy: make(map[string]*vertex),
	}
}

// Has reports whether the identity is in the graph.
func (g *Graph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.vertices[id]
	return ok
}

// Len returns the number of identities in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.vertices)
}

// AddEdge records that dependent requires dependency. Both identities must
// already be in the graph, and a resource cannot depend on itself.
func (g *Graph) AddEdge(dependency, dependent string) error {
	if dependency == dependent {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", dependency, dependency)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.vertices[dependency]
	if !ok {
		return fmt.Errorf("source node not found: %s", dependency)
	}
	to, ok := g.vertices[dependent]
	if !ok {
		return fmt.Errorf("destination node not found: %s", dependent)
	}

	to.requires[dependency] = from
	from.requiredBy[dependent] = to
	return nil
}

// Dependencies returns the identities id depends on, sorted.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(v.requires), nil
}

// Dependents returns the identities that depend on id, sorted.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v, ok := g.vertices[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedKeys(v.requiredBy), nil
}

// DetectCycles returns an error naming one identity on a cycle, or nil when
// the graph is acyclic. The identity reported is stable across runs.
func (g *Graph) DetectCycles() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	// done: fully explored and cycle-free. onPath: on the current DFS path.
	done := make(map[string]bool)
	onPath := make(map[string]bool)

	var visit func(v *vertex) error
	visit = func(v *vertex) error {
		if done[v.id] {
			return nil
		}
		if onPath[v.id] {
			return fmt.Errorf("cycle detected involving node '%s'", v.id)
		}

		onPath[v.id] = true
		for _, id := range sortedKeys(v.requiredBy) {
			if err := visit(v.requiredBy[id]); err != nil {
				return err
			}
		}
		delete(onPath, v.id)
		done[v.id] = true
		return nil
	}

	for _, id := range sortedKeys(g.vertices) {
		if err := visit(g.vertices[id]); err != nil {
			return err
		}
	}
	return nil
}

// TopologicalOrder returns every identity after all of its dependencies.
// Ties are broken by identity so the order is stable. An error is returned
// if the graph contains a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	pending := make(map[string]int, len(g.vertices))
	var ready []string
	for id, v := range g.vertices {
		pending[id] = len(v.requires)
		if len(v.requires) == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.vertices))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		released := false
		for next := range g.vertices[id].requiredBy {
			pending[next]--
			if pending[next] == 0 {
				ready = append(ready, next)
				released = true
			}
		}
		if released {
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.vertices) {
		return nil, fmt.Errorf("cycle detected: %d of %d nodes could not be ordered", len(g.vertices)-len(order), len(g.vertices))
	}
	return order, nil
}

func sortedKeys(m map[string]*vertex) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
