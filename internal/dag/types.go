package dag

import "sync"

// Graph holds resource identities and the depends-on edges between them.
// All operations on the graph are concurrency-safe.
type Graph struct {
	mu sync.RWMutex
	// vertices is keyed by resource identity.
	vertices map[string]*vertex
}

// vertex is one resource identity. Callers only see identities.
type vertex struct {
	id string
	// requires are the identities this vertex depends on.
	requires map[string]*vertex
	// requiredBy are the identities that depend on this vertex.
	requiredBy map[string]*vertex
}
