// Package dag provides a small, concurrency-safe directed graph used to
// record which resources depend on which. It detects cycles and produces a
// stable dependency-first ordering.
//
// Edges point from a dependency to its dependent: AddEdge("a", "b") means b
// depends on a.
package dag
