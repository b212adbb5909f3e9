// Package index builds the read-only Resource Index that every resolver task
// consults, and the Cache object that memoizes how it was built.
//
// # Source layout
//
// Each configured root holds one subdirectory per resource type, named after
// the lowercase type:
//
//	<root>/library/...
//	<root>/measure/...
//	<root>/valueset/...
//	<root>/tests/measure/<ArtifactName>/...   test fixtures
//
// A missing root is fatal. A missing type directory only produces a warning
// unless the type is listed as required.
//
// # Lifecycle
//
// An Index is built once, synchronously, before any concurrent work starts and
// is never written afterwards, so reads need no locking. The Cache owns the
// memoized directory walks, built indexes and parsed files. It is injected
// into whoever builds indexes and cleared with Invalidate between independent
// runs.
package index
