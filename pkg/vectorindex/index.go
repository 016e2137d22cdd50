// Package vectorindex defines the nearest-neighbour search contract the
// discovery engine depends on, plus a brute-force in-memory
// implementation. The contract is deliberately narrow so an approximate
// backend (HNSW service, pgvector, OpenSearch kNN) can be swapped in at
// construction time.
package vectorindex

import "context"

// Result is a single nearest-neighbour hit.
type Result struct {
	ID    string
	Score float64
}

// Index is the vector similarity search contract.
//
// Search returns up to k ids ordered by descending similarity, ties
// broken by ascending id. candidatePool is the size of the internal
// candidate set an approximate backend should consider before truncating
// to k; exact backends may ignore it.
type Index interface {
	// EnsureReady confirms the backing structure exists and is usable.
	EnsureReady(ctx context.Context) error

	// Dimensions reports the configured vector dimension.
	Dimensions() int

	// Upsert adds or replaces the vector stored under id.
	Upsert(ctx context.Context, id string, vector []float32) error

	// Remove drops the vector stored under id. Removing an unknown id
	// is a no-op.
	Remove(ctx context.Context, id string) error

	// Search returns the k nearest ids to the query vector.
	Search(ctx context.Context, vector []float32, k, candidatePool int) ([]Result, error)

	// Len reports the number of indexed vectors.
	Len() int
}
