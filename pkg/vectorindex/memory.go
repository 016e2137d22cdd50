package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

// MemoryIndex is an exact brute-force cosine index. Vectors are
// L2-normalized on insert so search reduces to a dot product. It is the
// default backend for small and medium corpora; the Index contract
// exists so a real ANN backend can replace it without touching callers.
type MemoryIndex struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an index for vectors of the given dimension.
func NewMemoryIndex(dims int) (*MemoryIndex, error) {
	if dims <= 0 {
		return nil, errors.Errorf("invalid vector dimension %d", dims)
	}
	return &MemoryIndex{
		dims:    dims,
		vectors: make(map[string][]float32),
	}, nil
}

// EnsureReady reports whether the index is usable.
func (idx *MemoryIndex) EnsureReady(_ context.Context) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.vectors == nil {
		return errors.New("index not initialized")
	}
	return nil
}

// Dimensions reports the configured vector dimension.
func (idx *MemoryIndex) Dimensions() int {
	return idx.dims
}

// Upsert adds or replaces the vector stored under id.
func (idx *MemoryIndex) Upsert(_ context.Context, id string, vector []float32) error {
	if id == "" {
		return errors.New("empty id")
	}
	if len(vector) != idx.dims {
		return errors.Wrapf(graph.ErrDimensionMismatch, "id %s: got %d, index configured for %d", id, len(vector), idx.dims)
	}
	normalized := NormalizeL2(vector)

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[id] = normalized
	return nil
}

// Remove drops the vector stored under id.
func (idx *MemoryIndex) Remove(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, id)
	return nil
}

// Search scans every stored vector and returns the k best matches by
// cosine similarity, ties broken by ascending id. candidatePool is
// ignored: the scan is exact.
func (idx *MemoryIndex) Search(ctx context.Context, vector []float32, k, _ int) ([]Result, error) {
	if k < 1 {
		return nil, errors.Errorf("k must be >= 1, got %d", k)
	}
	if len(vector) != idx.dims {
		return nil, errors.Wrapf(graph.ErrDimensionMismatch, "query has %d dims, index configured for %d", len(vector), idx.dims)
	}

	query := NormalizeL2(vector)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.vectors) == 0 {
		return nil, errors.Wrap(graph.ErrNoMatch, "vector index is empty")
	}

	results := make([]Result, 0, len(idx.vectors))
	for id, stored := range idx.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var dot float64
		for i := range stored {
			dot += float64(stored[i]) * float64(query[i])
		}
		results = append(results, Result{ID: id, Score: dot})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len reports the number of indexed vectors.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}
