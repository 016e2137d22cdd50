package vectorindex

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

func TestMemoryIndex_SearchOrdering(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)

	// Angles from the x axis: closest first.
	require.NoError(t, idx.Upsert(ctx, "exact", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "near", []float32{1, 0.1}))
	require.NoError(t, idx.Upsert(ctx, "far", []float32{0.1, 1}))
	require.NoError(t, idx.Upsert(ctx, "opposite", []float32{-1, 0}))

	results, err := idx.Search(ctx, []float32{1, 0}, 3, 30)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "exact", results[0].ID)
	assert.Equal(t, "near", results[1].ID)
	assert.Equal(t, "far", results[2].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryIndex_TieBrokenByID(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)

	// Same direction, different magnitude: identical cosine scores.
	require.NoError(t, idx.Upsert(ctx, "b", []float32{2, 0}))
	require.NoError(t, idx.Upsert(ctx, "a", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "c", []float32{3, 0}))

	results, err := idx.Search(ctx, []float32{1, 0}, 3, 30)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].ID, results[1].ID, results[2].ID})
}

func TestMemoryIndex_EmptyIndexIsNoMatch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)

	_, err = idx.Search(ctx, []float32{1, 0}, 1, 10)
	assert.True(t, errors.Is(err, graph.ErrNoMatch))
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(3)
	require.NoError(t, err)

	err = idx.Upsert(ctx, "bad", []float32{1, 0})
	assert.True(t, errors.Is(err, graph.ErrDimensionMismatch))

	require.NoError(t, idx.Upsert(ctx, "ok", []float32{1, 0, 0}))
	_, err = idx.Search(ctx, []float32{1, 0}, 1, 10)
	assert.True(t, errors.Is(err, graph.ErrDimensionMismatch))
}

func TestMemoryIndex_UpsertReplacesAndRemove(t *testing.T) {
	ctx := context.Background()
	idx, err := NewMemoryIndex(2)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert(ctx, "n", []float32{1, 0}))
	require.NoError(t, idx.Upsert(ctx, "n", []float32{0, 1}))
	assert.Equal(t, 1, idx.Len())

	results, err := idx.Search(ctx, []float32{0, 1}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "n", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	require.NoError(t, idx.Remove(ctx, "n"))
	require.NoError(t, idx.Remove(ctx, "n")) // idempotent
	assert.Equal(t, 0, idx.Len())
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Cosine(tc.a, tc.b)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}

	_, err := Cosine([]float32{1}, []float32{1, 2})
	assert.True(t, errors.Is(err, graph.ErrDimensionMismatch))
}

func TestNormalizeL2(t *testing.T) {
	v := NormalizeL2([]float32{3, 4})
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := NormalizeL2([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}
