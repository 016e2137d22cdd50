package graph

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_UpsertGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	node := &Node{
		ID:      "SQL_SKILL_MIGRATION",
		Summary: "Schema migration guidance",
		Vector:  []float32{0.1, 0.2, 0.3},
		Payload: "# Migrations\nAlways write a down migration.",
	}
	require.NoError(t, store.Upsert(ctx, node))

	got, err := store.Get(ctx, "SQL_SKILL_MIGRATION")
	require.NoError(t, err)
	assert.Equal(t, node.Summary, got.Summary)
	assert.Equal(t, node.Payload, got.Payload)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())

	// Mutating the returned copy must not affect stored state.
	got.Summary = "mutated"
	got.Vector[0] = 99
	again, err := store.Get(ctx, "SQL_SKILL_MIGRATION")
	require.NoError(t, err)
	assert.Equal(t, "Schema migration guidance", again.Summary)
	assert.Equal(t, float32(0.1), again.Vector[0])

	require.NoError(t, store.Delete(ctx, "SQL_SKILL_MIGRATION"))
	_, err = store.Get(ctx, "SQL_SKILL_MIGRATION")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.Delete(ctx, "SQL_SKILL_MIGRATION")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStore_UpsertIsUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, &Node{ID: "A", Summary: "first"}))
	first, err := store.Get(ctx, "A")
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, &Node{ID: "A", Summary: "second"}))
	second, err := store.Get(ctx, "A")
	require.NoError(t, err)

	assert.Equal(t, "second", second.Summary)
	assert.Equal(t, first.CreatedAt, second.CreatedAt, "update keeps creation time")

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryStore_RejectsCycles(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, &Node{ID: "C", Summary: "leaf"}))
	require.NoError(t, store.Upsert(ctx, &Node{ID: "B", IsFolder: true, Children: []string{"C"}}))
	require.NoError(t, store.Upsert(ctx, &Node{ID: "A", IsFolder: true, Children: []string{"B"}}))

	before, err := store.ListAll(ctx)
	require.NoError(t, err)

	tests := []struct {
		name string
		node *Node
	}{
		{"self child", &Node{ID: "A", IsFolder: true, Children: []string{"A"}}},
		{"direct cycle", &Node{ID: "B", IsFolder: true, Children: []string{"A"}}},
		{"deep cycle", &Node{ID: "C", IsFolder: true, Children: []string{"A"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Upsert(ctx, tc.node)
			assert.True(t, errors.Is(err, ErrStructuralViolation), "got %v", err)

			after, listErr := store.ListAll(ctx)
			require.NoError(t, listErr)
			assert.Equal(t, before, after, "rejected write must leave the graph unchanged")
		})
	}
}

func TestMemoryStore_ValidateRejectsBadNodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	assert.Error(t, store.Upsert(ctx, &Node{}))
	assert.Error(t, store.Upsert(ctx, &Node{ID: "A", Children: []string{""}}))
	assert.Error(t, store.Upsert(ctx, &Node{ID: "A", Children: []string{"B", "B"}}))
	assert.Error(t, store.Upsert(ctx, nil))
}

func TestMemoryStore_ListAllSortedProjection(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, &Node{ID: "B", Summary: "b", Payload: "secret"}))
	require.NoError(t, store.Upsert(ctx, &Node{ID: "A", Summary: "a", IsFolder: true, Children: []string{"B"}}))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].ID)
	assert.Equal(t, "B", all[1].ID)
	assert.True(t, all[0].IsFolder)
}

func TestMemoryStore_DanglingChildrenAllowed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Folders may reference children that do not exist yet; writes are
	// not transactional across nodes.
	require.NoError(t, store.Upsert(ctx, &Node{
		ID:       "SQL_SKILL",
		IsFolder: true,
		Children: []string{"SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION"},
	}))

	got, err := store.Get(ctx, "SQL_SKILL")
	require.NoError(t, err)
	assert.Len(t, got.Children, 2)
}

func TestMemoryStore_ConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, &Node{ID: "HOT", Summary: "v0"}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = store.Upsert(ctx, &Node{ID: "HOT", Summary: fmt.Sprintf("v%d", i)})
		}(i)
		go func() {
			defer wg.Done()
			node, err := store.Get(ctx, "HOT")
			require.NoError(t, err)
			assert.NotEmpty(t, node.Summary)
		}()
	}
	wg.Wait()
}
