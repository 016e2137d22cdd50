package access

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/traversal"
)

func seedStore(t *testing.T) graph.Store {
	t.Helper()
	ctx := context.Background()
	store := graph.NewMemoryStore()

	nodes := []*graph.Node{
		{ID: "SQL_SKILL_MIGRATION", Payload: "migration guide"},
		{ID: "SQL_SKILL_OPTIMIZATION", Payload: "tuning guide"},
		{ID: "SQL_SKILL", IsFolder: true, Children: []string{"SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION"}},
		{ID: "DEVOPS_SKILL_DOCKER", Payload: "docker guide"},
		{ID: "DEVOPS_SKILL", IsFolder: true, Children: []string{"DEVOPS_SKILL_DOCKER"}},
	}
	for _, n := range nodes {
		require.NoError(t, store.Upsert(ctx, n))
	}
	return store
}

func TestIsAccessible_GrantInheritance(t *testing.T) {
	ctx := context.Background()
	evaluator := NewEvaluator(traversal.NewEngine(seedStore(t)))

	principal := graph.Principal{Name: "sql-agent", GrantedRootIDs: []string{"SQL_SKILL"}}

	// SQL_SKILL is granted directly; its subtree is inherited; the
	// devops subtree and unknown ids are out of reach.
	tests := []struct {
		target string
		want   bool
	}{
		{"SQL_SKILL", true},
		{"SQL_SKILL_MIGRATION", true},
		{"SQL_SKILL_OPTIMIZATION", true},
		{"DEVOPS_SKILL_DOCKER", false},
		{"DEVOPS_SKILL", false},
		{"GHOST", false},
	}
	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			got, err := evaluator.IsAccessible(ctx, tc.target, principal)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsAccessible_EmptyGrantsDenyEverything(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	evaluator := NewEvaluator(traversal.NewEngine(store))

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, all)

	for _, s := range all {
		got, err := evaluator.IsAccessible(ctx, s.ID, graph.Anonymous)
		require.NoError(t, err)
		assert.False(t, got, "empty grants must deny %s", s.ID)
	}
}

func TestIsAccessible_Wildcard(t *testing.T) {
	ctx := context.Background()
	evaluator := NewEvaluator(traversal.NewEngine(seedStore(t)))

	admin := graph.Principal{Name: "admin", Wildcard: true}
	got, err := evaluator.IsAccessible(ctx, "DEVOPS_SKILL_DOCKER", admin)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIsAccessible_MultipleGrantsShortCircuit(t *testing.T) {
	ctx := context.Background()
	evaluator := NewEvaluator(traversal.NewEngine(seedStore(t)))

	principal := graph.Principal{
		Name:           "multi",
		GrantedRootIDs: []string{"DEVOPS_SKILL", "SQL_SKILL"},
	}
	got, err := evaluator.IsAccessible(ctx, "SQL_SKILL_MIGRATION", principal)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIsAccessible_GrantChangeIsImmediate(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	evaluator := NewEvaluator(traversal.NewEngine(store))

	principal := graph.Principal{Name: "agent", GrantedRootIDs: []string{"SQL_SKILL"}}

	// A freshly added descendant is covered with no invalidation step.
	require.NoError(t, store.Upsert(ctx, &graph.Node{ID: "SQL_SKILL_BACKUP", Payload: "backup guide"}))
	require.NoError(t, store.Upsert(ctx, &graph.Node{
		ID: "SQL_SKILL", IsFolder: true,
		Children: []string{"SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION", "SQL_SKILL_BACKUP"},
	}))

	got, err := evaluator.IsAccessible(ctx, "SQL_SKILL_BACKUP", principal)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIsAccessible_GrantOnMissingRoot(t *testing.T) {
	ctx := context.Background()
	evaluator := NewEvaluator(traversal.NewEngine(seedStore(t)))

	principal := graph.Principal{Name: "agent", GrantedRootIDs: []string{"FUTURE_SKILL"}}
	got, err := evaluator.IsAccessible(ctx, "SQL_SKILL_MIGRATION", principal)
	require.NoError(t, err)
	assert.False(t, got)

	// The grant itself is still directly usable once the node exists;
	// id equality needs no traversal.
	got, err = evaluator.IsAccessible(ctx, "FUTURE_SKILL", principal)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestIsAccessible_CachedEvaluator(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t)
	evaluator := NewEvaluator(traversal.NewEngine(store), WithCacheTTL(50*time.Millisecond))

	principal := graph.Principal{Name: "agent", GrantedRootIDs: []string{"SQL_SKILL"}}

	got, err := evaluator.IsAccessible(ctx, "SQL_SKILL_MIGRATION", principal)
	require.NoError(t, err)
	assert.True(t, got)

	// Within the TTL the cached subtree answers without a walk.
	got, err = evaluator.IsAccessible(ctx, "SQL_SKILL_OPTIMIZATION", principal)
	require.NoError(t, err)
	assert.True(t, got)

	// Shrinking the subtree is visible after expiry.
	require.NoError(t, store.Upsert(ctx, &graph.Node{
		ID: "SQL_SKILL", IsFolder: true, Children: []string{"SQL_SKILL_OPTIMIZATION"},
	}))
	time.Sleep(60 * time.Millisecond)

	got, err = evaluator.IsAccessible(ctx, "SQL_SKILL_MIGRATION", principal)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	evaluator := NewEvaluator(traversal.NewEngine(seedStore(t)))

	principal := graph.Principal{Name: "sql-agent", GrantedRootIDs: []string{"SQL_SKILL"}}

	assert.NoError(t, evaluator.Authorize(ctx, "SQL_SKILL_MIGRATION", principal))

	err := evaluator.Authorize(ctx, "DEVOPS_SKILL_DOCKER", principal)
	assert.True(t, errors.Is(err, graph.ErrAccessDenied))
}

func TestIsAccessible_DepthFaultSurfaces(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, &graph.Node{ID: "D3"}))
	require.NoError(t, store.Upsert(ctx, &graph.Node{ID: "D2", IsFolder: true, Children: []string{"D3"}}))
	require.NoError(t, store.Upsert(ctx, &graph.Node{ID: "D1", IsFolder: true, Children: []string{"D2"}}))
	require.NoError(t, store.Upsert(ctx, &graph.Node{ID: "D0", IsFolder: true, Children: []string{"D1"}}))

	evaluator := NewEvaluator(traversal.NewEngine(store, traversal.WithMaxDepth(1)))
	principal := graph.Principal{Name: "agent", GrantedRootIDs: []string{"D0"}}

	_, err := evaluator.IsAccessible(ctx, "ABSENT", principal)
	assert.True(t, errors.Is(err, graph.ErrDepthExceeded), "safety fault is surfaced, not truncated")
}
