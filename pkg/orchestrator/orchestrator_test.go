package orchestrator

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillmesh/skillmesh/pkg/embeddings"
	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/vectorindex"
)

var (
	sqlAgent = graph.Principal{Name: "sql-agent", GrantedRootIDs: []string{"SQL_SKILL"}}
	admin    = graph.Principal{Name: "admin", Wildcard: true}
)

func newFixture(t *testing.T) (*Orchestrator, graph.Store) {
	t.Helper()
	ctx := context.Background()

	store := graph.NewMemoryStore()
	provider, err := embeddings.NewLocal(128)
	require.NoError(t, err)
	index, err := vectorindex.NewMemoryIndex(128)
	require.NoError(t, err)

	orch, err := New(store, provider, index)
	require.NoError(t, err)

	nodes := []*graph.Node{
		{ID: "SQL_SKILL_MIGRATION", Summary: "sql database schema migration", Payload: "# Migration guide"},
		{ID: "SQL_SKILL_OPTIMIZATION", Summary: "sql query performance tuning", Payload: "# Tuning guide"},
		{ID: "SQL_SKILL", Summary: "sql database skills", IsFolder: true,
			Children: []string{"SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION"}},
		{ID: "DEVOPS_SKILL_DOCKER", Summary: "docker container images", Payload: "# Docker guide"},
		{ID: "DEVOPS_SKILL", Summary: "devops deployment skills", IsFolder: true,
			Children: []string{"DEVOPS_SKILL_DOCKER"}},
	}
	for _, n := range nodes {
		require.NoError(t, orch.Upsert(ctx, n))
	}
	return orch, store
}

func TestDiscover_FiltersInaccessible(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	hits, err := orch.Discover(ctx, "sql database migration schema", 5, sqlAgent)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, hit := range hits {
		assert.Contains(t, []string{"SQL_SKILL", "SQL_SKILL_MIGRATION", "SQL_SKILL_OPTIMIZATION"}, hit.ID,
			"devops results must be filtered, not errored")
	}
}

func TestDiscover_EmptyGrantsYieldEmptyNotError(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	hits, err := orch.Discover(ctx, "sql database migration", 3, graph.Anonymous)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDiscover_AdminSeesRanking(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	hits, err := orch.Discover(ctx, "docker container images", 2, admin)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "DEVOPS_SKILL_DOCKER", hits[0].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestListChildren_InheritedGrant(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	// Grant on the folder covers the folder and its descendants.
	children, err := orch.ListChildren(ctx, "SQL_SKILL", sqlAgent)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "SQL_SKILL_MIGRATION", children[0].ID)

	// A descendant leaf is accessible too; it simply has no children.
	children, err = orch.ListChildren(ctx, "SQL_SKILL_MIGRATION", sqlAgent)
	require.NoError(t, err)
	assert.Empty(t, children)

	_, err = orch.ListChildren(ctx, "DEVOPS_SKILL_DOCKER", sqlAgent)
	assert.True(t, errors.Is(err, graph.ErrAccessDenied))
}

func TestListChildren_SkipsDanglingAfterDelete(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	require.NoError(t, orch.Delete(ctx, "SQL_SKILL_MIGRATION"))

	children, err := orch.ListChildren(ctx, "SQL_SKILL", sqlAgent)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "SQL_SKILL_OPTIMIZATION", children[0].ID)
}

func TestFetchInstruction_OnlyPayloadPath(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	node, err := orch.FetchInstruction(ctx, "SQL_SKILL_MIGRATION", sqlAgent)
	require.NoError(t, err)
	assert.Equal(t, "# Migration guide", node.Payload)

	// Denied before any payload retrieval.
	denied, err := orch.FetchInstruction(ctx, "DEVOPS_SKILL_DOCKER", sqlAgent)
	assert.True(t, errors.Is(err, graph.ErrAccessDenied))
	assert.Nil(t, denied)

	_, err = orch.FetchInstruction(ctx, "MISSING", admin)
	assert.True(t, errors.Is(err, graph.ErrNotFound))
}

func TestUpsert_ReembedsAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	orch, store := newFixture(t)

	first, err := store.Get(ctx, "SQL_SKILL_MIGRATION")
	require.NoError(t, err)
	require.NotNil(t, first.Vector)

	// Unchanged node: observably identical graph.
	require.NoError(t, orch.Upsert(ctx, first.Clone()))
	second, err := store.Get(ctx, "SQL_SKILL_MIGRATION")
	require.NoError(t, err)
	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, first.Children, second.Children)

	// Changed summary: vector follows.
	changed := second.Clone()
	changed.Summary = "completely different topic entirely"
	require.NoError(t, orch.Upsert(ctx, changed))
	third, err := store.Get(ctx, "SQL_SKILL_MIGRATION")
	require.NoError(t, err)
	assert.NotEqual(t, second.Vector, third.Vector)
}

func TestUpsert_CycleRejectionLeavesIndexConsistent(t *testing.T) {
	ctx := context.Background()
	orch, store := newFixture(t)

	err := orch.Upsert(ctx, &graph.Node{
		ID: "SQL_SKILL_MIGRATION", Summary: "sql database schema migration",
		IsFolder: true, Children: []string{"SQL_SKILL"},
	})
	assert.True(t, errors.Is(err, graph.ErrStructuralViolation))

	node, err := store.Get(ctx, "SQL_SKILL_MIGRATION")
	require.NoError(t, err)
	assert.Empty(t, node.Children)
}

func TestDelete_RemovesFromIndex(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	require.NoError(t, orch.Delete(ctx, "DEVOPS_SKILL_DOCKER"))

	hits, err := orch.Discover(ctx, "docker container images", 5, admin)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.NotEqual(t, "DEVOPS_SKILL_DOCKER", hit.ID)
	}

	err = orch.Delete(ctx, "DEVOPS_SKILL_DOCKER")
	assert.True(t, errors.Is(err, graph.ErrNotFound))
}

func TestResolve_FolderEntry(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	res, err := orch.Resolve(ctx, "sql database skills", sqlAgent)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	require.NotNil(t, res.Entry)
	assert.Equal(t, "SQL_SKILL", res.Entry.ID)
	assert.Empty(t, res.Entry.Payload, "folder payload is withheld")
	assert.Len(t, res.Children, 2)
	assert.NotEmpty(t, res.Hint)
	assert.Nil(t, res.Skill)
}

func TestResolve_LeafEntry(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	res, err := orch.Resolve(ctx, "docker container images", admin)
	require.NoError(t, err)
	require.True(t, res.Resolved)
	require.NotNil(t, res.Skill)
	assert.Equal(t, "DEVOPS_SKILL_DOCKER", res.Skill.ID)
	assert.Equal(t, "# Docker guide", res.Skill.Payload)
}

func TestResolve_NothingAccessible(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	res, err := orch.Resolve(ctx, "sql database skills", graph.Anonymous)
	require.NoError(t, err)
	assert.False(t, res.Resolved)
	assert.NotEmpty(t, res.Message)
}

func TestResolve_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	provider, err := embeddings.NewLocal(32)
	require.NoError(t, err)
	index, err := vectorindex.NewMemoryIndex(32)
	require.NoError(t, err)
	orch, err := New(store, provider, index)
	require.NoError(t, err)

	res, err := orch.Resolve(ctx, "anything", admin)
	require.NoError(t, err)
	assert.False(t, res.Resolved)
}

func TestBuildTree(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	forest, err := orch.BuildTree(ctx)
	require.NoError(t, err)
	require.Len(t, forest, 2, "two roots: DEVOPS_SKILL and SQL_SKILL")

	byID := map[string]*TreeNode{}
	for _, root := range forest {
		byID[root.ID] = root
	}
	require.Contains(t, byID, "SQL_SKILL")
	require.Contains(t, byID, "DEVOPS_SKILL")
	assert.Len(t, byID["SQL_SKILL"].Children, 2)
	assert.Len(t, byID["DEVOPS_SKILL"].Children, 1)
}

func TestSyncIndex_RebuildsFromStore(t *testing.T) {
	ctx := context.Background()
	_, store := newFixture(t)

	// Fresh volatile index over the same store.
	provider, err := embeddings.NewLocal(128)
	require.NoError(t, err)
	index, err := vectorindex.NewMemoryIndex(128)
	require.NoError(t, err)
	orch, err := New(store, provider, index)
	require.NoError(t, err)

	_, err = orch.Discover(ctx, "sql database migration", 1, admin)
	assert.True(t, errors.Is(err, graph.ErrNoMatch))

	indexed, err := orch.SyncIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, indexed)

	hits, err := orch.Discover(ctx, "sql database schema migration", 1, admin)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "SQL_SKILL_MIGRATION", hits[0].ID)
}

func TestCheckHealth(t *testing.T) {
	ctx := context.Background()
	orch, _ := newFixture(t)

	health, err := orch.CheckHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, health.StoreNodes)
	assert.True(t, health.IndexReady)
	assert.Equal(t, 5, health.IndexedVectors)
	assert.Equal(t, "local:feature-hash", health.EmbeddingModel)
	assert.Equal(t, 128, health.EmbeddingDims)
}
