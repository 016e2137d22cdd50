package discovery

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

// fixedProvider returns canned vectors keyed by exact text, so tests can
// control geometry precisely.
type fixedProvider struct {
	dims    int
	vectors map[string][]float32
}

func (p *fixedProvider) Embed(_ context.Context, text string) ([]float32, error) {
	v, ok := p.vectors[text]
	if !ok {
		return nil, errors.Errorf("no canned vector for %q", text)
	}
	return v, nil
}

func (p *fixedProvider) Dimensions() int { return p.dims }
func (p *fixedProvider) ModelID() string { return "test:fixed" }

func newFixture(t *testing.T) (*Engine, graph.Store, *vectorindex.MemoryIndex) {
	t.Helper()
	ctx := context.Background()

	store := graph.NewMemoryStore()
	index, err := vectorindex.NewMemoryIndex(2)
	require.NoError(t, err)

	nodes := map[string][]float32{
		"SQL_SKILL":           {1, 0},
		"SQL_SKILL_MIGRATION": {0.9, 0.1},
		"DEVOPS_SKILL":        {0, 1},
		"ML_SKILL":            {-0.5, 0.5},
	}
	for id, vector := range nodes {
		require.NoError(t, store.Upsert(ctx, &graph.Node{
			ID:       id,
			Summary:  "about " + id,
			Vector:   vector,
			IsFolder: id == "SQL_SKILL" || id == "DEVOPS_SKILL",
		}))
		require.NoError(t, index.Upsert(ctx, id, vector))
	}

	provider := &fixedProvider{dims: 2, vectors: map[string][]float32{
		"sql query": {1, 0.05},
	}}
	engine, err := NewEngine(provider, index, store)
	require.NoError(t, err)
	return engine, store, index
}

func TestDiscover_RankedProjection(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newFixture(t)

	hits, err := engine.Discover(ctx, "sql query", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "SQL_SKILL", hits[0].ID)
	assert.Equal(t, "SQL_SKILL_MIGRATION", hits[1].ID)
	assert.Equal(t, "DEVOPS_SKILL", hits[2].ID)
	assert.True(t, hits[0].Score >= hits[1].Score && hits[1].Score >= hits[2].Score)
	assert.True(t, hits[0].IsFolder)
	assert.NotEmpty(t, hits[0].Summary.Summary)
}

func TestDiscover_KBounds(t *testing.T) {
	ctx := context.Background()
	engine, _, _ := newFixture(t)

	_, err := engine.Discover(ctx, "sql query", 0)
	assert.Error(t, err)

	// k larger than the corpus returns everything that matched.
	hits, err := engine.Discover(ctx, "sql query", 50)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestDiscover_EmptyIndexIsNoMatch(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	index, err := vectorindex.NewMemoryIndex(2)
	require.NoError(t, err)

	provider := &fixedProvider{dims: 2, vectors: map[string][]float32{"q": {1, 0}}}
	engine, err := NewEngine(provider, index, store)
	require.NoError(t, err)

	_, err = engine.Discover(ctx, "q", 1)
	assert.True(t, errors.Is(err, graph.ErrNoMatch))
}

func TestDiscover_SkipsIndexStoreDrift(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newFixture(t)

	// Node deleted from the store but still present in the index.
	require.NoError(t, store.Delete(ctx, "SQL_SKILL_MIGRATION"))

	hits, err := engine.Discover(ctx, "sql query", 4)
	require.NoError(t, err)
	for _, hit := range hits {
		assert.NotEqual(t, "SQL_SKILL_MIGRATION", hit.ID)
	}
	assert.Len(t, hits, 3)
}

func TestNewEngine_DimensionMismatchIsConstructionFault(t *testing.T) {
	store := graph.NewMemoryStore()
	index, err := vectorindex.NewMemoryIndex(3)
	require.NoError(t, err)

	provider := &fixedProvider{dims: 2}
	_, err = NewEngine(provider, index, store)
	assert.True(t, errors.Is(err, graph.ErrDimensionMismatch))
}

func TestDiscover_EndToEndWithLocalProvider(t *testing.T) {
	ctx := context.Background()

	provider, err := embeddings.NewLocal(128)
	require.NoError(t, err)
	index, err := vectorindex.NewMemoryIndex(128)
	require.NoError(t, err)
	store := graph.NewMemoryStore()

	seed := map[string]string{
		"SQL_SKILL_MIGRATION":    "sql database schema migration",
		"SQL_SKILL_OPTIMIZATION": "sql query performance tuning",
		"DEVOPS_SKILL_DOCKER":    "docker container images and registries",
	}
	for id, summary := range seed {
		vector, err := provider.Embed(ctx, summary)
		require.NoError(t, err)
		require.NoError(t, store.Upsert(ctx, &graph.Node{ID: id, Summary: summary, Vector: vector}))
		require.NoError(t, index.Upsert(ctx, id, vector))
	}

	engine, err := NewEngine(provider, index, store)
	require.NoError(t, err)

	hits, err := engine.Discover(ctx, "how do I migrate a sql schema", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "SQL_SKILL_MIGRATION", hits[0].ID)
}
