// Package discovery turns a natural-language query into a ranked,
// minimally-projected list of entry-point skill nodes. It owns nothing:
// the embedding provider, vector index, and graph store are injected at
// construction and the engine is stateless per call.
package discovery

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/embeddings"
	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/logger"
	"github.com/skillmesh/skillmesh/pkg/vectorindex"
)

// DefaultCandidateMultiplier oversizes the index candidate pool relative
// to k to offset recall loss in approximate backends.
const DefaultCandidateMultiplier = 10

// Hit is a discovery result: the minimal node projection plus the
// similarity score. Payload and children are never exposed here.
type Hit struct {
	graph.Summary
	Score float64 `json:"score"`
}

// Engine performs embed-then-search discovery.
type Engine struct {
	provider   embeddings.Provider
	index      vectorindex.Index
	store      graph.Store
	multiplier int
}

// Option configures an Engine.
type Option func(*Engine)

// WithCandidateMultiplier overrides the candidate pool multiplier.
func WithCandidateMultiplier(m int) Option {
	return func(e *Engine) {
		if m > 0 {
			e.multiplier = m
		}
	}
}

// NewEngine wires a discovery engine. The provider and index dimensions
// must agree; a mismatch is a configuration fault caught here, not at
// request time.
func NewEngine(provider embeddings.Provider, index vectorindex.Index, store graph.Store, opts ...Option) (*Engine, error) {
	if provider.Dimensions() != index.Dimensions() {
		return nil, errors.Wrapf(graph.ErrDimensionMismatch,
			"embedding provider %s produces %d dims, index configured for %d",
			provider.ModelID(), provider.Dimensions(), index.Dimensions())
	}
	e := &Engine{
		provider:   provider,
		index:      index,
		store:      store,
		multiplier: DefaultCandidateMultiplier,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Discover embeds the query and returns up to k hits ordered by
// descending score, ties broken by ascending id. Ids present in the
// index but missing from the store are skipped, mirroring the
// dangling-reference tolerance of traversal.
func (e *Engine) Discover(ctx context.Context, query string, k int) ([]Hit, error) {
	if k < 1 {
		return nil, errors.Errorf("k must be >= 1, got %d", k)
	}

	vector, err := e.provider.Embed(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(graph.ErrUpstreamTimeout, "embedding query")
		}
		return nil, errors.Wrap(err, "failed to embed query")
	}

	results, err := e.index.Search(ctx, vector, k, e.multiplier*k)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(graph.ErrUpstreamTimeout, "searching index")
		}
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node, err := e.store.Get(ctx, result.ID)
		if errors.Is(err, graph.ErrNotFound) {
			logger.G(ctx).WithField("id", result.ID).Warn("indexed id missing from store, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Summary: node.Summarize(), Score: result.Score})
	}
	return hits, nil
}
