// Package traversal computes child listings, descendant sets, and
// ancestor relations over a graph.Store. Every walk is an explicit
// worklist BFS with a visited set and a depth bound, so cycle protection
// and cost caps are structural guarantees rather than a property of the
// data. A cycle that slipped past the store's write check is still safe
// here.
package traversal

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/logger"
)

// DefaultMaxDepth caps traversal cost against pathological or corrupted
// graphs.
const DefaultMaxDepth = 32

// Engine performs bounded traversals over an injected store.
type Engine struct {
	store    graph.Store
	maxDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxDepth overrides the default depth bound.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// NewEngine creates a traversal engine over the given store.
func NewEngine(store graph.Store, opts ...Option) *Engine {
	e := &Engine{store: store, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxDepth reports the configured depth bound.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// Children returns the minimal projection of the node's immediate
// children in authoring order. A leaf yields an empty slice. Dangling
// child references are skipped with a warning, not surfaced as errors.
func (e *Engine) Children(ctx context.Context, id string) ([]graph.Summary, error) {
	node, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]graph.Summary, 0, len(node.Children))
	for _, childID := range node.Children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		child, err := e.store.Get(ctx, childID)
		if errors.Is(err, graph.ErrNotFound) {
			logger.G(ctx).WithField("parent", id).WithField("child", childID).
				Warn("skipping dangling child reference")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, child.Summarize())
	}
	return out, nil
}

// IsDescendant reports whether targetID is a transitive descendant of
// ancestorID. A node is never its own descendant. The walk short-circuits
// on the first match and fails with ErrDepthExceeded if the frontier is
// still non-empty at the depth bound.
func (e *Engine) IsDescendant(ctx context.Context, targetID, ancestorID string) (bool, error) {
	if targetID == ancestorID {
		return false, nil
	}

	visited := map[string]struct{}{ancestorID: {}}
	frontier := []string{ancestorID}

	for depth := 0; len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			node, err := e.store.Get(ctx, id)
			if errors.Is(err, graph.ErrNotFound) {
				continue
			}
			if err != nil {
				return false, err
			}
			for _, childID := range node.Children {
				if childID == targetID {
					return true, nil
				}
				if _, seen := visited[childID]; seen {
					continue
				}
				visited[childID] = struct{}{}
				next = append(next, childID)
			}
		}
		if len(next) > 0 && depth+1 > e.maxDepth {
			return false, errors.Wrapf(graph.ErrDepthExceeded, "walk from %s exceeded depth %d", ancestorID, e.maxDepth)
		}
		frontier = next
	}
	return false, nil
}

// Descendants returns the set of ids reachable from id, excluding id
// itself. maxDepth bounds the walk; zero or negative falls back to the
// engine's bound. Hitting the bound with work remaining fails with
// ErrDepthExceeded.
func (e *Engine) Descendants(ctx context.Context, id string, maxDepth int) (map[string]struct{}, error) {
	if maxDepth <= 0 || maxDepth > e.maxDepth {
		maxDepth = e.maxDepth
	}
	if _, err := e.store.Get(ctx, id); err != nil {
		return nil, err
	}

	result := make(map[string]struct{})
	visited := map[string]struct{}{id: {}}
	frontier := []string{id}

	for depth := 0; len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			node, err := e.store.Get(ctx, current)
			if errors.Is(err, graph.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			for _, childID := range node.Children {
				if _, seen := visited[childID]; seen {
					continue
				}
				visited[childID] = struct{}{}
				result[childID] = struct{}{}
				next = append(next, childID)
			}
		}
		if len(next) > 0 && depth+1 > maxDepth {
			return nil, errors.Wrapf(graph.ErrDepthExceeded, "walk from %s exceeded depth %d", id, maxDepth)
		}
		frontier = next
	}
	return result, nil
}
