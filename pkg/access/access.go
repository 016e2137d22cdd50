// Package access decides node accessibility from a principal's granted
// roots. A grant on a root authorizes every transitive descendant,
// computed dynamically so grant changes take effect immediately. Each
// grant is probed independently with a short-circuit on the first
// success, so a single check costs O(grants x bounded walk), never
// O(corpus).
package access

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/traversal"
)

// Evaluator answers accessibility questions over a traversal engine.
type Evaluator struct {
	traversal *traversal.Engine

	// cacheTTL > 0 enables the per-grant descendant cache. The cache
	// trades up to one TTL of grant-shrink staleness for O(1) repeat
	// checks on hot grants; grant additions are still immediate
	// because unknown grants fall through to a fresh walk.
	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]cacheEntry
}

type cacheEntry struct {
	descendants map[string]struct{}
	expires     time.Time
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCacheTTL enables the per-grant descendant cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Evaluator) {
		if ttl > 0 {
			e.cacheTTL = ttl
			e.cache = make(map[string]cacheEntry)
		}
	}
}

// NewEvaluator creates an evaluator over the given traversal engine.
func NewEvaluator(t *traversal.Engine, opts ...Option) *Evaluator {
	e := &Evaluator{traversal: t}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsAccessible reports whether the principal may reach targetID. Denial
// is the default: a principal without grants can reach nothing.
func (e *Evaluator) IsAccessible(ctx context.Context, targetID string, principal graph.Principal) (bool, error) {
	if principal.Wildcard {
		return true, nil
	}
	if len(principal.GrantedRootIDs) == 0 {
		return false, nil
	}

	for _, root := range principal.GrantedRootIDs {
		if root == targetID {
			return true, nil
		}
	}
	for _, root := range principal.GrantedRootIDs {
		ok, err := e.isDescendant(ctx, targetID, root)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Authorize is IsAccessible with denial mapped to ErrAccessDenied.
func (e *Evaluator) Authorize(ctx context.Context, targetID string, principal graph.Principal) error {
	ok, err := e.IsAccessible(ctx, targetID, principal)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(graph.ErrAccessDenied, "principal %q has no grant covering %s", principal.Name, targetID)
	}
	return nil
}

func (e *Evaluator) isDescendant(ctx context.Context, targetID, root string) (bool, error) {
	if e.cacheTTL <= 0 {
		return e.traversal.IsDescendant(ctx, targetID, root)
	}

	descendants, err := e.cachedDescendants(ctx, root)
	if err != nil {
		return false, err
	}
	_, ok := descendants[targetID]
	return ok, nil
}

func (e *Evaluator) cachedDescendants(ctx context.Context, root string) (map[string]struct{}, error) {
	e.mu.Lock()
	entry, ok := e.cache[root]
	e.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.descendants, nil
	}

	descendants, err := e.traversal.Descendants(ctx, root, 0)
	if errors.Is(err, graph.ErrNotFound) {
		// A grant may point at a not-yet-created root; it simply
		// covers nothing until the node exists.
		descendants = map[string]struct{}{}
	} else if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.cache[root] = cacheEntry{descendants: descendants, expires: time.Now().Add(e.cacheTTL)}
	e.mu.Unlock()
	return descendants, nil
}
