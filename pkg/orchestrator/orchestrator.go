// Package orchestrator sequences the progressive-disclosure protocol:
// discovery returns minimal projections, navigation lists children, and
// only the final fetch returns the heavy instruction payload. Every
// phase is independently callable and gated by the access evaluator.
package orchestrator

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skillmesh/skillmesh/pkg/access"
	"github.com/skillmesh/skillmesh/pkg/discovery"
	"github.com/skillmesh/skillmesh/pkg/embeddings"
	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/logger"
	"github.com/skillmesh/skillmesh/pkg/telemetry"
	"github.com/skillmesh/skillmesh/pkg/traversal"
	"github.com/skillmesh/skillmesh/pkg/vectorindex"
)

// DefaultK is the discovery result count when the caller does not choose.
const DefaultK = 3

// Orchestrator is the transport-agnostic surface of the skill graph
// engine. It holds no per-request state; all state lives in the injected
// store and index.
type Orchestrator struct {
	store     graph.Store
	provider  embeddings.Provider
	index     vectorindex.Index
	traversal *traversal.Engine
	access    *access.Evaluator
	discovery *discovery.Engine
}

// Option configures the orchestrator's sub-engines.
type Option func(*options)

type options struct {
	traversalOpts []traversal.Option
	accessOpts    []access.Option
	discoveryOpts []discovery.Option
}

// WithTraversalOptions forwards options to the traversal engine.
func WithTraversalOptions(opts ...traversal.Option) Option {
	return func(o *options) { o.traversalOpts = append(o.traversalOpts, opts...) }
}

// WithAccessOptions forwards options to the access evaluator.
func WithAccessOptions(opts ...access.Option) Option {
	return func(o *options) { o.accessOpts = append(o.accessOpts, opts...) }
}

// WithDiscoveryOptions forwards options to the discovery engine.
func WithDiscoveryOptions(opts ...discovery.Option) Option {
	return func(o *options) { o.discoveryOpts = append(o.discoveryOpts, opts...) }
}

// New wires the orchestrator and its sub-engines. It fails fast on
// configuration faults such as a provider/index dimension mismatch.
func New(store graph.Store, provider embeddings.Provider, index vectorindex.Index, opts ...Option) (*Orchestrator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	trav := traversal.NewEngine(store, o.traversalOpts...)
	disc, err := discovery.NewEngine(provider, index, store, o.discoveryOpts...)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		store:     store,
		provider:  provider,
		index:     index,
		traversal: trav,
		access:    access.NewEvaluator(trav, o.accessOpts...),
		discovery: disc,
	}, nil
}

// Discover runs vector discovery and filters out candidates the
// principal cannot access. Partial denial filters, never errors; the
// permitted subset may be empty.
func (o *Orchestrator) Discover(ctx context.Context, query string, k int, principal graph.Principal) ([]discovery.Hit, error) {
	if k < 1 {
		k = DefaultK
	}

	var accessible []discovery.Hit
	err := telemetry.WithSpan(ctx, "orchestrator.discover", func(ctx context.Context) error {
		hits, err := o.discovery.Discover(ctx, query, k)
		if err != nil {
			return err
		}
		accessible = make([]discovery.Hit, 0, len(hits))
		for _, hit := range hits {
			ok, err := o.access.IsAccessible(ctx, hit.ID, principal)
			if err != nil {
				return err
			}
			if ok {
				accessible = append(accessible, hit)
			}
		}
		return nil
	}, attribute.String("query", query), attribute.Int("k", k))
	if err != nil {
		return nil, err
	}
	return accessible, nil
}

// ListChildren returns the minimal projection of a node's children. The
// access gate runs first, so an unauthorized caller learns nothing about
// the node, not even whether it exists.
func (o *Orchestrator) ListChildren(ctx context.Context, id string, principal graph.Principal) ([]graph.Summary, error) {
	if err := o.access.Authorize(ctx, id, principal); err != nil {
		return nil, err
	}
	return o.traversal.Children(ctx, id)
}

// FetchInstruction returns the full node including its payload. This is
// the only operation that exposes payload; the access gate runs before
// any payload retrieval.
func (o *Orchestrator) FetchInstruction(ctx context.Context, id string, principal graph.Principal) (*graph.Node, error) {
	var node *graph.Node
	err := telemetry.WithSpan(ctx, "orchestrator.fetch", func(ctx context.Context) error {
		if err := o.access.Authorize(ctx, id, principal); err != nil {
			return err
		}
		var err error
		node, err = o.store.Get(ctx, id)
		return err
	}, attribute.String("skill_id", id))
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Upsert writes a node, re-embedding its descriptor from the summary and
// keeping the vector index in step. Store and index are updated
// best-effort in that order; they reconcile via SyncIndex.
func (o *Orchestrator) Upsert(ctx context.Context, node *graph.Node) error {
	if node == nil {
		return errors.New("nil node")
	}
	if node.Summary != "" {
		vector, err := o.provider.Embed(ctx, node.Summary)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return errors.Wrap(graph.ErrUpstreamTimeout, "embedding summary")
			}
			return errors.Wrapf(err, "failed to embed summary of %s", node.ID)
		}
		node.Vector = vector
	}

	if err := o.store.Upsert(ctx, node); err != nil {
		return err
	}
	if node.Vector != nil {
		if err := o.index.Upsert(ctx, node.ID, node.Vector); err != nil {
			return errors.Wrapf(err, "node %s stored but not indexed", node.ID)
		}
	}
	logger.G(ctx).WithField("skill_id", node.ID).Info("upserted skill")
	return nil
}

// Delete removes a node from store and index. References from other
// nodes become dangling and are skipped by traversal.
func (o *Orchestrator) Delete(ctx context.Context, id string) error {
	if err := o.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := o.index.Remove(ctx, id); err != nil {
		return errors.Wrapf(err, "node %s deleted but still indexed", id)
	}
	logger.G(ctx).WithField("skill_id", id).Info("deleted skill")
	return nil
}

// ListAll returns the projection of every node. Management surface; not
// part of the disclosure protocol.
func (o *Orchestrator) ListAll(ctx context.Context) ([]graph.Summary, error) {
	return o.store.ListAll(ctx)
}

// SyncIndex rebuilds the vector index from stored descriptor vectors.
// Called at startup when the index backend is volatile.
func (o *Orchestrator) SyncIndex(ctx context.Context) (int, error) {
	all, err := o.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	indexed := 0
	for _, summary := range all {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		node, err := o.store.Get(ctx, summary.ID)
		if errors.Is(err, graph.ErrNotFound) {
			continue
		}
		if err != nil {
			return indexed, err
		}
		if node.Vector == nil {
			continue
		}
		if err := o.index.Upsert(ctx, node.ID, node.Vector); err != nil {
			return indexed, errors.Wrapf(err, "failed to index %s", node.ID)
		}
		indexed++
	}
	logger.G(ctx).WithField("indexed", indexed).Info("vector index synced from store")
	return indexed, nil
}
