package graph

import "context"

// Store is the authoritative home of skill nodes. Implementations must
// guarantee per-node atomicity — a reader never observes a half-written
// node — but cross-node operations are not transactional, so callers
// tolerate transient dangling child references.
//
// Upsert must reject writes that would make the node a transitive
// descendant of itself with ErrStructuralViolation and leave the graph
// unchanged. Creating a node under an existing id is an update, not an
// error, and re-upserting an identical node is observably a no-op.
type Store interface {
	// Upsert creates or replaces the node keyed by node.ID.
	Upsert(ctx context.Context, node *Node) error

	// Get returns a copy of the node, or ErrNotFound.
	Get(ctx context.Context, id string) (*Node, error)

	// Delete removes the node. Deleting an unknown id returns
	// ErrNotFound. References from other nodes' children are left in
	// place; traversal skips them.
	Delete(ctx context.Context, id string) error

	// ListAll returns the minimal projection of every node. Order is
	// deterministic (ascending id).
	ListAll(ctx context.Context) ([]Summary, error)

	// Len reports the number of stored nodes.
	Len(ctx context.Context) (int, error)

	// Close releases backing resources.
	Close() error
}
