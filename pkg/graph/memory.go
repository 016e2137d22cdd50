package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore is the in-memory Store. Nodes are deep-copied on the way in
// and out, so concurrent readers never observe a torn node and callers
// cannot mutate stored state through a returned pointer.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nodes: make(map[string]*Node)}
}

// Upsert creates or replaces the node. The acyclicity check and the write
// happen under one lock, so a concurrent writer cannot sneak a cycle in
// between check and commit.
func (s *MemoryStore) Upsert(ctx context.Context, node *Node) error {
	if node == nil {
		return errors.New("nil node")
	}
	if err := node.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cyclic, err := WouldCycle(ctx, s.lookupLocked, node.ID, node.Children)
	if err != nil {
		return err
	}
	if cyclic {
		return errors.Wrapf(ErrStructuralViolation, "upserting %s would create a cycle", node.ID)
	}

	stored := node.Clone()
	now := time.Now().UTC()
	if existing, ok := s.nodes[node.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.nodes[node.ID] = stored
	return nil
}

// lookupLocked serves WouldCycle; callers hold at least the read lock.
func (s *MemoryStore) lookupLocked(_ context.Context, id string) ([]string, bool, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return node.Children, true, nil
}

// Get returns a copy of the node keyed by id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return node.Clone(), nil
}

// Delete removes the node. Dangling references from other nodes are left
// behind on purpose; traversal skips them.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[id]; !ok {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	delete(s.nodes, id)
	return nil
}

// ListAll returns every node's projection in ascending id order.
func (s *MemoryStore) ListAll(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.nodes))
	for _, node := range s.nodes {
		out = append(out, node.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len reports the number of stored nodes.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
