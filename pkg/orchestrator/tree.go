package orchestrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

// TreeNode is a recursively assembled view of the graph, used by the
// dashboard collaborator and the CLI tree command.
type TreeNode struct {
	ID       string      `json:"skill_id"`
	Summary  string      `json:"summary"`
	IsFolder bool        `json:"is_folder"`
	Children []*TreeNode `json:"children,omitempty"`
}

// BuildTree assembles the forest of all nodes: roots are nodes never
// referenced as a child. Assembly is iterative with a visited set per
// root, so corrupt data cannot recurse forever. Dangling references are
// skipped.
func (o *Orchestrator) BuildTree(ctx context.Context) ([]*TreeNode, error) {
	all, err := o.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*graph.Node, len(all))
	referenced := make(map[string]struct{})
	for _, summary := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node, err := o.store.Get(ctx, summary.ID)
		if errors.Is(err, graph.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes[node.ID] = node
		for _, child := range node.Children {
			referenced[child] = struct{}{}
		}
	}

	var forest []*TreeNode
	for _, summary := range all {
		if _, isChild := referenced[summary.ID]; isChild {
			continue
		}
		root, ok := nodes[summary.ID]
		if !ok {
			continue
		}
		forest = append(forest, buildSubtree(root, nodes, map[string]struct{}{root.ID: {}}))
	}
	return forest, nil
}

func buildSubtree(node *graph.Node, nodes map[string]*graph.Node, visited map[string]struct{}) *TreeNode {
	out := &TreeNode{
		ID:       node.ID,
		Summary:  node.Summary,
		IsFolder: node.IsFolder,
	}
	for _, childID := range node.Children {
		child, ok := nodes[childID]
		if !ok {
			continue
		}
		if _, seen := visited[childID]; seen {
			continue
		}
		visited[childID] = struct{}{}
		out.Children = append(out.Children, buildSubtree(child, nodes, visited))
	}
	return out
}

// Health reports the liveness of the orchestrator's collaborators.
type Health struct {
	StoreNodes     int    `json:"store_nodes"`
	IndexReady     bool   `json:"index_ready"`
	IndexedVectors int    `json:"indexed_vectors"`
	EmbeddingModel string `json:"embedding_model"`
	EmbeddingDims  int    `json:"embedding_dims"`
}

// CheckHealth probes the store and index.
func (o *Orchestrator) CheckHealth(ctx context.Context) (*Health, error) {
	n, err := o.store.Len(ctx)
	if err != nil {
		return nil, err
	}
	return &Health{
		StoreNodes:     n,
		IndexReady:     o.index.EnsureReady(ctx) == nil,
		IndexedVectors: o.index.Len(),
		EmbeddingModel: o.provider.ModelID(),
		EmbeddingDims:  o.provider.Dimensions(),
	}, nil
}
