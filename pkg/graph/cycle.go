package graph

import "context"

// ChildLookup resolves a node id to its children. Missing nodes report
// ok=false and are skipped, mirroring the dangling-reference tolerance of
// traversal. Store implementations supply this to WouldCycle.
type ChildLookup func(ctx context.Context, id string) (children []string, ok bool, err error)

// WouldCycle reports whether writing node id with the proposed children
// would make id a transitive descendant of itself. It walks a worklist
// from the proposed children with a visited set, so it terminates even on
// an already-corrupted graph.
func WouldCycle(ctx context.Context, lookup ChildLookup, id string, children []string) (bool, error) {
	visited := make(map[string]struct{}, len(children))
	queue := make([]string, 0, len(children))
	for _, c := range children {
		if c == id {
			return true, nil
		}
		if _, seen := visited[c]; seen {
			continue
		}
		visited[c] = struct{}{}
		queue = append(queue, c)
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		current := queue[0]
		queue = queue[1:]

		next, ok, err := lookup(ctx, current)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		for _, c := range next {
			if c == id {
				return true, nil
			}
			if _, seen := visited[c]; seen {
				continue
			}
			visited[c] = struct{}{}
			queue = append(queue, c)
		}
	}
	return false, nil
}
