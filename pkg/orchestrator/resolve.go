package orchestrator

import (
	"context"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

// Resolution is the outcome of a one-shot resolve loop. Exactly one of
// Skill or Entry is set when Resolved: Skill for a leaf hit, Entry plus
// Children for a folder hit that needs a follow-up choice.
type Resolution struct {
	Resolved bool            `json:"resolved"`
	Message  string          `json:"message,omitempty"`
	Skill    *graph.Node     `json:"skill,omitempty"`
	Entry    *graph.Node     `json:"entry,omitempty"`
	Children []graph.Summary `json:"children,omitempty"`
	Hint     string          `json:"hint,omitempty"`
}

// Resolve runs the full agentic loop in one call: discover the best
// entry point, and either return the leaf's payload or the folder's
// children for the caller to choose from. Convenience over the
// three-phase protocol, same gates.
func (o *Orchestrator) Resolve(ctx context.Context, query string, principal graph.Principal) (*Resolution, error) {
	hits, err := o.Discover(ctx, query, 1, principal)
	if errors.Is(err, graph.ErrNoMatch) {
		return &Resolution{Message: "no matching skill found"}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Resolution{Message: "no accessible skill matched"}, nil
	}

	entry, err := o.FetchInstruction(ctx, hits[0].ID, principal)
	if errors.Is(err, graph.ErrNotFound) {
		return &Resolution{Message: "skill disappeared after discovery"}, nil
	}
	if err != nil {
		return nil, err
	}

	if entry.IsFolder && len(entry.Children) > 0 {
		children, err := o.ListChildren(ctx, entry.ID, principal)
		if err != nil {
			return nil, err
		}
		// The folder's own payload is at most a navigational note;
		// withhold it so the heavy fetch stays explicit.
		entry.Payload = ""
		return &Resolution{
			Resolved: true,
			Entry:    entry,
			Children: children,
			Hint:     "pick a sub-skill and call load_instruction to get its content",
		}, nil
	}

	return &Resolution{Resolved: true, Skill: entry}, nil
}
