// Package graph defines the skill graph data model: nodes, projections,
// principals, the error taxonomy shared by every engine, and the
// GraphStore contract with its in-memory implementation. Durable storage
// lives in the sqlite subpackage.
package graph

import (
	"time"

	"github.com/pkg/errors"
)

// Node is a single unit in the skill link-graph. A folder node is purely
// navigational and carries child references; a leaf carries the heavy
// instruction payload. Identity (ID) is stable across updates.
type Node struct {
	ID        string    `json:"skill_id" yaml:"skill_id" db:"id"`
	Summary   string    `json:"summary" yaml:"summary" db:"summary"`
	Vector    []float32 `json:"-" yaml:"-"`
	IsFolder  bool      `json:"is_folder" yaml:"is_folder" db:"is_folder"`
	Children  []string  `json:"sub_skills" yaml:"sub_skills"`
	Payload   string    `json:"instruction,omitempty" yaml:"instruction,omitempty" db:"payload"`
	CreatedAt time.Time `json:"created_at" yaml:"-" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-" db:"updated_at"`
}

// Summary is the minimal projection exposed during discovery and
// navigation. Payload and children ids are deliberately absent.
type Summary struct {
	ID       string `json:"skill_id"`
	Summary  string `json:"summary"`
	IsFolder bool   `json:"is_folder"`
}

// Summarize returns the node's minimal projection.
func (n *Node) Summarize() Summary {
	return Summary{
		ID:       n.ID,
		Summary:  n.Summary,
		IsFolder: n.IsFolder,
	}
}

// Clone returns a deep copy so callers can never mutate stored state
// through a returned node.
func (n *Node) Clone() *Node {
	out := *n
	if n.Vector != nil {
		out.Vector = make([]float32, len(n.Vector))
		copy(out.Vector, n.Vector)
	}
	if n.Children != nil {
		out.Children = make([]string, len(n.Children))
		copy(out.Children, n.Children)
	}
	return &out
}

// Validate checks the fields that every store rejects regardless of
// backend. Structural checks (acyclicity) are the store's job because
// they need the rest of the graph.
func (n *Node) Validate() error {
	if n.ID == "" {
		return errors.New("node id is required")
	}
	seen := make(map[string]struct{}, len(n.Children))
	for _, child := range n.Children {
		if child == "" {
			return errors.Errorf("node %s has an empty child id", n.ID)
		}
		if child == n.ID {
			return errors.Wrapf(ErrStructuralViolation, "node %s lists itself as a child", n.ID)
		}
		if _, dup := seen[child]; dup {
			return errors.Errorf("node %s lists child %s twice", n.ID, child)
		}
		seen[child] = struct{}{}
	}
	return nil
}

// Principal is the authenticated caller as the engine sees it: the set of
// root node ids it is directly granted. Grants inherit downward along
// children edges. Wildcard marks an administrative principal that passes
// every access check without traversal.
type Principal struct {
	Name           string
	GrantedRootIDs []string
	Wildcard       bool
}

// Anonymous is the zero-grant principal. It is denied everything.
var Anonymous = Principal{Name: "anonymous"}
