package graph

import "github.com/pkg/errors"

// Sentinel errors shared by every engine component. Callers match with
// errors.Is; wrapping layers add context with errors.Wrap/Wrapf.
var (
	// ErrNotFound reports an unknown node id.
	ErrNotFound = errors.New("skill node not found")

	// ErrStructuralViolation reports a write that would corrupt the
	// graph, e.g. introduce a cycle. The write has no partial effect.
	ErrStructuralViolation = errors.New("structural violation")

	// ErrNoMatch reports a discovery call against an empty index.
	ErrNoMatch = errors.New("no skills indexed")

	// ErrDepthExceeded reports a traversal that hit its depth bound.
	// It is a safety fault, never silently truncated.
	ErrDepthExceeded = errors.New("traversal depth exceeded")

	// ErrAccessDenied reports a principal without any qualifying grant.
	ErrAccessDenied = errors.New("access denied")

	// ErrUpstreamTimeout reports an embedding or index call that
	// exceeded its caller-supplied bound.
	ErrUpstreamTimeout = errors.New("upstream timeout")

	// ErrDimensionMismatch reports a vector whose dimension differs
	// from the index's configured dimension. It is a configuration
	// fault, not a per-request condition.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
