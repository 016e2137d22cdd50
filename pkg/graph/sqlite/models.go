package sqlite

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/graph"
)

// nodeRecord is the skill_nodes row shape.
type nodeRecord struct {
	ID        string    `db:"id"`
	Summary   string    `db:"summary"`
	Vector    []byte    `db:"vector"`
	IsFolder  bool      `db:"is_folder"`
	Children  string    `db:"children"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func recordFromNode(node *graph.Node) (*nodeRecord, error) {
	children, err := json.Marshal(node.Children)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal children")
	}
	return &nodeRecord{
		ID:        node.ID,
		Summary:   node.Summary,
		Vector:    encodeVector(node.Vector),
		IsFolder:  node.IsFolder,
		Children:  string(children),
		Payload:   node.Payload,
		CreatedAt: node.CreatedAt,
		UpdatedAt: node.UpdatedAt,
	}, nil
}

func (r *nodeRecord) toNode() (*graph.Node, error) {
	var children []string
	if r.Children != "" {
		if err := json.Unmarshal([]byte(r.Children), &children); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal children of %s", r.ID)
		}
	}
	vector, err := decodeVector(r.Vector)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode vector of %s", r.ID)
	}
	return &graph.Node{
		ID:        r.ID,
		Summary:   r.Summary,
		Vector:    vector,
		IsFolder:  r.IsFolder,
		Children:  children,
		Payload:   r.Payload,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}, nil
}

// encodeVector packs a float32 vector into a little-endian blob.
func encodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, errors.Errorf("vector blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out, nil
}
