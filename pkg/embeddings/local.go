package embeddings

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/pkg/errors"

	"github.com/skillmesh/skillmesh/pkg/vectorindex"
)

const defaultLocalDims = 384

// LocalProvider is a deterministic feature-hashing embedder. It needs no
// network or model weights, which makes it the default for tests,
// offline development, and air-gapped deployments. Similarity quality is
// lexical (shared tokens and bigrams), not semantic.
type LocalProvider struct {
	dims int
}

var _ Provider = (*LocalProvider)(nil)

// NewLocal creates a local provider with the given dimension (384 when
// zero, matching the small sentence-transformer models this stands in for).
func NewLocal(dims int) (*LocalProvider, error) {
	if dims < 0 {
		return nil, errors.Errorf("invalid dimension %d", dims)
	}
	if dims == 0 {
		dims = defaultLocalDims
	}
	return &LocalProvider{dims: dims}, nil
}

// Embed hashes lowercase tokens and in-token trigrams into a fixed-size
// bucket vector, then L2-normalizes.
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}

	vector := make([]float32, p.dims)
	for _, token := range tokenize(text) {
		p.addFeature(vector, token, 1.0)
		for _, gram := range trigrams(token) {
			p.addFeature(vector, gram, 0.5)
		}
	}
	return vectorindex.NormalizeL2(vector), nil
}

func (p *LocalProvider) addFeature(vector []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	bucket := int(sum % uint64(p.dims))
	// Low bit picks the sign so colliding features partially cancel
	// instead of always reinforcing.
	sign := float32(1)
	if sum&(1<<63) != 0 {
		sign = -1
	}
	vector[bucket] += sign * weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

func trigrams(token string) []string {
	if len(token) <= 3 {
		return nil
	}
	grams := make([]string, 0, len(token)-2)
	for i := 0; i+3 <= len(token); i++ {
		grams = append(grams, token[i:i+3])
	}
	return grams
}

// Dimensions reports the vector dimension.
func (p *LocalProvider) Dimensions() int {
	return p.dims
}

// ModelID identifies the embedder.
func (p *LocalProvider) ModelID() string {
	return "local:feature-hash"
}
