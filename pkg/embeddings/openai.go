package embeddings

import (
	"context"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/skillmesh/skillmesh/pkg/graph"
	"github.com/skillmesh/skillmesh/pkg/logger"
)

const (
	defaultOpenAIModel = "text-embedding-3-small"
	// text-embedding-3-small's native dimension.
	defaultOpenAIDims = 1536

	retryAttempts = 3
)

// OpenAIProvider embeds text through an OpenAI-compatible embeddings
// endpoint. Transient failures are retried with backoff; the caller's
// deadline is honoured and surfaced as ErrUpstreamTimeout.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	dims   int
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAI constructs a provider from config. APIKey is required;
// BaseURL overrides the endpoint for OpenAI-compatible servers.
func NewOpenAI(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embeddings require an api key")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultOpenAIDims
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		dims:   dims,
	}, nil
}

// Embed encodes text via the embeddings endpoint.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("cannot embed empty text")
	}

	var resp openai.EmbeddingResponse
	err := retry.Do(
		func() error {
			var apiErr error
			resp, apiErr = p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input:      []string{text},
				Model:      openai.EmbeddingModel(p.model),
				Dimensions: p.dims,
			})
			return apiErr
		},
		retry.Attempts(retryAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Warn("retrying embeddings call")
		}),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrap(graph.ErrUpstreamTimeout, "embeddings call exceeded deadline")
		}
		return nil, errors.Wrap(err, "embeddings call failed")
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("embeddings response missing vector")
	}

	vector := resp.Data[0].Embedding
	if len(vector) != p.dims {
		return nil, errors.Wrapf(graph.ErrDimensionMismatch, "model returned %d dims, configured %d", len(vector), p.dims)
	}
	return vector, nil
}

// Dimensions reports the configured vector dimension.
func (p *OpenAIProvider) Dimensions() int {
	return p.dims
}

// ModelID identifies the backing model.
func (p *OpenAIProvider) ModelID() string {
	return "openai:" + p.model
}
